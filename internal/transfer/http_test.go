package transfer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// bucketServer is a path-style S3 endpoint backed by a map. When status is
// set every request is answered with that status and code instead.
type bucketServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	methods map[string]int
	status  int
	code    string
}

func newBucketServer(t *testing.T) (*bucketServer, *httptest.Server) {
	b := &bucketServer{objects: map[string][]byte{}, methods: map[string]int{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *bucketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.methods[r.Method]++

	if b.status != 0 {
		b.writeError(w, r, b.status, b.code)
		return
	}
	switch r.Method {
	case http.MethodPut:
		b.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		obj, ok := b.objects[r.URL.Path]
		if !ok {
			b.writeError(w, r, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(obj)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *bucketServer) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>`+code+`</Message><RequestId>req-1</RequestId></Error>`)
}

func (b *bucketServer) object(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[path]
}

func (b *bucketServer) count(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.methods[method]
}

func newHTTPClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(testConfig(), WithEndpoint(srv.URL, true), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return c
}

func TestHTTPRoundTrip(t *testing.T) {
	b, srv := newBucketServer(t)
	c := newHTTPClient(t, srv)
	data := payload(70000)

	rec := &recorder{}
	require.NoError(t, wait(t, c.Upload(context.Background(), "dir/photo.jpg", data, rec)))
	assertLifecycle(t, rec.all(), Completed)
	assert.True(t, bytes.Equal(data, b.object("/demo-space/dir/photo.jpg")))

	ok, err := c.Exists(context.Background(), "dir/photo.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Exists(context.Background(), "dir/missing.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	dest := filepath.Join(t.TempDir(), "photo.jpg")
	rec = &recorder{}
	require.NoError(t, wait(t, c.Download(context.Background(), "dir/photo.jpg", dest, rec)))
	assertLifecycle(t, rec.all(), Completed)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestHTTPServerErrorIsNotRetried(t *testing.T) {
	b, srv := newBucketServer(t)
	b.status, b.code = http.StatusInternalServerError, "InternalError"
	c := newHTTPClient(t, srv)

	err := wait(t, c.Upload(context.Background(), "k.bin", payload(1024)))
	assert.ErrorIs(t, err, ErrRemote)
	assert.Equal(t, 1, b.count(http.MethodPut))

	dir := t.TempDir()
	err = wait(t, c.Download(context.Background(), "k.bin", filepath.Join(dir, "k.bin")))
	assert.ErrorIs(t, err, ErrRemote)
	assert.Equal(t, 1, b.count(http.MethodGet))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHTTPDownloadMissingKey(t *testing.T) {
	b, srv := newBucketServer(t)
	c := newHTTPClient(t, srv)
	dir := t.TempDir()
	rec := &recorder{}

	err := wait(t, c.Download(context.Background(), "nope.jpg", filepath.Join(dir, "nope.jpg"), rec))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, b.count(http.MethodGet))

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, Failed, events[1].State)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
