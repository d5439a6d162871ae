package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yourorg/spaces-transfer/internal/spaces"
	"github.com/yourorg/spaces-transfer/internal/storage"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	putErrs  map[string]error
	uploads  map[string]*multipartUpload
	parts    int
	calls    int
	blockGet bool
	// shortBy makes GetObject advertise more bytes than it sends.
	shortBy int64
}

var _ storage.API = (*fakeS3)(nil)

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: map[string][]byte{},
		types:   map[string]string{},
		putErrs: map[string]error{},
		uploads: map[string]*multipartUpload{},
	}
}

// multipartUpload collects parts until CompleteMultipartUpload assembles them.
type multipartUpload struct {
	key         string
	contentType string
	parts       map[int32][]byte
}

func (f *fakeS3) object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	return b, ok
}

func (f *fakeS3) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	f.calls++
	err := f.putErrs[aws.ToString(in.Key)]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{ETag: aws.String("etag")}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	f.calls++
	block := f.blockGet
	b, ok := f.objects[aws.ToString(in.Key)]
	short := f.shortBy
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: aws.Int64(int64(len(b)) + short),
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(b)))}, nil
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	id := fmt.Sprintf("upload-%d", len(f.uploads)+1)
	f.uploads[id] = &multipartUpload{
		key:         aws.ToString(in.Key),
		contentType: aws.ToString(in.ContentType),
		parts:       map[int32][]byte{},
	}
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (f *fakeS3) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	up, ok := f.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, &types.NoSuchUpload{}
	}
	n := aws.ToInt32(in.PartNumber)
	up.parts[n] = b
	f.parts++
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf("part-%d", n))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	id := aws.ToString(in.UploadId)
	up, ok := f.uploads[id]
	if !ok {
		return nil, &types.NoSuchUpload{}
	}
	nums := make([]int, 0, len(up.parts))
	for n := range up.parts {
		nums = append(nums, int(n))
	}
	sort.Ints(nums)
	var buf bytes.Buffer
	for _, n := range nums {
		buf.Write(up.parts[int32(n)])
	}
	f.objects[up.key] = buf.Bytes()
	f.types[up.key] = up.contentType
	delete(f.uploads, id)
	return &s3.CompleteMultipartUploadOutput{Key: aws.String(up.key)}, nil
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, aws.ToString(in.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) partCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parts
}

// recorder collects events in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func testConfig() Config {
	return Config{
		Credentials: spaces.NewCredentials("AK", "SK"),
		Region:      spaces.SFO,
		Bucket:      "demo-space",
	}
}
