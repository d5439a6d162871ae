// Package transfer uploads and downloads single objects to a Spaces bucket
// in the background and reports progress and outcome to observers.
//
// Each Upload or Download call runs on its own goroutine and returns a
// *Transfer immediately. Observers for a transfer are called on that
// goroutine, one event at a time, in state-machine order:
// Pending, zero or more InProgress, then Completed or Failed.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/spaces-transfer/internal/spaces"
	"github.com/yourorg/spaces-transfer/internal/storage"
)

// Config is what a Client needs to address a bucket.
type Config struct {
	Credentials spaces.Credentials
	Region      spaces.Region
	Bucket      string
}

// Validate returns a *ConfigurationError for the first missing field.
func (c Config) Validate() error {
	if err := c.Credentials.Validate(); err != nil {
		return &ConfigurationError{Field: "credentials", Err: err}
	}
	if c.Bucket == "" {
		return &ConfigurationError{Field: "bucket", Err: errors.New("bucket name is empty")}
	}
	if c.Region.IsZero() {
		return &ConfigurationError{Field: "region", Err: errors.New("region is not set")}
	}
	return nil
}

// Client runs transfers against one bucket. It is safe for concurrent use;
// transfers share only the read-only configuration.
type Client struct {
	cfg       Config
	api       storage.API
	uploader  *manager.Uploader
	log       *zap.Logger
	observers []Observer
}

type clientOptions struct {
	api        storage.API
	log        *zap.Logger
	observers  []Observer
	storageOps []storage.Option
	partSize   int64
}

// Option configures a Client.
type Option func(*clientOptions)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.log = l }
}

// WithAPI replaces the S3 client built from Config.
func WithAPI(api storage.API) Option {
	return func(o *clientOptions) { o.api = api }
}

// WithObserver adds an observer that receives events of every transfer.
func WithObserver(obs Observer) Option {
	return func(o *clientOptions) { o.observers = append(o.observers, obs) }
}

// WithEndpoint overrides the region endpoint.
func WithEndpoint(url string, pathStyle bool) Option {
	return func(o *clientOptions) {
		o.storageOps = append(o.storageOps, storage.WithEndpoint(url), storage.WithPathStyle(pathStyle))
	}
}

// WithPartSize sets the uploader buffer size; payloads above it are sent by
// the SDK in several parts.
func WithPartSize(n int64) Option {
	return func(o *clientOptions) { o.partSize = n }
}

// NewClient validates cfg and builds a client. It does no network I/O.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := clientOptions{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.api == nil {
		api, err := storage.NewS3(context.Background(), cfg.Credentials, cfg.Region, o.storageOps...)
		if err != nil {
			return nil, &ConfigurationError{Field: "storage", Err: err}
		}
		o.api = api
	}
	uploader := manager.NewUploader(o.api, func(u *manager.Uploader) {
		u.Concurrency = 1
		if o.partSize >= manager.MinUploadPartSize {
			u.PartSize = o.partSize
		}
	})
	return &Client{
		cfg:       cfg,
		api:       o.api,
		uploader:  uploader,
		log:       o.log.With(zap.String("bucket", cfg.Bucket), zap.String("region", cfg.Region.Code())),
		observers: o.observers,
	}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.cfg.Bucket }

// Region returns the configured region.
func (c *Client) Region() spaces.Region { return c.cfg.Region }

func (c *Client) start(ctx context.Context, key string, dir Direction, extra []Observer) (*Transfer, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	observers := make([]Observer, 0, len(c.observers)+len(extra)+1)
	observers = append(observers, c.observers...)
	observers = append(observers, extra...)
	t := newTransfer(uuid.NewString(), c.cfg.Bucket, key, dir, cancel, observers)
	t.observers = append(t.observers, ObserverFunc(c.logEvent))
	return t, ctx
}

// Upload stores data under key. Errors, including an empty key or payload,
// are reported through the returned Transfer.
func (c *Client) Upload(ctx context.Context, key string, data []byte, observers ...Observer) *Transfer {
	t, ctx := c.start(ctx, key, Upload, observers)
	go func() {
		defer t.cancel()
		t.pending()
		if err := c.upload(ctx, t, data); err != nil {
			t.fail(err)
			return
		}
		t.complete("", int64(len(data)))
	}()
	return t
}

func (c *Client) upload(ctx context.Context, t *Transfer, data []byte) error {
	const op = "upload"
	if t.key == "" || len(data) == 0 {
		return newTransferError(op, c.cfg.Bucket, t.key, ErrInvalidInput, errors.New("key and data must be non-empty"))
	}
	if err := ctx.Err(); err != nil {
		return newTransferError(op, c.cfg.Bucket, t.key, ErrCanceled, err)
	}
	total := int64(len(data))
	t.progress(0, total)
	body := &progressReader{r: bytes.NewReader(data), t: t, total: total}
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(t.key),
		Body:        body,
		ContentType: aws.String(mimetype.Detect(data).String()),
	})
	if err != nil {
		return newTransferError(op, c.cfg.Bucket, t.key, classify(err), err)
	}
	return nil
}

// UploadFile reads path and uploads its contents under key. A read failure
// is reported through the returned Transfer as ErrLocalIO.
func (c *Client) UploadFile(ctx context.Context, key, path string, observers ...Observer) *Transfer {
	data, err := os.ReadFile(path)
	if err != nil {
		t, _ := c.start(ctx, key, Upload, observers)
		go func() {
			defer t.cancel()
			t.pending()
			t.fail(newTransferError("upload", c.cfg.Bucket, key, ErrLocalIO, err))
		}()
		return t
	}
	return c.Upload(ctx, key, data, observers...)
}

// Download fetches key into destination. Bytes are written to a temporary
// file next to destination and renamed into place only on success, so a
// failed download never leaves a partial destination behind.
func (c *Client) Download(ctx context.Context, key, destination string, observers ...Observer) *Transfer {
	t, ctx := c.start(ctx, key, Download, observers)
	go func() {
		defer t.cancel()
		t.pending()
		n, err := c.download(ctx, t, destination)
		if err != nil {
			t.fail(err)
			return
		}
		t.complete(destination, n)
	}()
	return t
}

func (c *Client) download(ctx context.Context, t *Transfer, destination string) (int64, error) {
	const op = "download"
	if t.key == "" || destination == "" {
		return 0, newTransferError(op, c.cfg.Bucket, t.key, ErrInvalidInput, errors.New("key and destination must be non-empty"))
	}
	if err := ctx.Err(); err != nil {
		return 0, newTransferError(op, c.cfg.Bucket, t.key, ErrCanceled, err)
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(t.key),
	})
	if err != nil {
		return 0, newTransferError(op, c.cfg.Bucket, t.key, classify(err), err)
	}
	defer out.Body.Close()
	total := aws.ToInt64(out.ContentLength)
	t.progress(0, total)

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return 0, newTransferError(op, c.cfg.Bucket, t.key, ErrLocalIO, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destination), "."+filepath.Base(destination)+".part-*")
	if err != nil {
		return 0, newTransferError(op, c.cfg.Bucket, t.key, ErrLocalIO, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, &progressReader{r: out.Body, t: t, total: total})
	if err != nil {
		var kind error = ErrRemote
		if ctx.Err() != nil {
			kind = ErrCanceled
		}
		return n, newTransferError(op, c.cfg.Bucket, t.key, kind, err)
	}
	if total > 0 && n != total {
		return n, newTransferError(op, c.cfg.Bucket, t.key, ErrRemote,
			fmt.Errorf("short body: got %d of %d bytes", n, total))
	}
	if err := tmp.Close(); err != nil {
		return n, newTransferError(op, c.cfg.Bucket, t.key, ErrLocalIO, err)
	}
	if err := os.Rename(tmpName, destination); err != nil {
		return n, newTransferError(op, c.cfg.Bucket, t.key, ErrLocalIO, err)
	}
	committed = true
	return n, nil
}

// Exists reports whether key is present in the bucket. Unlike Upload and
// Download it is synchronous.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	kind := classify(err)
	if kind == ErrNotFound {
		return false, nil
	}
	return false, newTransferError("head", c.cfg.Bucket, key, kind, err)
}

func (c *Client) logEvent(e Event) {
	fields := []zap.Field{
		zap.String("transfer_id", e.TransferID),
		zap.String("key", e.Key),
		zap.Stringer("direction", e.Direction),
	}
	switch e.State {
	case Pending:
		c.log.Info("transfer started", fields...)
	case InProgress:
		c.log.Debug("transfer progress", append(fields,
			zap.Int64("bytes_current", e.BytesCurrent),
			zap.Int64("bytes_total", e.BytesTotal),
			zap.Float64("percent", e.Percent()))...)
	case Completed:
		c.log.Info("transfer completed", append(fields,
			zap.Int64("bytes", e.BytesCurrent),
			zap.String("path", e.Path))...)
	case Failed:
		c.log.Error("transfer failed", append(fields, zap.Error(e.Err))...)
	}
}
