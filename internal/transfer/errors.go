package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound indicates the object does not exist in the bucket.
	ErrNotFound = errors.New("object not found")
	// ErrAccessDenied covers rejected or invalid credentials.
	ErrAccessDenied = errors.New("access denied")
	// ErrCanceled indicates the transfer was canceled before finishing.
	ErrCanceled = errors.New("transfer canceled")
	// ErrInvalidInput indicates an empty key or payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLocalIO indicates a failure reading or writing local files.
	ErrLocalIO = errors.New("local i/o error")
	// ErrRemote is any other storage or network failure.
	ErrRemote = errors.New("remote error")
)

// ConfigurationError is returned synchronously when a client cannot be built.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) hold for every ConfigurationError.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// TransferError is the error carried by a Failed transfer.
type TransferError struct {
	Op     string // "upload" or "download"
	Bucket string
	Key    string
	// Kind is one of the sentinel errors above.
	Kind error
	Err  error
}

func (e *TransferError) Error() string {
	if e.Err == nil || e.Err == e.Kind {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Kind)
	}
	return fmt.Sprintf("%s %s/%s: %v: %v", e.Op, e.Bucket, e.Key, e.Kind, e.Err)
}

func (e *TransferError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newTransferError(op, bucket, key string, kind, err error) *TransferError {
	return &TransferError{Op: op, Bucket: bucket, Key: key, Kind: kind, Err: err}
}

// classify maps an SDK error onto a Kind.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return ErrCanceled
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return ErrNotFound
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden":
			return ErrAccessDenied
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			return ErrAccessDenied
		}
	}
	return ErrRemote
}

// KindOf returns the Kind of a TransferError, or nil.
func KindOf(err error) error {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return nil
}
