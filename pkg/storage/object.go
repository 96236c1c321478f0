package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"
)

var (
	// ErrObjectNotFound is returned when a key does not exist
	ErrObjectNotFound = errors.New("object not found")
	// ErrBucketNotFound is returned when a bucket does not exist
	ErrBucketNotFound = errors.New("bucket not found")
)

// MaxDeleteBatch is the largest key set a single DeleteObjects call accepts
const MaxDeleteBatch = 1000

// ObjectStore is the remote capability set used by transfers. Listings are
// lazy: breaking out of the range loop stops further page requests.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, opts PutOptions) error
	GetObject(ctx context.Context, bucket, key string) (*Object, error)
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteObjects removes the given objects in batches of MaxDeleteBatch
	// and returns the per-object failures. The error is reserved for
	// failures of a whole request.
	DeleteObjects(ctx context.Context, bucket string, objects []ObjectID) ([]DeleteError, error)

	ListObjects(ctx context.Context, bucket, prefix string, includeOwner bool) iter.Seq2[ObjectInfo, error]
	ListObjectVersions(ctx context.Context, bucket, prefix string) iter.Seq2[ObjectVersion, error]
}

// PutOptions carries optional upload attributes
type PutOptions struct {
	ContentType string
	Size        int64 // -1 when unknown
	Metadata    map[string]string
}

// Object is a downloaded object. The caller must close Body.
type Object struct {
	Key          string
	Body         io.ReadCloser
	Size         int64
	LastModified time.Time
	ETag         string
	Metadata     map[string]string
}

// ObjectInfo is one listing entry
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	StorageClass string
	Owner        string
}

// ObjectVersion is one entry of a version listing. Delete markers are
// reported with IsDeleteMarker set and no size.
type ObjectVersion struct {
	Key            string
	VersionID      string
	IsLatest       bool
	IsDeleteMarker bool
	LastModified   time.Time
	ETag           string
	Size           int64
	Owner          string
	StorageClass   string
}

// ObjectID addresses an object, or one version of it
type ObjectID struct {
	Key       string
	VersionID string
}

// DeleteError is a per-object failure from a bulk delete
type DeleteError struct {
	Key       string
	VersionID string
	Code      string
	Message   string
}

func (e DeleteError) Error() string {
	if e.VersionID != "" {
		return fmt.Sprintf("delete %s (version %s): %s %s", e.Key, e.VersionID, e.Code, e.Message)
	}
	return fmt.Sprintf("delete %s: %s %s", e.Key, e.Code, e.Message)
}

// StoreError adds the operation, bucket and key to a remote failure
type StoreError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("s3.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
