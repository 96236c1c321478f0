package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"maps"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sdejongh/bucketsync/pkg/storage"
)

type memVersion struct {
	id           string
	data         []byte
	lastModified time.Time
	contentType  string
	metadata     map[string]string
	deleteMarker bool
}

// MemoryStore is an in-memory storage.ObjectStore. Every bucket keeps a
// version history per key; the current object is the newest version that
// is not a delete marker.
type MemoryStore struct {
	// Versioned makes DeleteObject without a version id add a delete
	// marker instead of dropping the whole history.
	Versioned bool

	// FailOn, when set, is consulted before every operation. A non-nil
	// return fails the operation (or, for DeleteObjects, that one key).
	FailOn func(op, bucket, key string) error

	// Now stamps uploads and copies. Defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	buckets map[string]map[string][]*memVersion
	calls   map[string]int
	nextID  int
}

// NewMemoryStore creates a store with the given empty buckets
func NewMemoryStore(buckets ...string) *MemoryStore {
	m := &MemoryStore{
		buckets: make(map[string]map[string][]*memVersion),
		calls:   make(map[string]int),
	}
	for _, b := range buckets {
		m.buckets[b] = make(map[string][]*memVersion)
	}
	return m
}

// SetObject stores data under key with an explicit modification time
func (m *MemoryStore) SetObject(bucket, key string, data []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(bucket, key, &memVersion{data: data, lastModified: modTime})
}

// Object returns the current content of key
func (m *MemoryStore) Object(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.currentLocked(bucket, key)
	if v == nil {
		return nil, false
	}
	return v.data, true
}

// ContentType returns the content type recorded for key
func (m *MemoryStore) ContentType(bucket, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.currentLocked(bucket, key); v != nil {
		return v.contentType
	}
	return ""
}

// Metadata returns the user metadata recorded for key
func (m *MemoryStore) Metadata(bucket, key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.currentLocked(bucket, key); v != nil {
		return v.metadata
	}
	return nil
}

// Keys returns the sorted keys that currently exist in bucket
func (m *MemoryStore) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.buckets[bucket] {
		if m.currentLocked(bucket, key) != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// VersionCount returns the number of versions and delete markers in bucket
func (m *MemoryStore) VersionCount(bucket string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, history := range m.buckets[bucket] {
		n += len(history)
	}
	return n
}

// Calls returns how many times op was invoked
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MemoryStore) enter(op, bucket, key string) error {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()

	if m.FailOn != nil {
		if err := m.FailOn(op, bucket, key); err != nil {
			return &storage.StoreError{Op: op, Bucket: bucket, Key: key, Err: err}
		}
	}
	return nil
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStore) putLocked(bucket, key string, v *memVersion) {
	if m.buckets[bucket] == nil {
		m.buckets[bucket] = make(map[string][]*memVersion)
	}
	m.nextID++
	v.id = strconv.Itoa(m.nextID)
	if !m.Versioned {
		m.buckets[bucket][key] = []*memVersion{v}
		return
	}
	m.buckets[bucket][key] = append(m.buckets[bucket][key], v)
}

func (m *MemoryStore) currentLocked(bucket, key string) *memVersion {
	history := m.buckets[bucket][key]
	if len(history) == 0 {
		return nil
	}
	latest := history[len(history)-1]
	if latest.deleteMarker {
		return nil
	}
	return latest
}

// PutObject reads body fully and stores it
func (m *MemoryStore) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts storage.PutOptions) error {
	if err := m.enter("put", bucket, key); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return &storage.StoreError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(bucket, key, &memVersion{
		data:         data,
		lastModified: m.now(),
		contentType:  opts.ContentType,
		metadata:     opts.Metadata,
	})
	return nil
}

// GetObject returns the current content of key
func (m *MemoryStore) GetObject(ctx context.Context, bucket, key string) (*storage.Object, error) {
	if err := m.enter("get", bucket, key); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		return nil, &storage.StoreError{Op: "get", Bucket: bucket, Key: key, Err: storage.ErrBucketNotFound}
	}
	v := m.currentLocked(bucket, key)
	if v == nil {
		return nil, &storage.StoreError{Op: "get", Bucket: bucket, Key: key, Err: storage.ErrObjectNotFound}
	}
	return &storage.Object{
		Key:          key,
		Body:         io.NopCloser(bytes.NewReader(v.data)),
		Size:         int64(len(v.data)),
		LastModified: v.lastModified,
		ETag:         etag(v),
		Metadata:     maps.Clone(v.metadata),
	}, nil
}

// CopyObject duplicates the current content of a key
func (m *MemoryStore) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := m.enter("copy", dstBucket, dstKey); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.currentLocked(srcBucket, srcKey)
	if src == nil {
		return &storage.StoreError{Op: "copy", Bucket: srcBucket, Key: srcKey, Err: storage.ErrObjectNotFound}
	}
	m.putLocked(dstBucket, dstKey, &memVersion{
		data:         append([]byte(nil), src.data...),
		lastModified: m.now(),
		contentType:  src.contentType,
		metadata:     src.metadata,
	})
	return nil
}

// DeleteObject removes key, or hides it behind a delete marker when versioned
func (m *MemoryStore) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := m.enter("delete", bucket, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(bucket, storage.ObjectID{Key: key})
	return nil
}

func (m *MemoryStore) deleteLocked(bucket string, obj storage.ObjectID) {
	history := m.buckets[bucket][obj.Key]
	if obj.VersionID == "" {
		if m.Versioned {
			m.putLocked(bucket, obj.Key, &memVersion{deleteMarker: true, lastModified: m.now()})
			return
		}
		delete(m.buckets[bucket], obj.Key)
		return
	}

	for i, v := range history {
		if v.id == obj.VersionID {
			history = append(history[:i], history[i+1:]...)
			break
		}
	}
	if len(history) == 0 {
		delete(m.buckets[bucket], obj.Key)
		return
	}
	m.buckets[bucket][obj.Key] = history
}

// DeleteObjects removes every object, reporting FailOn rejections per key
func (m *MemoryStore) DeleteObjects(ctx context.Context, bucket string, objects []storage.ObjectID) ([]storage.DeleteError, error) {
	var failures []storage.DeleteError
	for start := 0; start < len(objects); start += storage.MaxDeleteBatch {
		end := min(start+storage.MaxDeleteBatch, len(objects))
		if err := m.enter("deleteObjects", bucket, ""); err != nil {
			return failures, err
		}

		for _, obj := range objects[start:end] {
			if m.FailOn != nil {
				if err := m.FailOn("deleteKey", bucket, obj.Key); err != nil {
					failures = append(failures, storage.DeleteError{
						Key:       obj.Key,
						VersionID: obj.VersionID,
						Code:      "AccessDenied",
						Message:   err.Error(),
					})
					continue
				}
			}
			m.mu.Lock()
			m.deleteLocked(bucket, obj)
			m.mu.Unlock()
		}
	}
	return failures, nil
}

// ListObjects yields the current objects under prefix in key order
func (m *MemoryStore) ListObjects(ctx context.Context, bucket, prefix string, includeOwner bool) iter.Seq2[storage.ObjectInfo, error] {
	return func(yield func(storage.ObjectInfo, error) bool) {
		if err := m.enter("list", bucket, prefix); err != nil {
			yield(storage.ObjectInfo{}, err)
			return
		}

		m.mu.Lock()
		if _, ok := m.buckets[bucket]; !ok {
			m.mu.Unlock()
			yield(storage.ObjectInfo{}, &storage.StoreError{Op: "list", Bucket: bucket, Err: storage.ErrBucketNotFound})
			return
		}
		var infos []storage.ObjectInfo
		for key := range m.buckets[bucket] {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			v := m.currentLocked(bucket, key)
			if v == nil {
				continue
			}
			info := storage.ObjectInfo{
				Key:          key,
				Size:         int64(len(v.data)),
				LastModified: v.lastModified,
				ETag:         etag(v),
				StorageClass: "STANDARD",
			}
			if includeOwner {
				info.Owner = "owner"
			}
			infos = append(infos, info)
		}
		m.mu.Unlock()

		sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
		for _, info := range infos {
			if ctx.Err() != nil {
				yield(storage.ObjectInfo{}, ctx.Err())
				return
			}
			if !yield(info, nil) {
				return
			}
		}
	}
}

// ListObjectVersions yields every version and delete marker under prefix
func (m *MemoryStore) ListObjectVersions(ctx context.Context, bucket, prefix string) iter.Seq2[storage.ObjectVersion, error] {
	return func(yield func(storage.ObjectVersion, error) bool) {
		if err := m.enter("listVersions", bucket, prefix); err != nil {
			yield(storage.ObjectVersion{}, err)
			return
		}

		m.mu.Lock()
		if _, ok := m.buckets[bucket]; !ok {
			m.mu.Unlock()
			yield(storage.ObjectVersion{}, &storage.StoreError{Op: "listVersions", Bucket: bucket, Err: storage.ErrBucketNotFound})
			return
		}
		var versions []storage.ObjectVersion
		for key, history := range m.buckets[bucket] {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			for i, v := range history {
				versions = append(versions, storage.ObjectVersion{
					Key:            key,
					VersionID:      v.id,
					IsLatest:       i == len(history)-1,
					IsDeleteMarker: v.deleteMarker,
					LastModified:   v.lastModified,
					ETag:           etag(v),
					Size:           int64(len(v.data)),
					StorageClass:   "STANDARD",
				})
			}
		}
		m.mu.Unlock()

		sort.SliceStable(versions, func(i, j int) bool { return versions[i].Key < versions[j].Key })
		for _, v := range versions {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func etag(v *memVersion) string {
	if v.deleteMarker {
		return ""
	}
	return fmt.Sprintf("\"%x\"", len(v.data))
}

var _ storage.ObjectStore = (*MemoryStore)(nil)
