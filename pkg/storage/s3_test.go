package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bucketsync/internal/testutil"
	"github.com/sdejongh/bucketsync/pkg/storage"
)

func TestS3StorePutObject(t *testing.T) {
	var captured *s3.PutObjectInput
	var body []byte
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			captured = params
			data, err := io.ReadAll(params.Body)
			require.NoError(t, err)
			body = data
			return &s3.PutObjectOutput{}, nil
		},
	}

	store := storage.NewS3Store(mock)
	err := store.PutObject(context.Background(), "bucket", "dir/file.txt", bytes.NewReader([]byte("hello")), storage.PutOptions{
		ContentType: "text/plain; charset=utf-8",
		Size:        5,
		Metadata:    map[string]string{"mtime": "1700000000"},
	})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "bucket", aws.ToString(captured.Bucket))
	assert.Equal(t, "dir/file.txt", aws.ToString(captured.Key))
	assert.Equal(t, "text/plain; charset=utf-8", aws.ToString(captured.ContentType))
	assert.Equal(t, "1700000000", captured.Metadata["mtime"])
	assert.Equal(t, "hello", string(body))
}

func TestS3StoreGetObject(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns body and attributes", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				assert.Equal(t, "bucket", aws.ToString(params.Bucket))
				assert.Equal(t, "key", aws.ToString(params.Key))
				return &s3.GetObjectOutput{
					Body:          io.NopCloser(bytes.NewReader([]byte("data"))),
					ContentLength: aws.Int64(4),
					LastModified:  aws.Time(modified),
					ETag:          aws.String("\"etag\""),
				}, nil
			},
		}

		obj, err := storage.NewS3Store(mock).GetObject(context.Background(), "bucket", "key")
		require.NoError(t, err)
		defer obj.Body.Close()

		data, err := io.ReadAll(obj.Body)
		require.NoError(t, err)
		assert.Equal(t, "data", string(data))
		assert.Equal(t, int64(4), obj.Size)
		assert.True(t, modified.Equal(obj.LastModified))
		assert.Equal(t, "\"etag\"", obj.ETag)
	})

	t.Run("maps missing key", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."}
			},
		}

		_, err := storage.NewS3Store(mock).GetObject(context.Background(), "bucket", "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)

		var storeErr *storage.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "get", storeErr.Op)
		assert.Equal(t, "missing", storeErr.Key)
	})

	t.Run("maps missing bucket", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "NoSuchBucket"}
			},
		}

		_, err := storage.NewS3Store(mock).GetObject(context.Background(), "nope", "key")
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})

	t.Run("keeps other errors", func(t *testing.T) {
		boom := errors.New("connection reset")
		mock := &testutil.MockS3Client{
			GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return nil, boom
			},
		}

		_, err := storage.NewS3Store(mock).GetObject(context.Background(), "bucket", "key")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, storage.ErrObjectNotFound)
	})
}

func TestS3StoreCopyObject(t *testing.T) {
	mock := &testutil.MockS3Client{
		CopyObjectFunc: func(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
			assert.Equal(t, "dst-bucket", aws.ToString(params.Bucket))
			assert.Equal(t, "dst-key", aws.ToString(params.Key))
			assert.Equal(t, "src-bucket%2Fsrc-key", aws.ToString(params.CopySource))
			return &s3.CopyObjectOutput{}, nil
		},
	}

	err := storage.NewS3Store(mock).CopyObject(context.Background(), "src-bucket", "src-key", "dst-bucket", "dst-key")
	assert.NoError(t, err)
}

func TestS3StoreDeleteObjects(t *testing.T) {
	t.Run("splits into batches", func(t *testing.T) {
		var batchSizes []int
		mock := &testutil.MockS3Client{
			DeleteObjectsFunc: func(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
				batchSizes = append(batchSizes, len(params.Delete.Objects))
				assert.True(t, aws.ToBool(params.Delete.Quiet))
				return &s3.DeleteObjectsOutput{}, nil
			},
		}

		objects := make([]storage.ObjectID, 2500)
		for i := range objects {
			objects[i] = storage.ObjectID{Key: fmt.Sprintf("key-%04d", i)}
		}

		failures, err := storage.NewS3Store(mock).DeleteObjects(context.Background(), "bucket", objects)
		require.NoError(t, err)
		assert.Empty(t, failures)
		assert.Equal(t, []int{1000, 1000, 500}, batchSizes)
	})

	t.Run("reports per-key failures", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			DeleteObjectsFunc: func(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
				assert.Equal(t, "v1", aws.ToString(params.Delete.Objects[0].VersionId))
				return &s3.DeleteObjectsOutput{
					Errors: []types.Error{{
						Key:       aws.String("a"),
						VersionId: aws.String("v1"),
						Code:      aws.String("AccessDenied"),
						Message:   aws.String("Access Denied"),
					}},
				}, nil
			},
		}

		failures, err := storage.NewS3Store(mock).DeleteObjects(context.Background(), "bucket", []storage.ObjectID{
			{Key: "a", VersionID: "v1"},
			{Key: "b"},
		})
		require.NoError(t, err)
		require.Len(t, failures, 1)
		assert.Equal(t, "a", failures[0].Key)
		assert.Equal(t, "AccessDenied", failures[0].Code)
		assert.Contains(t, failures[0].Error(), "version v1")
	})

	t.Run("request failure", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			DeleteObjectsFunc: func(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "NoSuchBucket"}
			},
		}

		_, err := storage.NewS3Store(mock).DeleteObjects(context.Background(), "bucket", []storage.ObjectID{{Key: "a"}})
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestS3StoreListObjects(t *testing.T) {
	pagedMock := func(calls *int) *testutil.MockS3Client {
		return &testutil.MockS3Client{
			ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
				*calls++
				assert.Equal(t, "dir/", aws.ToString(params.Prefix))
				if params.ContinuationToken == nil {
					return &s3.ListObjectsV2Output{
						Contents: []types.Object{
							{Key: aws.String("dir/a"), Size: aws.Int64(1), StorageClass: types.ObjectStorageClassStandard},
							{Key: aws.String("dir/b"), Size: aws.Int64(2), Owner: &types.Owner{DisplayName: aws.String("alice")}},
						},
						IsTruncated:           aws.Bool(true),
						NextContinuationToken: aws.String("page-2"),
					}, nil
				}
				assert.Equal(t, "page-2", aws.ToString(params.ContinuationToken))
				return &s3.ListObjectsV2Output{
					Contents:    []types.Object{{Key: aws.String("dir/c"), Size: aws.Int64(3)}},
					IsTruncated: aws.Bool(false),
				}, nil
			},
		}
	}

	t.Run("walks every page", func(t *testing.T) {
		calls := 0
		store := storage.NewS3Store(pagedMock(&calls))

		var keys []string
		var owners []string
		for info, err := range store.ListObjects(context.Background(), "bucket", "dir/", true) {
			require.NoError(t, err)
			keys = append(keys, info.Key)
			owners = append(owners, info.Owner)
		}

		assert.Equal(t, []string{"dir/a", "dir/b", "dir/c"}, keys)
		assert.Equal(t, []string{"", "alice", ""}, owners)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops fetching when the consumer breaks", func(t *testing.T) {
		calls := 0
		store := storage.NewS3Store(pagedMock(&calls))

		for info, err := range store.ListObjects(context.Background(), "bucket", "dir/", false) {
			require.NoError(t, err)
			assert.Equal(t, "dir/a", info.Key)
			break
		}
		assert.Equal(t, 1, calls)
	})

	t.Run("yields the listing error", func(t *testing.T) {
		mock := &testutil.MockS3Client{
			ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
				assert.Nil(t, params.Prefix)
				return nil, &smithy.GenericAPIError{Code: "NoSuchBucket"}
			},
		}

		var errs []error
		for _, err := range storage.NewS3Store(mock).ListObjects(context.Background(), "missing", "", false) {
			errs = append(errs, err)
		}
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], storage.ErrBucketNotFound)
	})
}

func TestS3StoreListObjectVersions(t *testing.T) {
	calls := 0
	mock := &testutil.MockS3Client{
		ListObjectVersionsFunc: func(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
			calls++
			if calls == 1 {
				assert.Nil(t, params.KeyMarker)
				return &s3.ListObjectVersionsOutput{
					Versions: []types.ObjectVersion{
						{Key: aws.String("a"), VersionId: aws.String("v2"), IsLatest: aws.Bool(true), Size: aws.Int64(10)},
						{Key: aws.String("a"), VersionId: aws.String("v1"), IsLatest: aws.Bool(false), Size: aws.Int64(8)},
					},
					IsTruncated:         aws.Bool(true),
					NextKeyMarker:       aws.String("a"),
					NextVersionIdMarker: aws.String("v1"),
				}, nil
			}
			assert.Equal(t, "a", aws.ToString(params.KeyMarker))
			assert.Equal(t, "v1", aws.ToString(params.VersionIdMarker))
			return &s3.ListObjectVersionsOutput{
				DeleteMarkers: []types.DeleteMarkerEntry{
					{Key: aws.String("b"), VersionId: aws.String("m1"), IsLatest: aws.Bool(true)},
				},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	}

	var versions []storage.ObjectVersion
	for v, err := range storage.NewS3Store(mock).ListObjectVersions(context.Background(), "bucket", "") {
		require.NoError(t, err)
		versions = append(versions, v)
	}

	require.Len(t, versions, 3)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "v2", versions[0].VersionID)
	assert.True(t, versions[0].IsLatest)
	assert.Equal(t, int64(8), versions[1].Size)
	assert.Equal(t, "b", versions[2].Key)
	assert.True(t, versions[2].IsDeleteMarker)
}
