package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/sdejongh/bucketsync/internal/s3api"
)

// S3Store implements ObjectStore on top of the AWS SDK
type S3Store struct {
	client   s3api.S3API
	uploader *manager.Uploader
}

// NewS3Store wraps an S3 client. Uploads go through a manager.Uploader,
// which switches to multipart for large bodies.
func NewS3Store(client s3api.S3API) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// PutObject uploads body under key
func (s *S3Store) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts PutOptions) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return storeError("put", bucket, key, err)
	}
	return nil
}

// GetObject starts a download of key
func (s *S3Store) GetObject(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, storeError("get", bucket, key, err)
	}

	return &Object{
		Key:          key,
		Body:         out.Body,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
		Metadata:     out.Metadata,
	}, nil
}

// CopyObject performs a server-side copy
func (s *S3Store) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(url.PathEscape(srcBucket + "/" + srcKey)),
	})
	if err != nil {
		return storeError("copy", dstBucket, dstKey, err)
	}
	return nil
}

// DeleteObject removes one object
func (s *S3Store) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return storeError("delete", bucket, key, err)
	}
	return nil
}

// DeleteObjects removes objects in batches and collects per-key failures
func (s *S3Store) DeleteObjects(ctx context.Context, bucket string, objects []ObjectID) ([]DeleteError, error) {
	var failures []DeleteError

	for start := 0; start < len(objects); start += MaxDeleteBatch {
		end := min(start+MaxDeleteBatch, len(objects))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, obj := range objects[start:end] {
			id := types.ObjectIdentifier{Key: aws.String(obj.Key)}
			if obj.VersionID != "" {
				id.VersionId = aws.String(obj.VersionID)
			}
			ids = append(ids, id)
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return failures, storeError("deleteObjects", bucket, "", err)
		}

		for _, e := range out.Errors {
			failures = append(failures, DeleteError{
				Key:       aws.ToString(e.Key),
				VersionID: aws.ToString(e.VersionId),
				Code:      aws.ToString(e.Code),
				Message:   aws.ToString(e.Message),
			})
		}
	}

	return failures, nil
}

// ListObjects pages through every object under prefix
func (s *S3Store) ListObjects(ctx context.Context, bucket, prefix string, includeOwner bool) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
		}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}
		if includeOwner {
			input.FetchOwner = aws.Bool(true)
		}

		paginator := s3.NewListObjectsV2Paginator(s.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(ObjectInfo{}, storeError("list", bucket, "", err))
				return
			}

			for _, obj := range page.Contents {
				info := ObjectInfo{
					Key:          aws.ToString(obj.Key),
					Size:         aws.ToInt64(obj.Size),
					LastModified: aws.ToTime(obj.LastModified),
					ETag:         aws.ToString(obj.ETag),
					StorageClass: string(obj.StorageClass),
					Owner:        ownerName(obj.Owner),
				}
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}

// ListObjectVersions pages through every version and delete marker under prefix
func (s *S3Store) ListObjectVersions(ctx context.Context, bucket, prefix string) iter.Seq2[ObjectVersion, error] {
	return func(yield func(ObjectVersion, error) bool) {
		input := &s3.ListObjectVersionsInput{
			Bucket: aws.String(bucket),
		}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}

		for {
			page, err := s.client.ListObjectVersions(ctx, input)
			if err != nil {
				yield(ObjectVersion{}, storeError("listVersions", bucket, "", err))
				return
			}

			for _, v := range page.Versions {
				version := ObjectVersion{
					Key:          aws.ToString(v.Key),
					VersionID:    aws.ToString(v.VersionId),
					IsLatest:     aws.ToBool(v.IsLatest),
					LastModified: aws.ToTime(v.LastModified),
					ETag:         aws.ToString(v.ETag),
					Size:         aws.ToInt64(v.Size),
					Owner:        ownerName(v.Owner),
					StorageClass: string(v.StorageClass),
				}
				if !yield(version, nil) {
					return
				}
			}

			for _, m := range page.DeleteMarkers {
				marker := ObjectVersion{
					Key:            aws.ToString(m.Key),
					VersionID:      aws.ToString(m.VersionId),
					IsLatest:       aws.ToBool(m.IsLatest),
					IsDeleteMarker: true,
					LastModified:   aws.ToTime(m.LastModified),
					Owner:          ownerName(m.Owner),
				}
				if !yield(marker, nil) {
					return
				}
			}

			if !aws.ToBool(page.IsTruncated) {
				return
			}
			input.KeyMarker = page.NextKeyMarker
			input.VersionIdMarker = page.NextVersionIdMarker
		}
	}
}

func ownerName(owner *types.Owner) string {
	if owner == nil {
		return ""
	}
	if name := aws.ToString(owner.DisplayName); name != "" {
		return name
	}
	return aws.ToString(owner.ID)
}

// storeError attaches context and maps well-known API codes to sentinels
func storeError(op, bucket, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			err = fmt.Errorf("%w: %w", ErrObjectNotFound, err)
		case "NoSuchBucket":
			err = fmt.Errorf("%w: %w", ErrBucketNotFound, err)
		}
	}
	return &StoreError{Op: op, Bucket: bucket, Key: key, Err: err}
}

var _ ObjectStore = (*S3Store)(nil)
