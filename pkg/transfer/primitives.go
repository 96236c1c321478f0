package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/ratelimit"
	"github.com/sdejongh/bucketsync/pkg/resource"
	"github.com/sdejongh/bucketsync/pkg/storage"
)

// sniffLen is how much of a file is read to detect its content type
const sniffLen = 3072

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond
	progressReportBytes    = 64 * 1024
)

// progressReader counts bytes and reports them at most every 64KB or 50ms,
// and always on the final read
type progressReader struct {
	reader         io.Reader
	source         string
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
	}
	if pr.onProgress != nil && pr.read > pr.lastReported {
		if pr.read-pr.lastReported >= progressReportBytes ||
			time.Since(pr.lastReportTime) >= progressReportInterval ||
			err != nil {
			pr.onProgress(pr.source, pr.read)
			pr.lastReported = pr.read
			pr.lastReportTime = time.Now()
		}
	}
	return n, err
}

// stream wraps r for cancellation, bandwidth and progress
func (o *Orchestrator) stream(ctx context.Context, r io.Reader, source string) *progressReader {
	return &progressReader{
		reader:         ratelimit.NewReader(ctx, r, o.limiter),
		source:         source,
		lastReportTime: time.Now(),
		onProgress:     o.progress,
	}
}

// TransferFile copies one file or object to another. All four location
// pairs are supported; both descriptors must address a single file.
func (o *Orchestrator) TransferFile(ctx context.Context, src, dst resource.Descriptor) models.TransferOutcome {
	var (
		n   int64
		err error
	)

	if err = ctx.Err(); err == nil {
		switch {
		case src.Location == resource.Local && dst.Location == resource.Remote:
			n, err = o.upload(ctx, src.Resource, dst.Bucket, dst.Resource)
		case src.Location == resource.Remote && dst.Location == resource.Local:
			n, err = o.download(ctx, src.Bucket, src.Resource, dst.Resource)
		case src.Location == resource.Local && dst.Location == resource.Local:
			n, err = o.copyLocal(ctx, src.Resource, dst.Resource)
		default:
			n, err = o.copyRemote(ctx, src.Bucket, src.Resource, dst.Bucket, dst.Resource)
		}
	}

	return models.NewOutcome(models.OutcomeCopy, src.String(), dst.String(), n, err)
}

func (o *Orchestrator) upload(ctx context.Context, path, bucket, key string) (int64, error) {
	info, err := o.fs.Stat(ctx, path)
	if err != nil {
		return 0, err
	}
	if info.IsDir {
		return 0, models.NewArgumentError(models.ErrOperationNotSupported, path)
	}

	file, err := o.fs.Read(ctx, path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	headLen, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	head = head[:headLen]

	opts := storage.PutOptions{
		ContentType: mimetype.Detect(head).String(),
		Size:        info.Size,
	}
	if o.preserveTimestamps {
		opts.Metadata = map[string]string{
			MetadataModTime: strconv.FormatInt(info.ModTime.Unix(), 10),
		}
	}

	body := o.stream(ctx, io.MultiReader(bytes.NewReader(head), file), path)
	if err := o.store.PutObject(ctx, bucket, key, body, opts); err != nil {
		return 0, err
	}

	return body.read, nil
}

func (o *Orchestrator) download(ctx context.Context, bucket, key, path string) (int64, error) {
	obj, err := o.store.GetObject(ctx, bucket, key)
	if err != nil {
		return 0, err
	}
	defer obj.Body.Close()

	var meta *storage.FileInfo
	if o.preserveTimestamps {
		if modTime := objectModTime(obj); !modTime.IsZero() {
			meta = &storage.FileInfo{ModTime: modTime}
		}
	}

	return o.fs.Write(ctx, path, o.stream(ctx, obj.Body, resource.ObjectURL(bucket, key)), meta)
}

// objectModTime prefers the mtime recorded at upload over LastModified
func objectModTime(obj *storage.Object) time.Time {
	if raw, ok := obj.Metadata[MetadataModTime]; ok {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.Unix(secs, 0)
		}
	}
	return obj.LastModified
}

func (o *Orchestrator) copyLocal(ctx context.Context, src, dst string) (int64, error) {
	info, err := o.fs.Stat(ctx, src)
	if err != nil {
		return 0, err
	}

	reader, err := o.fs.Read(ctx, src)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	var meta *storage.FileInfo
	if o.preserveTimestamps {
		meta = &storage.FileInfo{ModTime: info.ModTime}
	}

	return o.fs.Write(ctx, dst, o.stream(ctx, reader, src), meta)
}

// copyRemote runs a server-side copy. No bytes pass through the process.
func (o *Orchestrator) copyRemote(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (int64, error) {
	return 0, o.store.CopyObject(ctx, srcBucket, srcKey, dstBucket, dstKey)
}

// DeleteKeys removes keys from bucket in one batched request and returns
// the keys the store refused
func (o *Orchestrator) DeleteKeys(ctx context.Context, bucket string, keys []string) ([]storage.DeleteError, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	ids := make([]storage.ObjectID, len(keys))
	for i, key := range keys {
		ids[i] = storage.ObjectID{Key: key}
	}
	return o.store.DeleteObjects(ctx, bucket, ids)
}

// RemoveLocal deletes one local file
func (o *Orchestrator) RemoveLocal(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.fs.Delete(ctx, path)
}
