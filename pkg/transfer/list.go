package transfer

import (
	"context"
	"iter"

	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/resource"
	"github.com/sdejongh/bucketsync/pkg/storage"
)

// List pages through the objects under a remote path
func (o *Orchestrator) List(ctx context.Context, path string, includeOwner bool) (iter.Seq2[storage.ObjectInfo, error], error) {
	d, err := resolveRemote(path)
	if err != nil {
		return nil, err
	}
	return o.store.ListObjects(ctx, d.Bucket, d.Resource, includeOwner), nil
}

// ListVersions pages through the versions and delete markers under a remote path
func (o *Orchestrator) ListVersions(ctx context.Context, path string) (iter.Seq2[storage.ObjectVersion, error], error) {
	d, err := resolveRemote(path)
	if err != nil {
		return nil, err
	}
	return o.store.ListObjectVersions(ctx, d.Bucket, d.Resource), nil
}

func resolveRemote(path string) (resource.Descriptor, error) {
	d, err := resource.Resolve(path)
	if err != nil {
		return d, err
	}
	if d.Location != resource.Remote {
		return d, models.NewArgumentError(models.ErrBucketRequired, path)
	}
	return d, nil
}
