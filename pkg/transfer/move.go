package transfer

import (
	"context"
	"fmt"

	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/resource"
)

// Move copies source to destination, then deletes the source of every unit
// that was copied. Units that failed keep their source, and the first
// failure is returned once the successful sources are gone. Move is not
// atomic: a copy is never rolled back when a later step fails.
func (o *Orchestrator) Move(ctx context.Context, source, destination string) error {
	units, err := o.units(ctx, source, destination)
	if err != nil {
		return err
	}

	var (
		remoteBucket string
		remoteKeys   []string
		localPaths   []string
		copyFailure  *models.TransferOutcome
	)

	for u, err := range units {
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			// Sources already copied stay in place; nothing is half-deleted
			return models.NewOperationError(fmt.Errorf("failed to move %s: %w", source, err), "")
		}

		outcome := o.TransferFile(ctx, u.src, u.dst)
		if !outcome.Succeeded() {
			if copyFailure == nil {
				copyFailure = &outcome
			}
			continue
		}

		if u.src.Location == resource.Remote {
			remoteBucket = u.src.Bucket
			remoteKeys = append(remoteKeys, u.src.Resource)
		} else {
			localPaths = append(localPaths, u.src.Resource)
		}
	}

	if len(remoteKeys) > 0 {
		failures, err := o.DeleteKeys(ctx, remoteBucket, remoteKeys)
		if err != nil {
			return models.NewOperationError(fmt.Errorf("%w: %w", models.ErrFailedToDelete, err), source)
		}
		if len(failures) > 0 {
			return models.NewOperationError(models.ErrFailedToDelete, resource.ObjectURL(remoteBucket, failures[0].Key))
		}
	}

	for _, path := range localPaths {
		if err := o.RemoveLocal(ctx, path); err != nil {
			return models.NewOperationError(models.ErrFailedToDelete, path)
		}
	}

	if copyFailure != nil {
		return models.NewOperationError(
			fmt.Errorf("failed to move %s to %s: %w", copyFailure.Source, copyFailure.Destination, copyFailure.Err),
			"",
		)
	}

	return nil
}
