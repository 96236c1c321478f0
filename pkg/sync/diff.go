package sync

import (
	"github.com/sdejongh/bucketsync/pkg/models"
)

// indexByKey maps entries by key. A later duplicate replaces an earlier one.
func indexByKey(entries []models.ComparisonEntry) map[string]models.ComparisonEntry {
	index := make(map[string]models.ComparisonEntry, len(entries))
	for _, e := range entries {
		index[e.Key] = e
	}
	return index
}

// Diff classifies every source entry against the destination index.
// Matched keys are removed from dest, so what remains afterwards is the
// stale set. A key is Modified only when the source is strictly newer;
// equal or older timestamps count as Unchanged.
func Diff(source []models.ComparisonEntry, dest map[string]models.ComparisonEntry) *models.SyncPlan {
	plan := &models.SyncPlan{
		SourceCount: len(source),
		DestCount:   len(dest),
	}

	for _, src := range source {
		dst, ok := dest[src.Key]
		if !ok {
			plan.New = append(plan.New, src)
			continue
		}
		delete(dest, src.Key)

		if src.LastModified.After(dst.LastModified) {
			plan.Modified = append(plan.Modified, src)
		} else {
			plan.Unchanged = append(plan.Unchanged, src)
		}
	}

	for _, stale := range dest {
		plan.Stale = append(plan.Stale, stale)
	}

	plan.Sort()
	return plan
}
