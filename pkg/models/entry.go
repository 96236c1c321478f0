package models

import (
	"sort"
	"time"
)

// ComparisonEntry is one file or object in an enumerated tree
type ComparisonEntry struct {
	// Key is the path relative to the tree root, always '/' separated.
	// It is the equality key between a local and a remote tree.
	Key string

	// FullIdentifier addresses the entry for reads and writes:
	// an absolute local path or a full object key
	FullIdentifier string

	// LastModified is the local mtime or the object's LastModified
	LastModified time.Time

	// Size in bytes
	Size int64
}

// Action represents what a sync does with a key
type Action string

const (
	// ActionCopy transfers a key missing on the destination
	ActionCopy Action = "copy"
	// ActionUpdate overwrites a destination key with a newer source
	ActionUpdate Action = "update"
	// ActionDelete removes a key that only exists on the destination
	ActionDelete Action = "delete"
	// ActionSkip leaves an up-to-date key alone
	ActionSkip Action = "skip"
)

// SyncPlan is the diff between a source and a destination tree
type SyncPlan struct {
	New       []ComparisonEntry
	Modified  []ComparisonEntry
	Unchanged []ComparisonEntry
	// Stale holds destination entries with no source counterpart
	Stale []ComparisonEntry

	SourceCount int
	DestCount   int
}

// TotalBytes is the number of source bytes the plan will transfer
func (p *SyncPlan) TotalBytes() int64 {
	var total int64
	for _, e := range p.New {
		total += e.Size
	}
	for _, e := range p.Modified {
		total += e.Size
	}
	return total
}

// TransferCount is the number of keys the plan will copy or update
func (p *SyncPlan) TransferCount() int {
	return len(p.New) + len(p.Modified)
}

// Sort orders every group by key. Useful for stable output only.
func (p *SyncPlan) Sort() {
	for _, group := range [][]ComparisonEntry{p.New, p.Modified, p.Unchanged, p.Stale} {
		sort.Slice(group, func(i, j int) bool { return group[i].Key < group[j].Key })
	}
}
