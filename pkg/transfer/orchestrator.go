// Package transfer moves files and objects between the local filesystem
// and an object store. It resolves both endpoints of a request, expands
// directories and wildcards into per-file units, and runs each unit
// through the matching primitive (upload, download, local copy, or
// server-side copy).
package transfer

import (
	"github.com/sdejongh/bucketsync/pkg/ratelimit"
	"github.com/sdejongh/bucketsync/pkg/resource"
	"github.com/sdejongh/bucketsync/pkg/storage"
)

// MetadataModTime is the user metadata key that carries the source mtime
// (unix seconds) of uploads made with timestamp preservation
const MetadataModTime = "mtime"

// ProgressFunc receives the running byte count of the unit reading source
type ProgressFunc func(source string, bytesRead int64)

// Orchestrator dispatches transfer requests to the storage capabilities.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	store              storage.ObjectStore
	fs                 storage.Backend
	limiter            *ratelimit.Limiter
	preserveTimestamps bool
	exclude            *resource.ExcludeSet
	progress           ProgressFunc
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithBandwidthLimit caps the combined read rate of all transfers.
// Zero or less disables the limit.
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(o *Orchestrator) {
		o.limiter = ratelimit.NewLimiter(bytesPerSecond)
	}
}

// WithPreserveTimestamps keeps source modification times on the destination
func WithPreserveTimestamps(preserve bool) Option {
	return func(o *Orchestrator) {
		o.preserveTimestamps = preserve
	}
}

// WithExclude filters the files matched by wildcard sources
func WithExclude(set *resource.ExcludeSet) Option {
	return func(o *Orchestrator) {
		o.exclude = set
	}
}

// WithProgress reports byte progress while units stream
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// New creates an orchestrator over a remote store and a local backend
func New(store storage.ObjectStore, fs storage.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store: store,
		fs:    fs,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// With returns a copy of o with extra options applied. The copy shares the
// storage capabilities and the bandwidth limiter.
func (o *Orchestrator) With(opts ...Option) *Orchestrator {
	clone := *o
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// PreservesTimestamps reports whether transfers keep source mtimes
func (o *Orchestrator) PreservesTimestamps() bool {
	return o.preserveTimestamps
}

// Store returns the remote capability set
func (o *Orchestrator) Store() storage.ObjectStore {
	return o.store
}

// Backend returns the local capability set
func (o *Orchestrator) Backend() storage.Backend {
	return o.fs
}
