// Package layercache stores and restores a set of container images in a key-value cache
// as one root entry plus one entry per layer.
//
// The root entry holds the unpacked image archive minus its layer archives and is keyed
// by a hash of the archive manifest. Every layer is cached separately under a key made
// from its layer ID, so image sets that share base layers share those cache entries.
// Store is best-effort: apart from invalid input, cache write problems are logged and
// never fail the caller. Restore is strict: a layer that cannot be restored means the
// image set is not restored, and any unexpected failure is returned.
package layercache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aceeric/layercache/impl/cachestore"
	"github.com/aceeric/layercache/impl/globals"
	"github.com/aceeric/layercache/impl/layertree"
	"github.com/aceeric/layercache/impl/metrics"
	"github.com/aceeric/layercache/impl/pool"

	log "github.com/sirupsen/logrus"
)

// ImageEngine is the local container engine
type ImageEngine interface {
	// ExportRefs expands 'refs' with the IDs of the images they were built from
	ExportRefs(ctx context.Context, refs []string) ([]string, error)
	// Save exports 'refs' as an unpacked archive into 'dir'
	Save(ctx context.Context, dir string, refs []string) error
	// Load imports the unpacked archive in 'dir'
	Load(ctx context.Context, dir string) error
}

// Options configures a LayerCache. Zero values get defaults.
type Options struct {
	// WorkDir is the working root. Default: <os temp dir>/.adlc
	WorkDir string
	// Concurrency is the number of layers stored or restored at once. Default: 4
	Concurrency int
	// SkipParallel caches the image set as a single root entry holding every layer
	SkipParallel bool
}

// LayerCache runs one Store or Restore at a time. It keeps no state between calls
// other than its configuration.
type LayerCache struct {
	engine      ImageEngine
	store       cachestore.Store
	tree        layertree.Tree
	concurrency int
	parallel    bool
}

// New creates a LayerCache
func New(engine ImageEngine, store cachestore.Store, opts Options) *LayerCache {
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(os.TempDir(), ".adlc")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = globals.DefaultConcurrency
	}
	return &LayerCache{
		engine:      engine,
		store:       store,
		tree:        layertree.New(opts.WorkDir),
		concurrency: opts.Concurrency,
		parallel:    !opts.SkipParallel,
	}
}

// Tree returns the working directory layout
func (lc *LayerCache) Tree() layertree.Tree {
	return lc.tree
}

// CleanUp removes the working directory. It is safe to call more than once.
func (lc *LayerCache) CleanUp() error {
	return lc.tree.CleanUp()
}

// outcome maps a cache store error to a metrics label
func outcome(err error, ok string) string {
	switch cachestore.KindOf(err) {
	case cachestore.KindAlreadyExists:
		return metrics.Exists
	case cachestore.KindNotFound:
		return metrics.Missed
	}
	if err == nil {
		return ok
	}
	return metrics.Failed
}

// lenient applies the store policy to a save error: validation errors are returned,
// anything else is logged and dropped
func lenient(err error) error {
	switch cachestore.KindOf(err) {
	case cachestore.KindValidation:
		return err
	case cachestore.KindAlreadyExists:
		log.Info(err)
	default:
		log.Warn(err)
	}
	return nil
}

// joinErrors joins task errors into one error, or returns nil if there are none
func joinErrors(results []pool.Result) error {
	errs := []error{}
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("layer %s: %w", r.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}
