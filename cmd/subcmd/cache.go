package subcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/aceeric/layercache/impl/cachestore"
	"github.com/aceeric/layercache/impl/config"
	"github.com/aceeric/layercache/impl/engine"
	"github.com/aceeric/layercache/impl/layercache"
)

// ImageEngine is what the sub-commands need from the container engine
type ImageEngine interface {
	layercache.ImageEngine
	ListImages(ctx context.Context, filter string) ([]string, error)
}

// engineFor returns the engine that runs 'binary'. Tests replace it.
var engineFor = func(binary string) ImageEngine {
	return engine.New(engine.ExecRunner{}, binary)
}

// newLayerCache creates a layer cache over the directory store from the configuration
func newLayerCache(eng ImageEngine) (*layercache.LayerCache, error) {
	if config.GetCacheDir() == "" {
		return nil, fmt.Errorf("a cache directory is required (--cache-dir)")
	}
	store, err := cachestore.NewDirStore(config.GetCacheDir())
	if err != nil {
		return nil, err
	}
	return layercache.New(eng, store, layercache.Options{
		WorkDir:      config.GetWorkDir(),
		Concurrency:  int(config.GetConcurrency()),
		SkipParallel: config.GetSkipParallel(),
	}), nil
}

// splitKeys splits newline-separated restore keys, dropping blank lines
func splitKeys(keys string) []string {
	split := []string{}
	for _, key := range strings.Split(keys, "\n") {
		if key = strings.TrimSpace(key); key != "" {
			split = append(split, key)
		}
	}
	return split
}
