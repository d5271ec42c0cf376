package layercache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/aceeric/layercache/impl/cachestore"
	"github.com/aceeric/layercache/impl/globals"
	"github.com/aceeric/layercache/impl/keycodec"
	"github.com/aceeric/layercache/impl/manifest"
	"github.com/aceeric/layercache/impl/metrics"
	"github.com/aceeric/layercache/impl/pool"

	log "github.com/sirupsen/logrus"
)

// Restore restores the root entry matching 'primary', or else the newest entry
// matching one of the 'fallbacks' as a prefix, then every layer it references, and
// loads the result into the image engine. It returns the key of the root entry that
// was restored, or the empty string if nothing was restored because the root entry
// or any one of the layer entries is not in the cache. Other failures are returned
// as errors.
func (lc *LayerCache) Restore(ctx context.Context, primary string, fallbacks []string) (string, error) {
	rootKey, err := lc.restoreRoot(ctx, primary, fallbacks)
	if err != nil || rootKey == "" {
		return "", err
	}
	if lc.parallel {
		template, err := lc.recoverTemplate(rootKey, primary)
		if err != nil {
			return "", err
		}
		restored, err := lc.restoreLayers(ctx, template)
		if err != nil {
			return "", err
		}
		if !restored {
			log.Info("some layer cache could not be found, aborting")
			return "", nil
		}
		if err := lc.tree.Join(); err != nil {
			return "", err
		}
	}
	if err := lc.engine.Load(ctx, lc.tree.ImageDir()); err != nil {
		return "", err
	}
	return rootKey, nil
}

// restoreRoot restores the root entry into a fresh image dir and returns the matched
// key. On a miss the working root is removed and the empty string is returned.
func (lc *LayerCache) restoreRoot(ctx context.Context, primary string, fallbacks []string) (string, error) {
	if err := lc.tree.Reset(); err != nil {
		return "", err
	}
	log.Debugf("trying to restore root cache, key: %s, restore keys: %v, dir: %s", primary, fallbacks, lc.tree.ImageDir())
	rootKey, err := lc.store.Restore(ctx, []string{lc.tree.ImageDir()}, primary, fallbacks)
	metrics.IncRootRestores(outcome(err, metrics.Restored))
	if cachestore.IsKind(err, cachestore.KindNotFound) {
		log.Info("root cache could not be found, aborting")
		return "", lc.tree.CleanUp()
	} else if err != nil {
		return "", err
	}
	log.Infof("restored root cache, key: %s", rootKey)
	return rootKey, nil
}

// recoverTemplate works out the key template that 'rootKey' was made from, using the
// hash of the restored manifest. The primary key is taken as the template when it is
// one and it reproduces the matched key. Otherwise the template is recovered from the
// key, which fails if the hash occurs in the key more than once.
func (lc *LayerCache) recoverTemplate(rootKey string, primary string) (string, error) {
	rootHash, err := manifest.RootHash(lc.tree.ImageDir())
	if err != nil {
		return "", err
	}
	if keycodec.Validate(primary) == nil &&
		strings.Replace(primary, globals.Placeholder, rootHash, 1)+globals.RootSuffix == rootKey {
		return primary, nil
	}
	template, err := keycodec.RecoverTemplate(rootKey, rootHash, globals.RootSuffix)
	if errors.Is(err, keycodec.ErrAmbiguous) {
		return "", cachestore.Validationf(rootKey, "unable to recover the key template: %s", err)
	} else if err != nil {
		return "", err
	}
	log.Debugf("recovered key template %s from key %s", template, rootKey)
	return template, nil
}

// restoreLayers restores every layer in the manifest into the layers dir. All the
// restores run to completion before the outcome is decided. It returns false if any
// layer entry was missing, and an error if any restore failed otherwise.
func (lc *LayerCache) restoreLayers(ctx context.Context, template string) (bool, error) {
	ids, err := manifest.LayerIDs(lc.tree.ImageDir())
	if err != nil {
		return false, err
	}
	p := pool.New(lc.concurrency)
	for _, id := range ids {
		id := id
		p.Submit(id, func() error {
			return lc.restoreLayer(ctx, template, id)
		})
	}
	results := p.Wait()
	missing := false
	failed := []pool.Result{}
	for _, r := range results {
		switch {
		case r.Err == nil:
			log.Debugf("restored layer %s", r.Name)
		case cachestore.IsKind(r.Err, cachestore.KindNotFound):
			log.Infof("layer cache not found: %s", r.Name)
			missing = true
		default:
			log.Errorf("layer %s could not be restored: %s", r.Name, r.Err)
			failed = append(failed, r)
		}
	}
	if missing {
		return false, nil
	}
	if len(failed) != 0 {
		return false, joinErrors(failed)
	}
	return true, nil
}

func (lc *LayerCache) restoreLayer(ctx context.Context, template string, layerID string) error {
	key, err := keycodec.LayerKey(template, layerID)
	if err != nil {
		return err
	}
	layerPath := lc.tree.LayerPath(layerID)
	log.Debugf("restoring layer, id: %s, key: %s, path: %s", layerID, key, layerPath)
	if err := os.MkdirAll(filepath.Dir(layerPath), 0755); err != nil {
		return err
	}
	_, err = lc.store.Restore(ctx, []string{layerPath}, key, nil)
	metrics.IncLayerRestores(outcome(err, metrics.Restored))
	return err
}
