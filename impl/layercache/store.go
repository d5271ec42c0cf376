package layercache

import (
	"context"
	"fmt"

	"github.com/aceeric/layercache/impl/cachestore"
	"github.com/aceeric/layercache/impl/keycodec"
	"github.com/aceeric/layercache/impl/manifest"
	"github.com/aceeric/layercache/impl/metrics"
	"github.com/aceeric/layercache/impl/pool"

	log "github.com/sirupsen/logrus"
)

// Store exports 'images' and caches them under keys made from 'template'. It returns
// true if the root entry was written by this call. If the root key was already taken,
// or the root save failed for any reason other than invalid input, nothing is cached
// and false is returned with a nil error.
//
// Layer saves are attempted only after a new root entry was written. Their failures
// are logged and do not change the result, except for invalid input which is
// returned (together with true) after all the layer saves have finished.
func (lc *LayerCache) Store(ctx context.Context, images []string, template string) (bool, error) {
	if err := keycodec.Validate(template); err != nil {
		return false, err
	}
	if err := lc.export(ctx, images); err != nil {
		return false, err
	}
	if lc.parallel {
		if err := lc.tree.Split(); err != nil {
			return false, err
		}
	}
	stored, err := lc.storeRoot(ctx, template)
	if err != nil {
		return false, err
	}
	if !stored {
		log.Info("root cache was not stored, aborting")
		return false, nil
	}
	if !lc.parallel {
		return true, nil
	}
	return true, lc.storeLayers(ctx, template)
}

// export saves the images, and every image in their history, into a fresh image dir
func (lc *LayerCache) export(ctx context.Context, images []string) error {
	if len(images) == 0 {
		return cachestore.Validationf("", "no images to store")
	}
	if err := lc.tree.Reset(); err != nil {
		return err
	}
	refs, err := lc.engine.ExportRefs(ctx, images)
	if err != nil {
		return fmt.Errorf("unable to get image history: %w", err)
	}
	if err := lc.engine.Save(ctx, lc.tree.ImageDir(), refs); err != nil {
		return fmt.Errorf("unable to save images: %w", err)
	}
	return nil
}

func (lc *LayerCache) storeRoot(ctx context.Context, template string) (bool, error) {
	rootHash, err := manifest.RootHash(lc.tree.ImageDir())
	if err != nil {
		return false, err
	}
	rootKey, err := keycodec.RootKey(template, rootHash)
	if err != nil {
		return false, err
	}
	log.Infof("start storing root cache, key: %s, dir: %s", rootKey, lc.tree.ImageDir())
	id, err := lc.store.Save(ctx, []string{lc.tree.ImageDir()}, rootKey)
	metrics.IncRootSaves(outcome(err, metrics.Saved))
	if err != nil {
		return false, lenient(err)
	}
	log.Infof("stored root cache, key: %s, id: %s", rootKey, id)
	return true, nil
}

func (lc *LayerCache) storeLayers(ctx context.Context, template string) error {
	ids, err := manifest.LayerIDs(lc.tree.ImageDir())
	if err != nil {
		return err
	}
	p := pool.New(lc.concurrency)
	for _, id := range ids {
		id := id
		p.Submit(id, func() error {
			return lc.storeLayer(ctx, template, id)
		})
	}
	return joinErrors(p.Wait())
}

func (lc *LayerCache) storeLayer(ctx context.Context, template string, layerID string) error {
	key, err := keycodec.LayerKey(template, layerID)
	if err != nil {
		return err
	}
	layerPath := lc.tree.LayerPath(layerID)
	log.Infof("start storing layer cache, id: %s, key: %s", layerID, key)
	cacheID, err := lc.store.Save(ctx, []string{layerPath}, key)
	metrics.IncLayerSaves(outcome(err, metrics.Saved))
	if err != nil {
		return lenient(err)
	}
	log.Infof("stored layer cache, key: %s, id: %s", key, cacheID)
	return nil
}
