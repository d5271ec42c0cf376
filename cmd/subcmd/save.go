package subcmd

import (
	"context"
	"fmt"

	"github.com/aceeric/layercache/impl/config"
	"github.com/aceeric/layercache/impl/detector"
	"github.com/aceeric/layercache/impl/state"

	log "github.com/sirupsen/logrus"
)

// Save caches the images that appeared since the restore step under the configured
// key template. A key that is already in the cache is not an error.
func Save(ctx context.Context) error {
	saveCfg := config.GetSaveConfig()
	if saveCfg.SkipSave {
		log.Info("skipping save")
		return nil
	}
	if saveCfg.Key == "" {
		return fmt.Errorf("the save command requires a key (--key)")
	}
	st, err := state.Load(config.GetStateFile())
	if err != nil {
		return err
	}
	eng := engineFor(config.GetEngine())
	images, err := detector.New(eng, config.GetFilter()).ImagesToSave(ctx, st.AlreadyExistingImages)
	if err != nil {
		return fmt.Errorf("error listing images: %w", err)
	}
	if len(images) == 0 {
		log.Info("there are no images to save")
		return nil
	}
	lc, err := newLayerCache(eng)
	if err != nil {
		return err
	}
	defer func() {
		if err := lc.CleanUp(); err != nil {
			log.Warnf("unable to remove the working directory: %s", err)
		}
	}()
	log.Infof("saving %d image(s)", len(images))
	stored, err := lc.Store(ctx, images, saveCfg.Key)
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	if !stored {
		log.Info("the images were not saved")
	}
	return nil
}
