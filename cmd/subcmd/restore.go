package subcmd

import (
	"context"
	"fmt"

	"github.com/aceeric/layercache/impl/config"
	"github.com/aceeric/layercache/impl/detector"
	"github.com/aceeric/layercache/impl/state"

	log "github.com/sirupsen/logrus"
)

// Restore records the images the engine already has, restores the image set that
// matches the configured key, or failing that one of the restore keys, and records
// what was restored for the save step. If the restore fails, the state records that
// nothing was restored.
func Restore(ctx context.Context) error {
	restoreCfg := config.GetRestoreConfig()
	if restoreCfg.Key == "" {
		return fmt.Errorf("the restore command requires a key (--key)")
	}
	stateFile := config.GetStateFile()
	eng := engineFor(config.GetEngine())
	det := detector.New(eng, config.GetFilter())

	existing, err := det.ExistingImages(ctx)
	if err != nil {
		return fmt.Errorf("error listing images: %w", err)
	}
	if err := state.Save(stateFile, state.State{AlreadyExistingImages: existing}); err != nil {
		return err
	}
	lc, err := newLayerCache(eng)
	if err != nil {
		return err
	}
	restoredKey, err := lc.Restore(ctx, restoreCfg.Key, splitKeys(restoreCfg.RestoreKeys))
	if cerr := lc.CleanUp(); cerr != nil {
		log.Warnf("unable to remove the working directory: %s", cerr)
	}
	restored := []string{}
	if err == nil && restoredKey != "" {
		restored, err = det.ImagesToSave(ctx, existing)
	}
	if err != nil {
		if serr := state.Update(stateFile, func(st *state.State) {
			st.RestoredKey = ""
			st.RestoredImages = []string{}
		}); serr != nil {
			log.Errorf("unable to update the state file: %s", serr)
		}
		return fmt.Errorf("restore failed: %w", err)
	}
	if restoredKey == "" {
		log.Info("no cache was restored")
	} else {
		log.Infof("restored %d image(s) from key %s", len(restored), restoredKey)
	}
	return state.Update(stateFile, func(st *state.State) {
		st.RestoredKey = restoredKey
		st.RestoredImages = restored
	})
}
