// Package detector takes an inventory of the images the local engine holds so that a
// pipeline can tell which images appeared between its restore and save phases.
package detector

import (
	"context"
	"slices"

	log "github.com/sirupsen/logrus"
)

// Lister lists the IDs and repo:tag names of local images
type Lister interface {
	ListImages(ctx context.Context, filter string) ([]string, error)
}

// Detector narrows image listings with an optional engine filter
type Detector struct {
	lister Lister
	filter string
}

// New creates a Detector. 'filter' is passed to the engine as-is, empty means all
// images.
func New(lister Lister, filter string) *Detector {
	return &Detector{lister: lister, filter: filter}
}

// ExistingImages returns the IDs and repo:tags of the images present now
func (d *Detector) ExistingImages(ctx context.Context) ([]string, error) {
	images, err := d.lister.ListImages(ctx, d.filter)
	if err != nil {
		return nil, err
	}
	log.Debugf("existing images: %v", images)
	return images, nil
}

// ImagesToSave returns the images present now that are not in 'already'
func (d *Detector) ImagesToSave(ctx context.Context, already []string) ([]string, error) {
	images, err := d.ExistingImages(ctx)
	if err != nil {
		return nil, err
	}
	toSave := []string{}
	for _, image := range images {
		if !slices.Contains(already, image) {
			toSave = append(toSave, image)
		}
	}
	return toSave, nil
}
