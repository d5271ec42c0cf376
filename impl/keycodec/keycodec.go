// Package keycodec turns a caller-supplied key template into concrete cache keys
// and recovers the template from a key that was issued earlier.
//
// A template has exactly one {hash} placeholder, for example "Linux-node-{hash}".
// The root entry of an image set is keyed by the template formatted with the hash
// of the image manifest plus a "-root" suffix. Each layer entry is keyed by the
// template formatted with the layer ID plus a "layer-" prefix.
package keycodec

import (
	"errors"
	"strings"

	"github.com/aceeric/layercache/impl/cachestore"
	"github.com/aceeric/layercache/impl/globals"
)

// ErrAmbiguous is returned by RecoverTemplate when the hash occurs more than once
// in the key, so it is not possible to tell which occurrence was the placeholder.
var ErrAmbiguous = errors.New("hash occurs more than once in key")

// Validate checks that the template has exactly one placeholder
func Validate(template string) error {
	switch n := strings.Count(template, globals.Placeholder); {
	case n == 0:
		return cachestore.Validationf(template, "key template has no %s placeholder", globals.Placeholder)
	case n > 1:
		return cachestore.Validationf(template, "key template has %d %s placeholders, expected one", n, globals.Placeholder)
	}
	return nil
}

// Format substitutes 'hash' for the placeholder in 'template'. A template that
// already contains the literal hash is rejected since the key could not later be
// reversed into the template.
func Format(template string, hash string) (string, error) {
	if err := Validate(template); err != nil {
		return "", err
	}
	if hash == "" {
		return "", cachestore.Validationf(template, "empty hash")
	}
	if strings.Contains(template, hash) {
		return "", cachestore.Validationf(template, "key template contains the hash %q", hash)
	}
	return strings.Replace(template, globals.Placeholder, hash, 1), nil
}

// RootKey returns the key of the root entry for an image set whose manifest hashes
// to 'rootHash'
func RootKey(template string, rootHash string) (string, error) {
	formatted, err := Format(template, rootHash)
	if err != nil {
		return "", err
	}
	return formatted + globals.RootSuffix, nil
}

// LayerKey returns the key of the entry holding the layer identified by 'layerID'
func LayerKey(template string, layerID string) (string, error) {
	formatted, err := Format(template, layerID)
	if err != nil {
		return "", err
	}
	return globals.LayerPrefix + formatted, nil
}

// RecoverTemplate reverses Format: it strips 'suffix' from the end of 'key' and then
// replaces the first occurrence of 'knownHash' with the placeholder. If the hash is
// not in the key a validation error is returned. If the hash occurs more than once,
// the first-occurrence result is returned along with ErrAmbiguous.
func RecoverTemplate(key string, knownHash string, suffix string) (string, error) {
	if knownHash == "" {
		return "", cachestore.Validationf(key, "empty hash")
	}
	stripped := strings.TrimSuffix(key, suffix)
	switch n := strings.Count(stripped, knownHash); {
	case n == 0:
		return "", cachestore.Validationf(key, "key does not contain the hash %q", knownHash)
	case n > 1:
		return strings.Replace(stripped, knownHash, globals.Placeholder, 1), ErrAmbiguous
	}
	return strings.Replace(stripped, knownHash, globals.Placeholder, 1), nil
}
