package cachestore

import "context"

// Store is the remote key-value blob cache. Paths are files or directories on the
// local filesystem. Save reserves 'key' and uploads the paths under it; the returned
// string identifies the stored entry. Restore looks for 'primary' exactly and then
// for each fallback as a key prefix, writes the matched entry back to 'paths', and
// returns the key that matched.
//
// Failures are *Error values: Save reports KindAlreadyExists for a reserved key, and
// Restore reports KindNotFound if nothing matched.
type Store interface {
	Save(ctx context.Context, paths []string, key string) (string, error)
	Restore(ctx context.Context, paths []string, primary string, fallbacks []string) (string, error)
}
