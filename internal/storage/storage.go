// Package storage holds the narrow contract the ingestion pipeline has with
// object storage: fetch a stored binary by key, delete it by key.
package storage

import "errors"

// ErrNotFound is returned by Get when no object exists under the key.
// Delete treats a missing object as success.
var ErrNotFound = errors.New("object not found")
