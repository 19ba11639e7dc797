// Package blobstore defines the content-store abstraction: durable byte
// objects keyed by an opaque identifier, with create-once semantics.
package blobstore

import "io"

// Provider is the interface for content object operations.
type Provider interface {
	// Create opens a fresh object for writing. The key must not already
	// exist; an existing object is never overwritten.
	Create(key string) (io.WriteCloser, error)
	// Open returns a reader over the object plus its size in bytes.
	Open(key string) (io.ReadCloser, int64, error)
	// Size returns the current on-disk size of the object.
	Size(key string) (int64, error)
	// Remove deletes the object. Removing a key that does not exist is
	// not an error (delete-if-exists semantics for cleanup paths).
	Remove(key string) error
}
