package interfaces

import "context"

// ObjectStore persists rendered profile images under opaque ids.
type ObjectStore interface {
	// StoreImage renders data to width×height and uploads it under id,
	// returning the public URL.
	StoreImage(ctx context.Context, id string, data []byte, width, height int) (string, error)
	// Remove deletes a stored image; removing an absent id is not an error.
	Remove(ctx context.Context, id string) error
}
