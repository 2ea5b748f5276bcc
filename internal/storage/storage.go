// Package storage holds the durable key/value blobs the cart and the
// location record persist to. Each entity owns exactly one key and is its
// only writer, so backends need no transaction support.
package storage

import (
	"context"
	"errors"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")

// Keys names the storage keys used by one storefront namespace.
type Keys struct {
	Cart         string
	Location     string
	AutoPrompted string
}

func NewKeys(namespace string) Keys {
	if namespace == "" {
		namespace = "bharatmart"
	}
	return Keys{
		Cart:         namespace + ":cart",
		Location:     namespace + ":location",
		AutoPrompted: namespace + ":location:autoPrompted",
	}
}
