//go:build !cgo

package main

import "github.com/dusk-indust/farmops/internal/store"

// openStore picks the persistence backend. Without CGO the KuzuDB driver
// is unavailable, so everything runs on the in-memory store and a
// configured db path is ignored.
func openStore(_ string) (store.Store, error) {
	return store.NewMemStore(), nil
}
