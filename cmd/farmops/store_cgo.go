//go:build cgo

package main

import "github.com/dusk-indust/farmops/internal/store"

// openStore picks the persistence backend. With CGO available the KuzuDB
// store is used: file-backed when a path is configured, in-memory
// otherwise.
func openStore(dbPath string) (store.Store, error) {
	if dbPath == "" {
		return store.NewKuzuStore()
	}
	return store.NewKuzuFileStore(dbPath)
}
