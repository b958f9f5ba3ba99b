package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dusk-indust/farmops/internal/export"
	"github.com/dusk-indust/farmops/internal/store"
)

// cmdExport loads the requested jobs in parallel and writes their JSON
// export to stdout.
func cmdExport(ctx context.Context, st store.Store, ids []string) error {
	exports, err := export.ExportJobs(ctx, st, ids)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(exports) == 1 {
		return enc.Encode(exports[0])
	}
	if err := enc.Encode(exports); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
