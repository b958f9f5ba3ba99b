package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dusk-indust/farmops/internal/config"
	"github.com/dusk-indust/farmops/internal/pipeline"
)

// defaultConfig is written by `farmops init` when no config file exists.
const defaultConfig = `# farmops project configuration
dbPath: farmops.db
listenAddr: ":8450"
defaultUnit: "평"
seedCategories:
  - 뽑기
  - 자르기
  - 포장
  - 운송
`

// cmdInit writes a starter farmops.yml and seeds the category pipeline as
// one chain in list order. Existing config files are left alone.
func cmdInit(flags cliFlags, cfg *config.ProjectConfig, log *zap.Logger) error {
	path := filepath.Join(flags.Dir, "farmops.yml")
	if _, err := os.Stat(path); err == nil {
		log.Info("config already exists", zap.String("path", path))
	} else {
		if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		log.Info("wrote config", zap.String("path", path))
		cfg, err = config.Load(flags.Dir)
		if err != nil {
			return fmt.Errorf("reload config: %w", err)
		}
	}

	if flags.DBPath == "" {
		flags.DBPath = cfg.DBPath
	}

	ctx := context.Background()
	st, err := openStore(flags.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	graph, err := st.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	if graph.Snapshot().Len() > 0 {
		log.Info("pipeline already seeded, skipping")
		return nil
	}

	if err := seedPipeline(graph, cfg.SeedCategories); err != nil {
		return err
	}
	if err := st.SaveGraph(ctx, graph.Snapshot()); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	log.Info("seeded pipeline", zap.Int("categories", graph.Snapshot().Len()))
	return nil
}

// seedPipeline adds the named categories and chains them in list order.
func seedPipeline(graph *pipeline.Graph, names []string) error {
	var prev string
	for _, name := range names {
		cat, err := graph.AddCategory(name)
		if err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
		if prev != "" {
			if err := graph.SetNext(prev, cat.ID); err != nil {
				return fmt.Errorf("chain category %q: %w", name, err)
			}
		}
		prev = cat.ID
	}
	return nil
}
