package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"estateempire.io/internal/persistence/indexdb"
	"estateempire.io/internal/persistence/slots"
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/tuning"
)

type runtimeIndex interface {
	engine.DayLogger
	engine.ActionLogger
	Close() error
	UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSave(sv slots.Saved)
	Stats() indexdb.Stats
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("EE_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index", "estate.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported EE_INDEX_BACKEND: %s", backend)
	}
}
