// Command headless plays a seeded game without a wall clock. It drives the
// engine day by day with a simple landlord policy, which makes it useful for
// balance checks and for confirming that a seed always plays out the same way.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "estateempire.io/internal/persistence/log"
	"estateempire.io/internal/persistence/slots"
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/tuning"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		schemaDir  = flag.String("schemas", "./schemas", "schema directory (empty to skip validation)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Uint64("seed", 1, "world and simulation seed")
		days       = flag.Int("days", 90, "days to simulate")
		reserve    = flag.Float64("reserve", 500, "cash the policy keeps back when buying or upgrading")
		dataDir    = flag.String("data", "", "write day/action logs under this directory (optional)")
		saveSlot   = flag.Int("save", 0, "save the final world into this slot under -data (optional)")
		verify     = flag.Bool("verify", false, "play the seed twice and compare day digests")
	)
	flag.Parse()

	if *days <= 0 {
		fmt.Fprintln(os.Stderr, "-days must be positive")
		os.Exit(2)
	}
	if *saveSlot != 0 && *dataDir == "" {
		fmt.Fprintln(os.Stderr, "-save needs -data")
		os.Exit(2)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.LoadOrDefault(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	cats, err := catalogs.Load(*configDir, *schemaDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	eng := engine.New(tune, cats)

	cfg := runConfig{Seed: *seed, Days: *days, Reserve: *reserve}
	if *dataDir != "" {
		dayLog := persistlog.NewDayLogger(*dataDir, persistlog.WriterOptions{})
		actionLog := persistlog.NewActionLogger(*dataDir, persistlog.WriterOptions{})
		defer dayLog.Close()
		defer actionLog.Close()
		cfg.DayLogger = dayLog
		cfg.ActionLogger = actionLog
	}

	res := run(eng, cfg)
	if res.Summary.Stalled {
		fmt.Fprintf(os.Stderr, "run stalled on day %d\n", res.Summary.FinalDay)
		os.Exit(1)
	}

	if *verify {
		again := run(eng, runConfig{Seed: *seed, Days: *days, Reserve: *reserve})
		if day, ok := sameRun(res, again); !ok {
			fmt.Fprintf(os.Stderr, "verify: runs diverge at day %d\n", day)
			os.Exit(1)
		}
		res.Summary.Verified = true
	}

	if *saveSlot != 0 {
		store := slots.New(filepath.Join(*dataDir, "slots"), slots.Options{
			Slots:          tune.SaveSlots,
			Ceilings:       tune.Economy.MaxAmenityLevel,
			Catalogs:       cats,
			CatalogDigests: cats.Digests(),
		})
		meta, err := store.Save(*saveSlot, res.World)
		if err != nil {
			fmt.Fprintln(os.Stderr, "save:", err)
			os.Exit(1)
		}
		res.Summary.SaveID = meta.SaveID
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res.Summary)
}
