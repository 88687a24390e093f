package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"estateempire.io/internal/persistence/indexdb"
	persistlog "estateempire.io/internal/persistence/log"
	"estateempire.io/internal/persistence/slots"
	"estateempire.io/internal/persistence/snapshot"
	"estateempire.io/internal/protocol"
	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/tuning"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "delete":
			deleteCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func openStore(dataDir, tuningPath string) *slots.Store {
	tune, err := tuning.LoadOrDefault(tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tuning:", err)
		os.Exit(1)
	}
	return slots.New(filepath.Join(dataDir, "slots"), slots.Options{
		Slots:    tune.SaveSlots,
		Ceilings: tune.Economy.MaxAmenityLevel,
	})
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	tuningPath := fs.String("tuning", "./configs/tuning.yaml", "tuning.yaml (for slot count)")
	_ = fs.Parse(args)

	for _, info := range openStore(*dataDir, *tuningPath).List() {
		switch {
		case info.Err != "":
			fmt.Printf("slot %d  error: %s\n", info.Slot, info.Err)
		case info.Meta == nil:
			fmt.Printf("slot %d  empty\n", info.Slot)
		default:
			m := info.Meta
			fmt.Printf("slot %d  day=%d money=%.0f level=%d saved_at=%d\n", m.Slot, m.Day, m.Money, m.Level, m.Timestamp)
		}
	}
}

// inspectCmd fully decodes and validates a save, printing its header and the
// world as a client would see it.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	tuningPath := fs.String("tuning", "./configs/tuning.yaml", "tuning.yaml")
	slot := fs.Int("slot", 1, "slot number")
	_ = fs.Parse(args)

	w, meta, err := openStore(*dataDir, *tuningPath).Load(*slot)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		if errors.Is(err, snapshot.ErrCorrupt) {
			os.Exit(3)
		}
		os.Exit(1)
	}
	printJSON(struct {
		Meta  slots.Meta        `json:"meta"`
		World protocol.StateMsg `json:"world"`
	}{meta, protocol.NewStateMsg(w, 0, false)})
}

func deleteCmd(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	tuningPath := fs.String("tuning", "./configs/tuning.yaml", "tuning.yaml")
	slot := fs.Int("slot", 0, "slot number (required)")
	_ = fs.Parse(args)

	if *slot == 0 {
		fmt.Fprintln(os.Stderr, "missing -slot")
		os.Exit(2)
	}
	if err := openStore(*dataDir, *tuningPath).Delete(*slot); err != nil {
		fmt.Fprintln(os.Stderr, "delete:", err)
		os.Exit(1)
	}
	fmt.Printf("deleted slot %d\n", *slot)

	// Keep the index in step when the server has written one.
	dbPath := filepath.Join(*dataDir, "index", "estate.sqlite")
	if _, err := os.Stat(dbPath); err != nil {
		return
	}
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "index:", err)
		return
	}
	idx.ForgetSlot(*slot)
	_ = idx.Close()
}

// logCmd prints the last -limit entries of the day or action JSONL logs.
func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	limit := fs.Int("limit", 20, "entries to print")
	_ = fs.Parse(args)

	kind := "days"
	if fs.NArg() > 0 {
		kind = fs.Arg(0)
	}
	var err error
	switch kind {
	case "days":
		err = tailLog[engine.DayLogEntry](os.Stdout, filepath.Join(*dataDir, "days"), "days", *limit)
	case "actions":
		err = tailLog[engine.ActionLogEntry](os.Stdout, filepath.Join(*dataDir, "actions"), "actions", *limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown log %q (days|actions)\n", kind)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
}

func tailLog[T any](out io.Writer, dir, prefix string, limit int) error {
	files, err := persistlog.Files(dir, prefix)
	if err != nil {
		return err
	}
	var all []T
	for _, f := range files {
		if err := persistlog.ReadJSONL(f, func(v T) error {
			all = append(all, v)
			return nil
		}); err != nil {
			return err
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	for _, v := range all {
		b, _ := json.Marshal(v)
		fmt.Fprintln(out, string(b))
	}
	return nil
}
