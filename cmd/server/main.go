package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "estateempire.io/internal/persistence/log"
	"estateempire.io/internal/persistence/slots"
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
	"estateempire.io/internal/sim/worldgen"
	"estateempire.io/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		schemaDir  = flag.String("schemas", "./schemas", "schema directory for event validation (empty to skip)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		slot       = flag.Int("slot", 1, "save slot to resume from and autosave into")
		newGame    = flag.Bool("new", false, "start a new game even if the slot holds a save")
		seed       = flag.Uint64("seed", 0, "seed for a new game (0: from clock)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (day history, events, slots, catalogs)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.LoadOrDefault(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	cats, err := catalogs.Load(*configDir, *schemaDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	eng := engine.New(tune, cats)

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	// Optional: read-model index backend (does not affect the simulation).
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	mirror, err := buildMirrorRuntime(*dataDir, logger)
	if err != nil {
		logger.Fatalf("init s3 mirror: %v", err)
	}
	defer mirror.Close()

	store := slots.New(filepath.Join(*dataDir, "slots"), slots.Options{
		Slots:          tune.SaveSlots,
		Ceilings:       tune.Economy.MaxAmenityLevel,
		Catalogs:       cats,
		CatalogDigests: cats.Digests(),
		OnSaved: func(sv slots.Saved) {
			if idx != nil {
				idx.RecordSave(sv)
			}
			mirror.Enqueue(sv.SavePath)
			mirror.Enqueue(sv.MetaPath)
		},
	})

	w, err := initialWorld(store, *slot, *newGame, eng, *seed)
	if err != nil {
		logger.Fatalf("slot %d: %v (use -new to start over)", *slot, err)
	}
	logger.Printf("world day=%d money=%.0f level=%d slot=%d", w.Day, w.Money, w.Level, *slot)

	logOpts := persistlog.WriterOptions{}
	if mirror.enabled {
		logOpts.RotateLayout = mirror.rotateLayout
		logOpts.OnClose = mirror.Enqueue
	}
	dayLog := persistlog.NewDayLogger(*dataDir, logOpts)
	actionLog := persistlog.NewActionLogger(*dataDir, logOpts)
	defer dayLog.Close()
	defer actionLog.Close()

	drv := engine.NewDriver(eng, w, engine.DriverConfig{
		Rand:         rng.New(*seed),
		DayLogger:    multiDayLogger{a: dayLog, b: idx},
		ActionLogger: multiActionLogger{a: actionLog, b: idx},
	})
	g := newGames(drv, store, *slot, logger)

	ctx, cancel := signalContext()
	defer cancel()

	// Loggers and the index are closed by the defers above, so both loops
	// must be gone before main returns.
	waitBackground := startBackground(ctx, drv, g, time.Duration(tune.AutosaveIntervalMs)*time.Millisecond, logger)

	wsSrv := ws.NewServer(drv, g, store.Slots(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, drv.Metrics(), wsSrv.Sessions())
		if idx != nil {
			writeIndexMetrics(rw, idx.Stats())
		}
		if mirror.enabled {
			writeMirrorMetrics(rw, mirror.Stats())
		}
	})

	enableAdminHTTP := envBool("EE_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("EE_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				ActiveSlot int                  `json:"active_slot"`
				Metrics    engine.DriverMetrics `json:"metrics"`
				Slots      []slots.SlotInfo     `json:"slots"`
			}{
				ActiveSlot: g.ActiveSlot(),
				Metrics:    drv.Metrics(),
				Slots:      store.List(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			target := g.ActiveSlot()
			if v := r.URL.Query().Get("slot"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					http.Error(rw, "bad slot", http.StatusBadRequest)
					return
				}
				target = n
			}
			rw.Header().Set("Content-Type", "application/json")
			meta, err := g.Save(r.Context(), target)
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "slot": target, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "meta": meta})
		})
	} else {
		logger.Printf("admin endpoints disabled (EE_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	waitBackground()
}

// startBackground runs the driver and the autosave loop. The returned wait
// blocks until both have returned; the final autosave runs first so it still
// sees the last published world.
func startBackground(ctx context.Context, drv *engine.Driver, g *games, autosaveEvery time.Duration, logger *log.Logger) (wait func()) {
	driverDone := make(chan struct{})
	autosaveDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		if err := drv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && logger != nil {
			logger.Printf("driver stopped: %v", err)
		}
	}()
	go func() {
		defer close(autosaveDone)
		g.runAutosave(ctx, autosaveEvery)
	}()
	return func() {
		<-autosaveDone
		<-driverDone
	}
}

// initialWorld resumes the slot when it holds a save. A corrupt save is an
// error rather than a silent new game, so autosave never overwrites it.
func initialWorld(store *slots.Store, slot int, fresh bool, eng *engine.Engine, seed uint64) (*state.World, error) {
	if !fresh {
		w, _, err := store.Load(slot)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, slots.ErrEmptySlot) {
			return nil, err
		}
	}
	return worldgen.New(eng.Tuning(), eng.Catalogs(), rng.New(seed)), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiDayLogger struct {
	a engine.DayLogger
	b engine.DayLogger
}

func (m multiDayLogger) WriteDay(entry engine.DayLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteDay(entry)
	}
	if m.b != nil {
		_ = m.b.WriteDay(entry)
	}
	return nil
}

type multiActionLogger struct {
	a engine.ActionLogger
	b engine.ActionLogger
}

func (m multiActionLogger) WriteAction(entry engine.ActionLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteAction(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAction(entry)
	}
	return nil
}
