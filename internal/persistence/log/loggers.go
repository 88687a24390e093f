package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"estateempire.io/internal/sim/engine"
)

// HourlyLayout rotates files every UTC hour.
const HourlyLayout = "2006-01-02-15"

type WriterOptions struct {
	// RotateLayout is a time layout; a new file starts whenever the formatted
	// clock changes. Empty means HourlyLayout.
	RotateLayout string
	Clock        func() time.Time
	// OnClose receives each finished file, e.g. to mirror it off-host.
	OnClose func(path string)
}

// JSONLZstdWriter appends JSON lines to zstd-compressed files that rotate on
// the wall clock.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	opts    WriterOptions

	mu     sync.Mutex
	curKey string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, opts WriterOptions) *JSONLZstdWriter {
	if opts.RotateLayout == "" {
		opts.RotateLayout = HourlyLayout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &JSONLZstdWriter{baseDir: baseDir, prefix: prefix, opts: opts}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := w.opts.Clock().UTC().Format(w.opts.RotateLayout)
	if key != w.curKey {
		if err := w.rotateLocked(key); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	// Push the block to the file so a crash loses at most the current line.
	return w.enc.Flush()
}

// Path is the file a given rotation key maps to.
func (w *JSONLZstdWriter) Path(key string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, key))
}

func (w *JSONLZstdWriter) rotateLocked(key string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.Path(key), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curKey = key
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
		if w.opts.OnClose != nil {
			w.opts.OnClose(w.Path(w.curKey))
		}
	}
	w.w = nil
	return err1
}

// DayLogger writes one JSONL entry per simulated day.
type DayLogger struct{ w *JSONLZstdWriter }

func NewDayLogger(dataDir string, opts WriterOptions) *DayLogger {
	return &DayLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "days"), "days", opts)}
}

func (l *DayLogger) WriteDay(v engine.DayLogEntry) error { return l.w.Write(v) }
func (l *DayLogger) Close() error                        { return l.w.Close() }

// ActionLogger writes one JSONL entry per player action, applied or not.
type ActionLogger struct{ w *JSONLZstdWriter }

func NewActionLogger(dataDir string, opts WriterOptions) *ActionLogger {
	return &ActionLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "actions"), "actions", opts)}
}

func (l *ActionLogger) WriteAction(v engine.ActionLogEntry) error { return l.w.Write(v) }
func (l *ActionLogger) Close() error                              { return l.w.Close() }
