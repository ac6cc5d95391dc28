package application

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tagship/tagship/internal/domain"
	"go.uber.org/zap"
)

const spoolDebounce = 300 * time.Millisecond

// SpoolWatcher turns a directory into a trigger source: each file
// dropped into it carries one ref on its first line, is consumed
// exactly once, and starts one pipeline run. Runs are serialized on a
// single goroutine; run-level deduplication stays with whoever writes
// the spool.
type SpoolWatcher struct {
	log       *zap.Logger
	seq       *Sequencer
	dir       string
	pauseFile string
}

func NewSpoolWatcher(l *zap.Logger, seq *Sequencer, dir, pauseFile string) *SpoolWatcher {
	return &SpoolWatcher{log: l, seq: seq, dir: dir, pauseFile: pauseFile}
}

func (w *SpoolWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	// Events already in the spool at startup.
	w.Sweep(ctx)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	fire := make(chan struct{}, 1)
	startTimer := func() {
		if timer == nil {
			timer = time.AfterFunc(spoolDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
			return
		}
		timer.Reset(spoolDebounce)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-fire:
			w.Sweep(ctx)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				startTimer()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("fsnotify error", zap.Error(err))
		}
	}
}

// Sweep drains the spool in name order, removing each event file
// before its run so a crash mid-run cannot replay a publish.
func (w *SpoolWatcher) Sweep(ctx context.Context) {
	if w.isPaused() {
		w.log.Debug("paused: skipping spool sweep")
		return
	}

	names, err := listSpool(w.dir)
	if err != nil {
		w.log.Warn("spool read failed", zap.Error(err))
		return
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(w.dir, name)

		ref, err := readRef(path)
		if err != nil {
			w.log.Warn("bad spool event", zap.String("file", name), zap.Error(err))
			_ = os.Remove(path)
			continue
		}
		if err := os.Remove(path); err != nil {
			w.log.Warn("spool consume failed", zap.String("file", name), zap.Error(err))
			continue
		}

		res := w.seq.Run(ctx, domain.TriggerEvent{Ref: ref})
		w.log.Info("run finished",
			zap.String("ref", ref),
			zap.String("status", string(res.Status)),
		)
	}
}

func (w *SpoolWatcher) isPaused() bool {
	if w.pauseFile == "" {
		return false
	}
	_, err := os.Stat(w.pauseFile)
	return err == nil
}

func listSpool(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func readRef(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", os.ErrInvalid
	}
	return strings.TrimSpace(sc.Text()), nil
}
