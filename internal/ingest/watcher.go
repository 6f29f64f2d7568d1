// Package ingest feeds the pipeline from a drop directory. New claim
// bundles (.json with pre-extracted fields, or .txt raw documents) are
// picked up by an fsnotify watcher, rate limited, registered as uploaded
// claims, and handed to the processor.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/bvsbharat/claimspilot/internal/events"
	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/parse"
	"github.com/bvsbharat/claimspilot/internal/store"
)

// settleDelay gives the writer time to finish the file after the create
// event fires. Repeated write events within the window reset it.
const settleDelay = 200 * time.Millisecond

// Process is the downstream pipeline hook; it receives a registered claim id.
type Process func(ctx context.Context, claimID string) error

// Watcher ingests claim bundles from a directory.
type Watcher struct {
	dir     string
	store   store.Store
	parser  parse.Parser
	bus     *events.Bus
	limiter *rate.Limiter
	process Process
	now     func() time.Time
}

// NewWatcher creates a drop-directory watcher.
func NewWatcher(cfg model.IngestConfig, st store.Store, parser parse.Parser, bus *events.Bus, process Process) *Watcher {
	perSec := cfg.ClaimsPerSec
	if perSec <= 0 {
		perSec = 1
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Watcher{
		dir:     cfg.Dir,
		store:   st,
		parser:  parser,
		bus:     bus,
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		process: process,
		now:     time.Now,
	}
}

// Sweep ingests every bundle already sitting in the directory. Files that
// were ingested on a previous run are skipped by filename.
func (w *Watcher) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read drop dir %s: %w", w.dir, err)
	}

	ingested := 0
	for _, entry := range entries {
		if entry.IsDir() || !bundleFile(entry.Name()) {
			continue
		}
		ok, err := w.IngestFile(ctx, filepath.Join(w.dir, entry.Name()))
		if err != nil {
			return ingested, err
		}
		if ok {
			ingested++
		}
	}
	return ingested, nil
}

// Run watches the directory until the context is cancelled. Ingestion
// errors for individual files are reported through errs and do not stop
// the watcher. Each file is debounced on its own timer so a still-being
// written bundle never holds up the rest of the event stream.
func (w *Watcher) Run(ctx context.Context, errs chan<- error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !bundleFile(event.Name) {
				continue
			}
			mu.Lock()
			if t, ok := pending[event.Name]; ok {
				t.Reset(settleDelay)
				mu.Unlock()
				continue
			}
			path := event.Name
			pending[path] = time.AfterFunc(settleDelay, func() {
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				if _, err := w.IngestFile(ctx, path); err != nil && ctx.Err() == nil {
					report(errs, err)
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			report(errs, fmt.Errorf("watcher: %w", err))
		}
	}
}

// IngestFile registers one bundle and runs the pipeline on it. Returns
// false when the file was already ingested.
func (w *Watcher) IngestFile(ctx context.Context, path string) (bool, error) {
	filename := filepath.Base(path)

	_, err := w.store.GetClaimByFilename(ctx, filename)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("check %s: %w", filename, err)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return false, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filename, err)
	}

	data, rawText, err := w.extract(ctx, filename, raw)
	if err != nil {
		return false, err
	}

	claimID, err := model.NewClaimID(w.now())
	if err != nil {
		return false, err
	}
	claim := &model.Claim{
		ClaimID:        claimID,
		SourceFilename: filename,
		Source:         "watch",
		Status:         model.StatusUploaded,
		ExtractedData:  data,
		RawText:        rawText,
	}
	if err := w.store.SaveClaim(ctx, claim); err != nil {
		return false, fmt.Errorf("register %s: %w", filename, err)
	}
	if w.bus != nil {
		w.bus.Publish(model.Event{
			Type:    model.EventClaimUploaded,
			ClaimID: claimID,
			Status:  model.StatusUploaded,
			Message: fmt.Sprintf("ingested %s", filename),
		})
	}

	if w.process != nil {
		if err := w.process(ctx, claimID); err != nil {
			return true, fmt.Errorf("process %s: %w", claimID, err)
		}
	}
	return true, nil
}

// extract produces structured fields for a bundle. JSON bundles carry the
// fields directly; anything else goes through the text parser.
func (w *Watcher) extract(ctx context.Context, filename string, raw []byte) (*model.ExtractedData, string, error) {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		var bundle struct {
			model.ExtractedData
			RawText string `json:"raw_text"`
		}
		if err := json.Unmarshal(raw, &bundle); err != nil {
			return nil, "", fmt.Errorf("decode bundle %s: %w", filename, err)
		}
		return &bundle.ExtractedData, bundle.RawText, nil
	}

	rawText := string(raw)
	data, err := w.parser.Parse(ctx, rawText)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", filename, err)
	}
	return data, rawText, nil
}

func bundleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".txt":
		return true
	}
	return false
}

func report(errs chan<- error, err error) {
	if errs == nil {
		return
	}
	select {
	case errs <- err:
	default:
	}
}
