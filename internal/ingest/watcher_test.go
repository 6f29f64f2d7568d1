package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/parse"
	"github.com/bvsbharat/claimspilot/internal/store"
)

func newWatcher(t *testing.T, dir string, s store.Store, process Process) *Watcher {
	t.Helper()
	return NewWatcher(model.IngestConfig{
		Dir:          dir,
		ClaimsPerSec: 100,
		Burst:        10,
	}, s, parse.NewKeywordParser(), nil, process)
}

func writeBundle(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const jsonBundle = `{
	"claim_number": "CN-1001",
	"claim_amount": 12500,
	"incident_type": "auto",
	"parties": [{"name": "Dana Ortiz", "role": "claimant"}],
	"description": "rear-end collision",
	"raw_text": "rear-end collision at a stop light"
}`

func TestIngestJSONBundle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := store.NewMemoryStore()

	var processed []string
	w := newWatcher(t, dir, s, func(_ context.Context, claimID string) error {
		processed = append(processed, claimID)
		return nil
	})

	path := writeBundle(t, dir, "claim-1001.json", jsonBundle)
	ok, err := w.IngestFile(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, processed, 1)

	claim, err := s.GetClaimByFilename(ctx, "claim-1001.json")
	require.NoError(t, err)
	require.True(t, model.ValidClaimID(claim.ClaimID))
	require.Equal(t, model.StatusUploaded, claim.Status)
	require.Equal(t, 12500.0, claim.ExtractedData.ClaimAmount)
	require.Equal(t, "rear-end collision at a stop light", claim.RawText)
	require.Equal(t, "watch", claim.Source)
}

func TestIngestTextBundleUsesParser(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := store.NewMemoryStore()
	w := newWatcher(t, dir, s, nil)

	path := writeBundle(t, dir, "claim-1002.txt", "Claim Amount: $800\nClaimant: Dana Ortiz\nVehicle collision in parking lot.")
	ok, err := w.IngestFile(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)

	claim, err := s.GetClaimByFilename(ctx, "claim-1002.txt")
	require.NoError(t, err)
	require.Equal(t, 800.0, claim.ExtractedData.ClaimAmount)
	require.Equal(t, model.ClaimTypeAuto, claim.ExtractedData.IncidentType)
	require.NotEmpty(t, claim.RawText)
}

func TestIngestFileDedupesByFilename(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := store.NewMemoryStore()

	calls := 0
	w := newWatcher(t, dir, s, func(context.Context, string) error {
		calls++
		return nil
	})

	path := writeBundle(t, dir, "claim-1003.json", jsonBundle)
	ok, err := w.IngestFile(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = w.IngestFile(ctx, path)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, calls)

	claims, err := s.ListClaims(ctx)
	require.NoError(t, err)
	require.Len(t, claims, 1)
}

func TestSweepIngestsExistingFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := store.NewMemoryStore()
	w := newWatcher(t, dir, s, nil)

	writeBundle(t, dir, "a.json", jsonBundle)
	writeBundle(t, dir, "b.txt", "Claim Amount: $250\nMinor vehicle scrape.")
	writeBundle(t, dir, "notes.md", "not a bundle")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	n, err := w.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	claims, err := s.ListClaims(ctx)
	require.NoError(t, err)
	require.Len(t, claims, 2)

	// Second sweep is a no-op.
	n, err = w.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRunPicksUpDroppedFile(t *testing.T) {
	dir := t.TempDir()
	s := store.NewMemoryStore()
	w := newWatcher(t, dir, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, nil) }()

	// Give the watcher time to register before dropping the file.
	time.Sleep(100 * time.Millisecond)
	writeBundle(t, dir, "dropped.json", jsonBundle)

	require.Eventually(t, func() bool {
		_, err := s.GetClaimByFilename(context.Background(), "dropped.json")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestIngestMalformedJSON(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := store.NewMemoryStore()
	w := newWatcher(t, dir, s, nil)

	path := writeBundle(t, dir, "broken.json", "{not json")
	_, err := w.IngestFile(ctx, path)
	require.Error(t, err)

	_, err = s.GetClaimByFilename(ctx, "broken.json")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunIngestsBurstOfFiles(t *testing.T) {
	dir := t.TempDir()
	s := store.NewMemoryStore()
	w := newWatcher(t, dir, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, nil) }()
	time.Sleep(100 * time.Millisecond)

	// A burst of drops lands one timer per file, so no bundle waits in
	// line behind another's settle window.
	names := []string{"burst-1.json", "burst-2.json", "burst-3.json", "burst-4.json"}
	for _, name := range names {
		writeBundle(t, dir, name, jsonBundle)
	}

	require.Eventually(t, func() bool {
		claims, err := s.ListClaims(context.Background(), model.StatusUploaded)
		return err == nil && len(claims) == len(names)
	}, 5*time.Second, 50*time.Millisecond)

	for _, name := range names {
		_, err := s.GetClaimByFilename(context.Background(), name)
		require.NoError(t, err)
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
