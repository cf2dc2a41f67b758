package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"porkvision/internal/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(id, source string, at time.Time, risk float64) *audit.Report {
	pct := 42.5
	return &audit.Report{
		ID:     id,
		Source: source,
		Result: audit.AuditResult{
			PorkBarrel:           []audit.PorkItem{{Item: "Sec. 3", Reason: "earmark", Risk: audit.RiskMedium}},
			LobbyistFingerprints: []audit.LobbyistFingerprint{},
			Contradictions:       []audit.Contradiction{},
			PorkPercentage:       &pct,
			OverallRiskScore:     risk,
			Summary:              "summary of " + source,
		},
		LocalFlags:       []audit.LocalRedFlag{{Kind: "No-Bid Contract Provision", Description: "sole source", Severity: audit.RiskHigh}},
		ModelMatches:     []audit.SimilarityMatch{},
		LobbyistSummary:  []audit.LobbyistSummaryEntry{},
		GroundingSources: []string{"https://example.gov"},
		Degraded:         true,
		Attempts:         3,
		GeneratedAt:      at,
	}
}

func TestStore_SaveGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.Save(ctx, sampleReport("", "hb42.txt", at, 80))
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "hb42.txt", got.Source)
	assert.True(t, got.GeneratedAt.Equal(at))
	assert.Equal(t, 80.0, got.Result.OverallRiskScore)
	require.NotNil(t, got.Result.PorkPercentage)
	assert.Equal(t, 42.5, *got.Result.PorkPercentage)
	assert.Equal(t, audit.RiskHigh, got.LocalFlags[0].Severity)
	assert.True(t, got.Degraded)
	assert.Equal(t, 3, got.Attempts)
}

func TestStore_KeepsGivenID(t *testing.T) {
	s := openTemp(t)
	id, err := s.Save(context.Background(), sampleReport("fixed-id", "a", time.Now(), 10))
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, src := range []string{"first", "second", "third"} {
		_, err := s.Save(ctx, sampleReport(src, src, base.Add(time.Duration(i)*time.Hour), float64(10*i)))
		require.NoError(t, err)
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, 20.0, all[0].OverallRisk)
	assert.Equal(t, 42.5, all[0].PorkPercentage)
	assert.True(t, all[0].Degraded)
	assert.Equal(t, "summary of third", all[0].Summary)
	assert.True(t, all[2].CreatedAt.Equal(base))

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestStore_EmptyList(t *testing.T) {
	entries, err := openTemp(t).List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestStore_NotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Delete(context.Background(), "nope"), ErrNotFound))
}

func TestStore_Delete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	id, err := s.Save(ctx, sampleReport("", "x", time.Now(), 1))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.Save(context.Background(), sampleReport("", "persisted", time.Now(), 5))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Source)
}

func TestRunMigrations_AddsMissingColumn(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE reports (id TEXT PRIMARY KEY, report_json TEXT)`)
	require.NoError(t, err)
	require.False(t, columnExists(db, "reports", "degraded"))

	require.NoError(t, RunMigrations(db))
	assert.True(t, columnExists(db, "reports", "degraded"))

	require.NoError(t, RunMigrations(db), "second run is a no-op")
}

func TestRunMigrations_SkipsMissingTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, RunMigrations(db))
	assert.False(t, tableExists(db, "reports"))
}
