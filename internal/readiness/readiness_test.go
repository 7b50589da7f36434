package readiness

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	healthErr error
}

func (f *fakeStore) Health(context.Context) error { return f.healthErr }

type fakeMatches struct {
	count       int64
	withMarkets int64
	indexes     []string
	countErr    error
}

func (f *fakeMatches) Count(context.Context) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeMatches) CountWithMarkets(context.Context) (int64, error) {
	return f.withMarkets, f.countErr
}

func (f *fakeMatches) IndexNames(context.Context) ([]string, error) {
	return f.indexes, nil
}

func shardDirWithFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte("[]"))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
	}
	return dir
}

func allIndexes() []string {
	return []string{"_id_", "id_unique", "date_asc", "date_markets"}
}

func TestRun_AllChecksPass(t *testing.T) {
	dir := shardDirWithFiles(t, "matches_part0001.json.gz")

	report := Run(context.Background(),
		&fakeStore{},
		&fakeMatches{count: 1500, withMarkets: 1400, indexes: allIndexes()},
		dir, "matches_part*.json.gz")

	assert.True(t, report.Ready())
	assert.Len(t, report.Checks, 5)
	for _, c := range report.Checks {
		assert.True(t, c.OK, "check %s failed: %s", c.Name, c.Message)
	}
}

func TestRun_StoreUnreachable(t *testing.T) {
	dir := shardDirWithFiles(t)

	report := Run(context.Background(),
		&fakeStore{healthErr: errors.New("connection refused")},
		&fakeMatches{},
		dir, "matches_part*.json.gz")

	assert.False(t, report.Ready())

	// Data checks fail alongside the store check rather than vanishing
	failed := 0
	for _, c := range report.Checks {
		if !c.OK {
			failed++
		}
	}
	assert.Equal(t, 4, failed)
}

func TestRun_EmptyCollection(t *testing.T) {
	dir := shardDirWithFiles(t)

	report := Run(context.Background(),
		&fakeStore{},
		&fakeMatches{count: 0, withMarkets: 0, indexes: allIndexes()},
		dir, "matches_part*.json.gz")

	assert.False(t, report.Ready())
}

func TestRun_MissingIndexes(t *testing.T) {
	dir := shardDirWithFiles(t)

	report := Run(context.Background(),
		&fakeStore{},
		&fakeMatches{count: 10, withMarkets: 10, indexes: []string{"_id_", "date_asc"}},
		dir, "matches_part*.json.gz")

	assert.False(t, report.Ready())

	var indexCheck *Check
	for i := range report.Checks {
		if report.Checks[i].Name == "indexes" {
			indexCheck = &report.Checks[i]
		}
	}
	require.NotNil(t, indexCheck)
	assert.False(t, indexCheck.OK)
	assert.Contains(t, indexCheck.Message, "id_unique")
	assert.Contains(t, indexCheck.Message, "date_markets")
}

func TestRun_MissingShardDir(t *testing.T) {
	report := Run(context.Background(),
		&fakeStore{},
		&fakeMatches{count: 10, withMarkets: 10, indexes: allIndexes()},
		filepath.Join(t.TempDir(), "does-not-exist"), "matches_part*.json.gz")

	assert.False(t, report.Ready())
}

func TestReport_String(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "store", OK: true, Message: "reachable"},
		{Name: "matches", OK: false, Message: "no match records ingested"},
	}}

	out := report.String()
	assert.Contains(t, out, "[PASS] store")
	assert.Contains(t, out, "[FAIL] matches")
	assert.Contains(t, out, "System NOT ready")
}
