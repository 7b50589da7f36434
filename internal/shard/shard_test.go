package shard

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeShard(t *testing.T, dir, name string, records []map[string]interface{}) string {
	t.Helper()

	data, err := json.Marshal(records)
	require.NoError(t, err)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func writeRaw(t *testing.T, dir, name string, payload []byte, compress bool) string {
	t.Helper()

	data := payload
	if compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write(payload)
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		data = buf.Bytes()
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDiscover_SortedLexicographically(t *testing.T) {
	dir := t.TempDir()

	// Written out of order on purpose
	writeShard(t, dir, "matches_part0003.json.gz", []map[string]interface{}{})
	writeShard(t, dir, "matches_part0001.json.gz", []map[string]interface{}{})
	writeShard(t, dir, "matches_part0002.json.gz", []map[string]interface{}{})
	writeRaw(t, dir, "other_file.txt", []byte("ignore me"), false)

	paths, err := Discover(dir, "matches_part*.json.gz")
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Equal(t, "matches_part0001.json.gz", filepath.Base(paths[0]))
	assert.Equal(t, "matches_part0002.json.gz", filepath.Base(paths[1]))
	assert.Equal(t, "matches_part0003.json.gz", filepath.Base(paths[2]))
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	paths, err := Discover(t.TempDir(), "matches_part*.json.gz")
	require.NoError(t, err)
	assert.Empty(t, paths, "No shards is an empty result, not an error")
}

func TestRead_ValidShard(t *testing.T) {
	dir := t.TempDir()
	path := writeShard(t, dir, "matches_part0001.json.gz", []map[string]interface{}{
		{"id": "evt_20250115_001", "markets": map[string]interface{}{"1x2": "odds"}},
		{"id": "evt_20250115_002", "date": "20250115"},
	})

	records, err := Read(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "evt_20250115_001", records[0]["id"])
}

func TestRead_EmptyArray(t *testing.T) {
	dir := t.TempDir()
	path := writeShard(t, dir, "matches_part0001.json.gz", []map[string]interface{}{})

	records, err := Read(path)
	require.NoError(t, err, "Empty array is a valid zero-record shard")
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRead_NotGzip(t *testing.T) {
	dir := t.TempDir()
	path := writeRaw(t, dir, "matches_part0001.json.gz", []byte(`[{"id":"x"}]`), false)

	_, err := Read(path)
	var corrupt *CorruptShardError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, path, corrupt.Path)
}

func TestRead_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeRaw(t, dir, "matches_part0001.json.gz", []byte(`[{"id": "trunc`), true)

	_, err := Read(path)
	var corrupt *CorruptShardError
	require.ErrorAs(t, err, &corrupt)
}

func TestRead_NotAnArray(t *testing.T) {
	dir := t.TempDir()

	for name, payload := range map[string]string{
		"object.json.gz":  `{"id": "evt_1"}`,
		"null.json.gz":    `null`,
		"scalars.json.gz": `[1, 2, 3]`,
	} {
		path := writeRaw(t, dir, name, []byte(payload), true)

		_, err := Read(path)
		var corrupt *CorruptShardError
		require.ErrorAs(t, err, &corrupt, "payload %s should be rejected", name)
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "matches_part9999.json.gz"))
	var corrupt *CorruptShardError
	require.ErrorAs(t, err, &corrupt)
}
