// Package shard handles discovery and reading of compressed match shard
// files (matches_part*.json.gz): gzip containers each holding a JSON array
// of match record objects.
package shard

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// CorruptShardError indicates a shard file could not be decompressed or
// parsed into an array of record objects. The shard is skipped and recorded
// as failed; the run continues.
type CorruptShardError struct {
	Path string
	Err  error
}

func (e *CorruptShardError) Error() string {
	return fmt.Sprintf("corrupt shard %s: %v", e.Path, e.Err)
}

func (e *CorruptShardError) Unwrap() error {
	return e.Err
}

// Discover returns the shard files in dir matching pattern, sorted
// lexicographically by filename. Zero matches is not an error; the caller
// treats it as an empty run.
func Discover(dir, pattern string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid shard pattern %q: %w", pattern, err)
	}

	sort.Strings(paths)

	log.Debug().
		Str("dir", dir).
		Str("pattern", pattern).
		Int("count", len(paths)).
		Msg("Discovered shards")

	return paths, nil
}

// Read decompresses and parses one shard file into raw match records.
// An empty array is a valid zero-record result. Any decompression or parse
// failure, including a payload that is not an array of objects, is reported
// as a CorruptShardError.
func Read(path string) ([]map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &CorruptShardError{Path: path, Err: err}
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, &CorruptShardError{Path: path, Err: fmt.Errorf("gzip: %w", err)}
	}
	defer gz.Close()

	var records []map[string]interface{}
	if err := json.NewDecoder(gz).Decode(&records); err != nil {
		return nil, &CorruptShardError{Path: path, Err: fmt.Errorf("json: %w", err)}
	}
	// A JSON null decodes without error but is not an array; an empty
	// array decodes to a non-nil zero-length slice.
	if records == nil {
		return nil, &CorruptShardError{Path: path, Err: fmt.Errorf("json: payload is not an array")}
	}

	return records, nil
}
