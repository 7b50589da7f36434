package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Shard failure kinds surfaced in the run summary.
const (
	FailureCorruptShard     = "corrupt_shard"
	FailureStoreUnavailable = "store_unavailable"
)

// ShardFailure records one failed shard and why.
type ShardFailure struct {
	Shard string
	Kind  string
	Cause string
}

// InsertionReport is the per-shard outcome of one ingestion pass.
type InsertionReport struct {
	Shard      string
	Records    int
	Inserted   int
	Duplicates int
	Malformed  int
}

// RunSummary aggregates all shards' outcomes for one pipeline run.
type RunSummary struct {
	ShardsDiscovered int
	ShardsSkipped    int
	RecordsInserted  int
	RecordsDuplicate int
	RecordsMalformed int
	Reports          []InsertionReport
	Failures         []ShardFailure
	IndexError       string
	Aborted          bool
	Duration         time.Duration
}

// Success reports whether the run completed with every discovered shard
// ingested and indexes ensured. Duplicate rejections and malformed records
// do not count against success.
func (s *RunSummary) Success() bool {
	return !s.Aborted && len(s.Failures) == 0 && s.IndexError == ""
}

// String renders the operator-facing end-of-run report.
func (s *RunSummary) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ingestion run finished in %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  shards discovered: %d\n", s.ShardsDiscovered)
	if s.ShardsSkipped > 0 {
		fmt.Fprintf(&b, "  shards skipped (already complete): %d\n", s.ShardsSkipped)
	}
	fmt.Fprintf(&b, "  records inserted:  %d\n", s.RecordsInserted)
	fmt.Fprintf(&b, "  duplicates:        %d\n", s.RecordsDuplicate)
	fmt.Fprintf(&b, "  malformed:         %d\n", s.RecordsMalformed)
	fmt.Fprintf(&b, "  failed shards:     %d\n", len(s.Failures))

	for _, f := range s.Failures {
		fmt.Fprintf(&b, "    %s [%s]: %s\n", f.Shard, f.Kind, f.Cause)
	}
	if s.IndexError != "" {
		fmt.Fprintf(&b, "  index declaration failed: %s\n", s.IndexError)
	}
	if s.Aborted {
		b.WriteString("  run aborted early: store unreachable for consecutive shards\n")
	}

	return b.String()
}
