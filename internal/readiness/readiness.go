// Package readiness validates that the ingested dataset is usable by the
// downstream training engine and betting agent. It is a pure report
// builder: every check returns pass/fail with a message, and nothing here
// drives control flow through panics or sentinel errors.
package readiness

import (
	"context"
	"fmt"
	"os"
	"strings"

	"betlab/ingestion/internal/shard"
)

// StoreChecker is the store health surface the checks need.
type StoreChecker interface {
	Health(ctx context.Context) error
}

// MatchReader is the match collection surface the checks need.
type MatchReader interface {
	Count(ctx context.Context) (int64, error)
	CountWithMarkets(ctx context.Context) (int64, error)
	IndexNames(ctx context.Context) ([]string, error)
}

// Check is one named readiness probe outcome.
type Check struct {
	Name    string
	OK      bool
	Message string
}

// Report lists all readiness checks for one inspection pass.
type Report struct {
	Checks []Check
}

// Ready reports whether every check passed.
func (r Report) Ready() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// String renders the operator-facing checklist.
func (r Report) String() string {
	var b strings.Builder
	for _, c := range r.Checks {
		status := "PASS"
		if !c.OK {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %-18s %s\n", status, c.Name, c.Message)
	}
	if r.Ready() {
		b.WriteString("System ready\n")
	} else {
		b.WriteString("System NOT ready\n")
	}
	return b.String()
}

// requiredIndexes must all be declared before downstream queries are served.
var requiredIndexes = []string{"id_unique", "date_asc", "date_markets"}

// Run performs all readiness checks and returns the report.
func Run(ctx context.Context, store StoreChecker, matches MatchReader, shardDir, shardGlob string) Report {
	var report Report

	// Store reachable
	if err := store.Health(ctx); err != nil {
		report.Checks = append(report.Checks, Check{Name: "store", Message: err.Error()})
		// Without the store the data checks below can only fail noisily;
		// report them as failed with the same cause.
		report.Checks = append(report.Checks,
			Check{Name: "matches", Message: "store unreachable"},
			Check{Name: "market data", Message: "store unreachable"},
			Check{Name: "indexes", Message: "store unreachable"},
		)
	} else {
		report.Checks = append(report.Checks, Check{Name: "store", OK: true, Message: "reachable"})
		report.Checks = append(report.Checks, checkMatches(ctx, matches))
		report.Checks = append(report.Checks, checkMarkets(ctx, matches))
		report.Checks = append(report.Checks, checkIndexes(ctx, matches))
	}

	report.Checks = append(report.Checks, checkShardDir(shardDir, shardGlob))

	return report
}

func checkMatches(ctx context.Context, matches MatchReader) Check {
	count, err := matches.Count(ctx)
	if err != nil {
		return Check{Name: "matches", Message: err.Error()}
	}
	if count == 0 {
		return Check{Name: "matches", Message: "no match records ingested"}
	}
	return Check{Name: "matches", OK: true, Message: fmt.Sprintf("%d records", count)}
}

func checkMarkets(ctx context.Context, matches MatchReader) Check {
	count, err := matches.CountWithMarkets(ctx)
	if err != nil {
		return Check{Name: "market data", Message: err.Error()}
	}
	if count == 0 {
		return Check{Name: "market data", Message: "no records carry market data"}
	}
	return Check{Name: "market data", OK: true, Message: fmt.Sprintf("%d records with markets", count)}
}

func checkIndexes(ctx context.Context, matches MatchReader) Check {
	names, err := matches.IndexNames(ctx)
	if err != nil {
		return Check{Name: "indexes", Message: err.Error()}
	}

	declared := make(map[string]bool, len(names))
	for _, n := range names {
		declared[n] = true
	}

	var missing []string
	for _, want := range requiredIndexes {
		if !declared[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return Check{Name: "indexes", Message: "missing: " + strings.Join(missing, ", ")}
	}
	return Check{Name: "indexes", OK: true, Message: "all declared"}
}

func checkShardDir(dir, glob string) Check {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Check{Name: "shard directory", Message: fmt.Sprintf("%s is not a readable directory", dir)}
	}

	paths, err := shard.Discover(dir, glob)
	if err != nil {
		return Check{Name: "shard directory", Message: err.Error()}
	}
	return Check{Name: "shard directory", OK: true, Message: fmt.Sprintf("%d shard files", len(paths))}
}
