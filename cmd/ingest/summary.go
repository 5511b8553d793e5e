package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/usecase"
)

var outcomeOrder = []entity.Outcome{
	entity.OutcomePersisted,
	entity.OutcomeMapped,
	entity.OutcomeDuplicate,
	entity.OutcomeInvalid,
	entity.OutcomeFailed,
	entity.OutcomeError,
	entity.OutcomeCancelled,
}

// printSummary writes outcome counts, record-level failures and the first
// error samples of each category.
func printSummary(w io.Writer, res *usecase.BatchResult) {
	s := res.Stats
	fmt.Fprintf(w, "run %s: %d artifacts in %s\n", res.RunID, s.Total, s.Duration.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, o := range outcomeOrder {
		if n := s.Count(o); n > 0 {
			fmt.Fprintf(tw, "  %s\t%d\n", o, n)
		}
	}
	_ = tw.Flush()

	if len(s.RecordFailures) > 0 {
		fmt.Fprintln(w, "record failures:")
		for _, op := range sortedKeys(s.RecordFailures) {
			fmt.Fprintf(w, "  %s: %d\n", op, s.RecordFailures[op])
		}
	}

	if len(s.ErrorCounts) > 0 {
		fmt.Fprintln(w, "errors:")
		cats := make([]string, 0, len(s.ErrorCounts))
		for c := range s.ErrorCounts {
			cats = append(cats, string(c))
		}
		sort.Strings(cats)
		for _, c := range cats {
			cat := entity.ErrorCategory(c)
			fmt.Fprintf(w, "  %s (%d)\n", cat, s.ErrorCounts[cat])
			for _, sample := range s.ErrorSamples[cat] {
				fmt.Fprintf(w, "    - %s\n", sample)
			}
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
