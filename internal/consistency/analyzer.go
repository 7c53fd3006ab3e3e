package consistency

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/scansheet/omr-decoder/internal/decode"
)

// MinRuns and MaxRuns bound the repeat-mode run count, inclusive.
const (
	MinRuns = 2
	MaxRuns = 10
)

// InvalidRunCountError reports a repeat-mode run count outside [MinRuns,
// MaxRuns]. It is rejected before any processing happens.
type InvalidRunCountError struct {
	Runs int
}

func (e *InvalidRunCountError) Error() string {
	return fmt.Sprintf("invalid run count %d: must be between %d and %d", e.Runs, MinRuns, MaxRuns)
}

// ErrAllRunsFailed is returned when not a single run produced a result.
var ErrAllRunsFailed = errors.New("all repeat-mode runs failed")

// Runner executes one independent pipeline run and returns its result.
// The analyzer calls it sequentially with the run index (0-based).
type Runner func(run int) (*decode.Result, error)

// RunRecord is the outcome of one run.
type RunRecord struct {
	// Run is the 0-based run index.
	Run int `json:"run"`

	// Error is empty for a successful run.
	Error string `json:"error,omitempty"`

	// Elapsed is the run's processing time; zero for failed runs.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// QuestionStat is the run-by-run answer table for one question.
type QuestionStat struct {
	Field string `json:"field"`

	// Answers holds the primary answer from each successful run, in run
	// order. The no-answer sentinel appears as an empty string.
	Answers []string `json:"answers"`

	// Consistent is true iff all successful runs agree.
	Consistent bool `json:"consistent"`
}

// Report is the finalized determinism analysis.
type Report struct {
	TotalRuns      int `json:"total_runs"`
	SuccessfulRuns int `json:"successful_runs"`
	FailedRuns     int `json:"failed_runs"`

	TotalQuestions        int `json:"total_questions"`
	ConsistentQuestions   int `json:"consistent_questions"`
	InconsistentQuestions int `json:"inconsistent_questions"`

	// ConsistencyRate is ConsistentQuestions / TotalQuestions, in [0, 1].
	ConsistencyRate float64 `json:"consistency_rate"`

	// AverageRunTime is the mean elapsed time over successful runs.
	AverageRunTime time.Duration `json:"average_run_time_ns"`

	Runs      []RunRecord    `json:"runs"`
	Questions []QuestionStat `json:"questions"`
}

// Analyze executes runner `runs` times sequentially and aggregates the
// per-question agreement across the successful runs. A canceled context
// aborts between runs.
//
// Questions are compared only when present in every successful run; the
// question table is sorted by field label for deterministic output.
func Analyze(ctx context.Context, runner Runner, runs int) (*Report, error) {
	if runs < MinRuns || runs > MaxRuns {
		return nil, &InvalidRunCountError{Runs: runs}
	}

	report := &Report{TotalRuns: runs}
	var results []*decode.Result
	var times []float64

	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := runner(i)
		if err != nil {
			report.Runs = append(report.Runs, RunRecord{Run: i, Error: err.Error()})
			report.FailedRuns++
			continue
		}
		report.Runs = append(report.Runs, RunRecord{Run: i, Elapsed: res.Elapsed})
		report.SuccessfulRuns++
		results = append(results, res)
		times = append(times, float64(res.Elapsed))
	}

	if report.SuccessfulRuns == 0 {
		return nil, fmt.Errorf("%w: %d runs attempted", ErrAllRunsFailed, runs)
	}

	report.AverageRunTime = time.Duration(stat.Mean(times, nil))

	for _, field := range commonFields(results) {
		qs := QuestionStat{Field: field, Consistent: true}
		for _, res := range results {
			qs.Answers = append(qs.Answers, res.Answers[field])
		}
		for _, a := range qs.Answers[1:] {
			if a != qs.Answers[0] {
				qs.Consistent = false
				break
			}
		}

		report.Questions = append(report.Questions, qs)
		report.TotalQuestions++
		if qs.Consistent {
			report.ConsistentQuestions++
		} else {
			report.InconsistentQuestions++
		}
	}

	if report.TotalQuestions > 0 {
		report.ConsistencyRate = float64(report.ConsistentQuestions) / float64(report.TotalQuestions)
	}

	return report, nil
}

// commonFields returns, sorted, the field labels present in every result.
func commonFields(results []*decode.Result) []string {
	if len(results) == 0 {
		return nil
	}

	fields := make([]string, 0, len(results[0].Answers))
	for field := range results[0].Answers {
		inAll := true
		for _, res := range results[1:] {
			if _, ok := res.Answers[field]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}
