package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scansheet/omr-decoder/internal/consistency"
	"github.com/scansheet/omr-decoder/internal/omr"
)

func newRepeatCommand(ctx *commandContext) *cobra.Command {
	var runs int
	var autoAlign bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "repeat <image>",
		Short: "Decode one image repeatedly and report per-question agreement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.buildEngine(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			report, err := engine.Repeat(cmd.Context(), data, omr.ProcessOptions{AutoAlign: autoAlign}, runs)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, report)
			}
			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().IntVarP(&runs, "runs", "n", consistency.MinRuns,
		fmt.Sprintf("Number of runs, between %d and %d", consistency.MinRuns, consistency.MaxRuns))
	cmd.Flags().BoolVar(&autoAlign, "auto-align", false, "Apply the bounded geometric correction after marker cropping")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")

	return cmd
}

func printReport(cmd *cobra.Command, report *consistency.Report) {
	rows := make([][]string, 0, len(report.Questions))
	for _, q := range report.Questions {
		answers := make([]string, len(q.Answers))
		for i, a := range q.Answers {
			if a == "" {
				a = "-"
			}
			answers[i] = a
		}
		status := "ok"
		if !q.Consistent {
			status = "INCONSISTENT"
		}
		rows = append(rows, []string{q.Field, strings.Join(answers, " "), status})
	}
	cmd.Println(renderTable(
		[]string{"Question", "Answers", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))

	summary := [][]string{
		{"Runs", fmt.Sprintf("%d (%d ok, %d failed)", report.TotalRuns, report.SuccessfulRuns, report.FailedRuns)},
		{"Questions", strconv.Itoa(report.TotalQuestions)},
		{"Consistent", strconv.Itoa(report.ConsistentQuestions)},
		{"Inconsistent", strconv.Itoa(report.InconsistentQuestions)},
		{"Consistency rate", fmt.Sprintf("%.1f%%", report.ConsistencyRate*100)},
		{"Average run time", report.AverageRunTime.String()},
	}
	cmd.Println(renderTable(
		[]string{"Repeat", "Value"},
		summary,
		[]columnAlignment{alignLeft, alignRight},
	))

	for _, run := range report.Runs {
		if run.Error != "" {
			cmd.Printf("run %d failed: %s\n", run.Run, run.Error)
		}
	}
}
