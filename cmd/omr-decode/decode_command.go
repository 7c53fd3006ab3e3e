package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scansheet/omr-decoder/internal/decode"
	"github.com/scansheet/omr-decoder/internal/omr"
)

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var autoAlign bool
	var jsonOutput bool
	var overlayDir string

	cmd := &cobra.Command{
		Use:   "decode <image-or-directory>",
		Short: "Decode one sheet image or every image in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.buildEngine(args[0])
			if err != nil {
				return err
			}
			paths, err := collectImages(args[0])
			if err != nil {
				return err
			}

			inputs := make([]omr.BatchInput, 0, len(paths))
			for _, path := range paths {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				inputs = append(inputs, omr.BatchInput{Name: filepath.Base(path), Data: data})
			}

			opts := omr.ProcessOptions{
				AutoAlign:    autoAlign,
				IncludeImage: overlayDir != "",
			}
			summary := engine.ProcessBatch(cmd.Context(), inputs, opts)

			if overlayDir != "" {
				if err := saveOverlays(overlayDir, summary); err != nil {
					return err
				}
			}

			if jsonOutput {
				return printJSON(cmd, summary)
			}

			order := decode.FieldOrder(engine.Template())
			for _, item := range summary.Items {
				printItem(cmd, item, order)
			}
			if len(summary.Items) > 1 {
				printBatchSummary(cmd, summary)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d images failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoAlign, "auto-align", false, "Apply the bounded geometric correction after marker cropping")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the batch summary as JSON")
	cmd.Flags().StringVar(&overlayDir, "save-overlays", "", "Directory to write annotated sheet images into")

	return cmd
}

func printItem(cmd *cobra.Command, item omr.BatchItem, order []string) {
	if item.Error != "" {
		cmd.Printf("%s: FAILED: %s\n\n", item.Name, item.Error)
		return
	}
	res := item.Output.Result

	rows := make([][]string, 0, len(order))
	for _, field := range order {
		answer, ok := res.Answers[field]
		if !ok {
			continue
		}
		display := answer
		if answer == decode.NoAnswer {
			display = "-"
		}
		note := ""
		if len(res.Raw[field]) > 1 {
			note = "multi"
		}
		rows = append(rows, []string{field, display, note})
	}

	cmd.Println(item.Name)
	cmd.Println(renderTable(
		[]string{"Question", "Answer", ""},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
	cmd.Printf("multi-marked questions: %d, elapsed: %s\n", res.MultiMarkedCount, res.Elapsed)
	for _, w := range item.Output.Warnings {
		cmd.Printf("warning: %s\n", w)
	}
	cmd.Println()
}

func printBatchSummary(cmd *cobra.Command, summary *omr.BatchSummary) {
	rows := [][]string{
		{"Total", strconv.Itoa(summary.Total)},
		{"Successful", strconv.Itoa(summary.Successful)},
		{"Failed", strconv.Itoa(summary.Failed)},
	}
	cmd.Println(renderTable(
		[]string{"Batch", "Count"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

// saveOverlays writes each decoded item's annotated image to dir, named
// after the input with a .png extension.
func saveOverlays(dir string, summary *omr.BatchSummary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, item := range summary.Items {
		if item.Output == nil || item.Output.Overlay == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.Output.Overlay.ImageBase64)
		if err != nil {
			return fmt.Errorf("overlay for %s: %w", item.Name, err)
		}
		name := strings.TrimSuffix(item.Name, filepath.Ext(item.Name)) + ".png"
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
