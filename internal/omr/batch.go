package omr

import (
	"context"
	"sync"
)

// BatchInput is one named image in a batch.
type BatchInput struct {
	Name string
	Data []byte
}

// BatchItem is the outcome for one image. Exactly one of Output and Error
// is meaningful.
type BatchItem struct {
	Name   string  `json:"file_name"`
	Output *Output `json:"output,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`

	// Items holds one entry per input, in input order.
	Items []BatchItem `json:"results"`
}

// ProcessBatch decodes independent images concurrently, one worker per
// image. The engine's template and config are shared read-only across
// workers; no other state crosses image boundaries, so a fatal error on
// one image never affects its siblings.
//
// A canceled context stops images that have not started; in-flight runs
// complete and their results are kept. Items come back in input order.
func (e *Engine) ProcessBatch(ctx context.Context, inputs []BatchInput, opts ProcessOptions) *BatchSummary {
	summary := &BatchSummary{
		Total: len(inputs),
		Items: make([]BatchItem, len(inputs)),
	}

	var wg sync.WaitGroup
	for i, in := range inputs {
		summary.Items[i].Name = in.Name

		if err := ctx.Err(); err != nil {
			summary.Items[i].Error = err.Error()
			continue
		}

		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()
			out, err := e.Process(data, opts)
			if err != nil {
				summary.Items[i].Error = err.Error()
				return
			}
			summary.Items[i].Output = out
		}(i, in.Data)
	}
	wg.Wait()

	for _, item := range summary.Items {
		if item.Error == "" {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	e.log.Info("batch processed",
		"total", summary.Total,
		"successful", summary.Successful,
		"failed", summary.Failed,
	)
	return summary
}
