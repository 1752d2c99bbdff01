package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/mapper"
)

// BatchItem is the result for the input at the same index.
type BatchItem struct {
	FileName string
	Outcome  *Outcome
	Err      error
}

// Batch is the outcome of ProcessBatch, in input order.
type Batch struct {
	Items    []BatchItem
	Duration time.Duration
}

// Records concatenates the records of every successful item in input order.
func (b Batch) Records() []mapper.Record {
	var out []mapper.Record
	for _, it := range b.Items {
		if it.Outcome != nil {
			out = append(out, it.Outcome.Records...)
		}
	}
	return out
}

// Failed counts items that ended in an error.
func (b Batch) Failed() int {
	n := 0
	for _, it := range b.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// Status is OK when every item is OK, FAILED when none produced records, else PARTIAL.
func (b Batch) Status() constants.RunStatus {
	if len(b.Items) == 0 {
		return constants.RunStatusOK
	}
	failed := b.Failed()
	switch {
	case failed == len(b.Items):
		return constants.RunStatusFailed
	case failed > 0:
		return constants.RunStatusPartial
	}
	for _, it := range b.Items {
		if it.Outcome.Status != constants.RunStatusOK {
			return constants.RunStatusPartial
		}
	}
	return constants.RunStatusOK
}

// ProcessBatch processes inputs on a bounded pool. A failed document never stops the others;
// its error is reported on its own item. Cancelling ctx fails the documents not yet started.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []Input) Batch {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, p.Logger)
	items := make([]BatchItem, len(inputs))

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, in := range inputs {
		items[i].FileName = in.FileName
		if items[i].FileName == "" {
			items[i].FileName = in.Path
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = common.NewStageError(constants.StageIngest, common.ErrServiceUnavailable, "batch cancelled", err)
				return nil
			}
			out, err := p.Process(ctx, in)
			items[i].Outcome, items[i].Err = out, err
			return nil
		})
	}
	_ = g.Wait()

	b := Batch{Items: items, Duration: time.Since(start)}
	logger.Info("processor.batch.ok",
		"files", len(inputs),
		"failed", b.Failed(),
		"records", len(b.Records()),
		"status", b.Status(),
		"elapsed_ms", b.Duration.Milliseconds(),
	)
	return b
}
