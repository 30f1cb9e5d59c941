package ops

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

// DefaultBatchWorkers is used when no worker count is configured.
const DefaultBatchWorkers = 4

// BatchItem is the result of one document of a batch. Exactly one of
// Output and Error is set.
type BatchItem struct {
	Index  int               `json:"index"`
	Output *IngestOutput     `json:"output,omitempty"`
	Error  *errors.DealError `json:"error,omitempty"`
}

// BatchOutput contains the result of the IngestBatch operation.
// Items are in input order.
type BatchOutput struct {
	Items       []BatchItem `json:"items"`
	Stored      int         `json:"stored"`
	Skipped     int         `json:"skipped"`
	Reextracted int         `json:"reextracted"`
	Failed      int         `json:"failed"`
}

// IngestBatch ingests documents concurrently with at most workers in flight.
// A failing document does not stop the batch; its error is reported in its
// item. Once ctx is cancelled the remaining documents fail with CANCELLED.
func IngestBatch(ctx context.Context, database *sql.DB, p *pipeline.Pipeline, workers int, inputs []IngestInput) *BatchOutput {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}

	items := make([]BatchItem, len(inputs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, in := range inputs {
		g.Go(func() error {
			items[i].Index = i
			if ctx.Err() != nil {
				items[i].Error = errors.NewCancelled("ingest")
				return nil
			}
			out, err := Ingest(ctx, database, p, in)
			if err != nil {
				items[i].Error = errors.As(err)
				return nil
			}
			items[i].Output = out
			return nil
		})
	}
	_ = g.Wait()

	res := &BatchOutput{Items: items}
	for _, it := range items {
		if it.Error != nil {
			res.Failed++
			continue
		}
		switch it.Output.Status {
		case StatusStored:
			res.Stored++
		case StatusSkipped:
			res.Skipped++
		case StatusReextracted:
			res.Reextracted++
		}
	}
	p.Logger().Info("batch ingested",
		zap.Int("documents", len(inputs)),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped),
		zap.Int("reextracted", res.Reextracted),
		zap.Int("failed", res.Failed))
	return res
}
