package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

func TestProcessBatch_KeepsInputOrderAndIsolatesFailures(t *testing.T) {
	fx := newFixture(t)
	fx.proc.Workers = 3
	fx.ex.result = func(content []byte) (*extract.Result, error) {
		if string(content) == "boom" {
			return nil, common.NewStageError(constants.StageExtract, common.ErrServiceUnavailable, "down", nil)
		}
		res := invoiceResult()
		res.Fields[0] = field("invoice_number", string(content))
		return res, nil
	}

	inputs := []Input{
		{FileName: "1.pdf", Reader: strings.NewReader("INV-1")},
		{FileName: "2.pdf", Reader: strings.NewReader("boom")},
		{FileName: "3.txt", Reader: strings.NewReader("INV-3")},
		{FileName: "4.pdf", Reader: strings.NewReader("INV-4")},
	}
	b := fx.proc.ProcessBatch(context.Background(), inputs)
	require.Len(t, b.Items, 4)

	for i, in := range inputs {
		assert.Equal(t, in.FileName, b.Items[i].FileName)
	}
	assert.NoError(t, b.Items[0].Err)
	assert.True(t, errors.Is(b.Items[1].Err, common.ErrServiceUnavailable))
	assert.True(t, errors.Is(b.Items[2].Err, common.ErrUnsupportedFormat))
	assert.NoError(t, b.Items[3].Err)

	records := b.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "INV-1", records[0].Value("invoice_number"))
	assert.Equal(t, "INV-4", records[1].Value("invoice_number"))
	assert.Equal(t, 2, b.Failed())
	assert.Equal(t, constants.RunStatusPartial, b.Status())
	assert.Len(t, fx.history.runs, 4)
}

func TestProcessBatch_Empty(t *testing.T) {
	fx := newFixture(t)
	b := fx.proc.ProcessBatch(context.Background(), nil)
	assert.Empty(t, b.Items)
	assert.Equal(t, constants.RunStatusOK, b.Status())
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := fx.proc.ProcessBatch(ctx, []Input{{FileName: "a.pdf", Reader: strings.NewReader("x")}})
	require.Error(t, b.Items[0].Err)
	assert.Equal(t, constants.RunStatusFailed, b.Status())
	assert.Zero(t, fx.ex.calls.Load())
}
