package extract

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// classify maps a service call failure onto the pipeline taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return common.NewStageError(constants.StageExtract, common.ErrServiceUnavailable, "document ai call did not complete", err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return common.NewStageError(constants.StageExtract, common.ErrServiceUnavailable, "document ai call failed", err)
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return common.NewStageError(constants.StageExtract, common.ErrQuotaExceeded, st.Message(), err)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, st.Message(), err)
	default:
		return common.NewStageError(constants.StageExtract, common.ErrServiceUnavailable, st.Code().String()+": "+st.Message(), err)
	}
}
