package extract

import (
	"time"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
)

// retryableCodes are transient failures worth another attempt.
var retryableCodes = []codes.Code{codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded}

// boundedRetryer caps gax retries at maxAttempts total calls.
type boundedRetryer struct {
	inner       gax.Retryer
	maxAttempts int
	attempts    int
}

func (r *boundedRetryer) Retry(err error) (time.Duration, bool) {
	r.attempts++
	if r.attempts >= r.maxAttempts {
		return 0, false
	}
	return r.inner.Retry(err)
}

// retryOption overrides the client's default retry policy. maxAttempts <= 1 disables retry.
func retryOption(maxAttempts int, backoff gax.Backoff) gax.CallOption {
	return gax.WithRetry(func() gax.Retryer {
		if maxAttempts <= 1 {
			return nil
		}
		return &boundedRetryer{
			inner:       gax.OnCodes(retryableCodes, backoff),
			maxAttempts: maxAttempts,
		}
	})
}

func defaultBackoff() gax.Backoff {
	return gax.Backoff{
		Initial:    500 * time.Millisecond,
		Max:        8 * time.Second,
		Multiplier: 2,
	}
}
