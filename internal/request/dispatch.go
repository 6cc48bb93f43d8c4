package request

import (
	"context"
	"fmt"
	"time"

	"aiaa/pkg/types"
)

// Inferer runs the point-based annotation call.
type Inferer interface {
	Dextr3D(ctx context.Context, req types.Dextr3DRequest) (int, error)
}

// Result is the outcome of a dispatched call.
type Result struct {
	Status  int
	Latency time.Duration
}

// Dispatch issues exactly one inference call for cfg. A non-zero status is
// returned both in Result and as a KindInference error.
func Dispatch(ctx context.Context, inf Inferer, cfg RequestConfig) (Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	begin := time.Now()
	status, err := inf.Dextr3D(ctx, cfg.Dextr3DRequest())
	res := Result{Status: status, Latency: time.Since(begin)}
	if err != nil {
		return res, transportError(err)
	}
	if status != 0 {
		return res, &Error{Kind: KindInference, Status: status, Msg: fmt.Sprintf("inference failed with status %d", status)}
	}
	return res, nil
}
