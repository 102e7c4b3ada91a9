package genai

import (
	"context"
	"errors"
	"net"

	"mediagen/internal/domain"
)

// Classify converts a client failure into a normalized error attributed to
// stage. Cancellation of ctx wins over whatever the transport reported.
func Classify(ctx context.Context, err error, stage domain.Stage, code string) *domain.Error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &domain.Error{Kind: domain.KindTimeout, Stage: stage, Code: domain.CodeUpstreamTimeout, Err: err}
		}
		return &domain.Error{Kind: domain.KindCancelled, Stage: stage, Code: domain.CodeCancelled, Err: err}
	}
	var se *StatusError
	if errors.As(err, &se) {
		return &domain.Error{
			Kind:           domain.KindUpstreamTransport,
			Stage:          stage,
			Code:           code,
			UpstreamStatus: se.StatusCode,
			Detail:         domain.RawDetail(se.Body),
			Err:            err,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.Error{Kind: domain.KindTimeout, Stage: stage, Code: domain.CodeUpstreamTimeout, Err: err}
	}
	if errors.Is(err, ErrMalformedResponse) {
		return &domain.Error{Kind: domain.KindUpstreamShape, Stage: stage, Code: code, Err: err}
	}
	return &domain.Error{Kind: domain.KindUpstreamTransport, Stage: stage, Code: code, Err: err}
}
