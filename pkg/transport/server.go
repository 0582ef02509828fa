package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jg-phare/opencode-teams/pkg/coordinator"
	"github.com/jg-phare/opencode-teams/pkg/errdefs"
)

// Serve pumps requests from t into the coordinator until the request
// stream closes or ctx is cancelled. Each request is dispatched in its own
// goroutine so a long-poll never blocks the stream; Serve returns after
// all in-flight dispatches have written their responses.
func Serve(ctx context.Context, t Transport, c *coordinator.Coordinator, log zerolog.Logger) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-t.Requests():
			if !ok {
				return nil
			}
			wg.Add(1)
			go func(req Request) {
				defer wg.Done()
				writeResponse(t, handle(ctx, c, req), log)
			}(req)
		}
	}
}

// handle folds one request into a response envelope.
func handle(ctx context.Context, c *coordinator.Coordinator, req Request) Response {
	if req.Err != nil {
		return Response{ID: req.ID, Envelope: coordinator.Envelope{
			Error: &coordinator.ErrorBody{
				Kind:    errdefs.Kind(errdefs.ErrInvalidArg),
				Message: "malformed request: " + req.Err.Error(),
			},
		}}
	}
	return Response{ID: req.ID, Envelope: c.Dispatch(ctx, req.Tool, req.Args)}
}

func writeResponse(t Transport, resp Response, log zerolog.Logger) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Str("id", resp.ID).Msg("encode response")
		return
	}
	if err := t.Write(data); err != nil {
		log.Warn().Err(err).Str("id", resp.ID).Msg("write response")
	}
}
