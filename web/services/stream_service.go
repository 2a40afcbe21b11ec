package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"legal-rag/rag"

	"go.uber.org/zap"
)

// StreamService writes answer stream events to an SSE response.
type StreamService struct {
	logger *zap.Logger
}

func NewStreamService(logger *zap.Logger) *StreamService {
	return &StreamService{logger: logger}
}

// WriteEvent writes one SSE frame safely. The mutex serializes concurrent
// writers on the same response.
func (ss *StreamService) WriteEvent(ctx context.Context, w http.ResponseWriter, event rag.StreamEvent, mu *sync.Mutex) error {
	mu.Lock()
	defer mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// Relay pumps events from the orchestrator's channel onto the SSE response
// until the channel closes or the client goes away.
func (ss *StreamService) Relay(ctx context.Context, w http.ResponseWriter, events <-chan rag.StreamEvent) {
	var mu sync.Mutex
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := ss.WriteEvent(ctx, w, event, &mu); err != nil {
				ss.logger.Debug("SSE write failed, client likely disconnected", zap.Error(err))
				return
			}
		}
	}
}
