package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter emits server-sent-event frames with immediate flushing.
type sseWriter struct {
	// writer is the underlying response writer.
	writer http.ResponseWriter
	// flusher pushes each frame through intermediary buffers.
	flusher http.Flusher
	// failed latches the first write error; later writes become no-ops.
	failed bool
}

// newSSEWriter prepares SSE headers, flushes them, and sends the initial
// ":ok" comment frame that defeats proxy buffering.
func newSSEWriter(w http.ResponseWriter, requestID string) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(http.StatusOK)

	s := &sseWriter{writer: w, flusher: flusher}
	s.raw(":ok\n\n")
	return s, nil
}

// Data marshals a payload into one "data:" frame.
func (s *sseWriter) Data(payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		s.failed = true
		return
	}
	s.raw(fmt.Sprintf("data: %s\n\n", encoded))
}

// Done emits the terminating "data: [DONE]" frame.
func (s *sseWriter) Done() {
	s.raw("data: [DONE]\n\n")
}

// Failed reports whether a frame write has failed (client gone).
func (s *sseWriter) Failed() bool {
	return s.failed
}

// raw writes one frame and flushes it.
func (s *sseWriter) raw(frame string) {
	if s.failed {
		return
	}
	if _, err := fmt.Fprint(s.writer, frame); err != nil {
		s.failed = true
		return
	}
	s.flusher.Flush()
}
