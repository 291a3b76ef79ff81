package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clawdbot/claudebridge/internal/claudecli"
	"github.com/clawdbot/claudebridge/internal/llm/openai"
	"github.com/clawdbot/claudebridge/internal/prompt"
	"github.com/clawdbot/claudebridge/internal/respond"
	"github.com/clawdbot/claudebridge/internal/streamjson"
	"github.com/clawdbot/claudebridge/internal/toolbridge"
)

// Dispatch mode labels for metrics.
const (
	modeNonStreaming = "non_streaming"
	modePassthrough  = "passthrough"
	modeBuffered     = "buffered_replay"
)

// handleChatCompletions validates a request, translates it into a CLI
// invocation, and routes it to one of the three dispatch modes.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var request openai.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "invalid_request_error", "invalid_json")
		return
	}
	if len(request.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, "messages must be a non-empty array", "invalid_request_error", "invalid_messages")
		return
	}

	toolsActive := prompt.ToolsActive(&request)
	promptText := prompt.Build(&request)
	alias := prompt.ResolveModel(request.Model)

	// The user field is only the external conversation key; the CLI gets
	// the mapped upstream session id.
	sessionID := ""
	if request.User != "" {
		mapping := s.sessions.GetOrCreate(request.User, string(alias))
		sessionID = mapping.ClaudeSessionID
	}

	driver, err := s.spawn(claudecli.Spec{
		Prompt:    promptText,
		Model:     string(alias),
		SessionID: sessionID,
		Timeout:   s.cfg.Timeout,
	})
	if err != nil {
		if errors.Is(err, claudecli.ErrNotInstalled) {
			s.writeError(w, http.StatusInternalServerError, err.Error(), "api_error", "cli_not_installed")
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error(), "api_error", "spawn_failed")
		}
		return
	}

	s.metrics.ActiveSubprocesses.Inc()
	started := time.Now()
	defer func() {
		s.metrics.ActiveSubprocesses.Dec()
		s.metrics.SubprocessDuration.Observe(time.Since(started).Seconds())
	}()

	requestID := respond.NewRequestID()
	created := time.Now().Unix()
	model := respond.NormalizeModel(request.Model)
	if model == "" {
		model = respond.FallbackModel
	}

	s.logger.Debug("dispatching chat completion",
		zap.String("request_id", requestID),
		zap.String("model", string(alias)),
		zap.Bool("tools", toolsActive),
		zap.Bool("stream", request.Stream))

	switch {
	case toolsActive:
		s.dispatchBuffered(w, r, driver, requestID, created, model, request.Stream)
	case request.Stream:
		s.dispatchPassthrough(w, r, driver, requestID, created, model)
	default:
		s.dispatchNonStreaming(w, r, driver, requestID, created)
	}
}

// dispatchNonStreaming waits for the close barrier and writes exactly one
// JSON body: the result projection, or a 500-class envelope.
func (s *Server) dispatchNonStreaming(
	w http.ResponseWriter,
	r *http.Request,
	driver driverHandle,
	requestID string,
	created int64,
) {
	ctx := r.Context()
	events := driver.Events()

	var result *streamjson.ResultEvent
	responded := false
	status := "ok"

	for {
		select {
		case <-ctx.Done():
			driver.Kill()
			drain(events)
			s.count(modeNonStreaming, "disconnect")
			return
		case event, ok := <-events:
			if !ok {
				s.count(modeNonStreaming, status)
				return
			}
			switch event.Kind {
			case claudecli.KindResult:
				if !responded {
					result = event.Result
				}
			case claudecli.KindError:
				// An error suppresses any later result.
				if !responded {
					responded = true
					status = "error"
					s.writeError(w, http.StatusInternalServerError, event.Err.Error(), "api_error", "upstream_timeout")
				}
			case claudecli.KindClose:
				if responded {
					continue
				}
				responded = true
				if result != nil {
					s.writeJSON(w, http.StatusOK, respond.ResultResponse(requestID, created, result))
					continue
				}
				status = "error"
				message := fmt.Sprintf("claude CLI exited with code %d before producing a result", event.ExitCode)
				if stderr := driver.Stderr(); stderr != "" {
					s.logger.Warn("claude CLI stderr", zap.String("stderr", stderr))
				}
				s.writeError(w, http.StatusInternalServerError, message, "api_error", "upstream_exit")
			}
		}
	}
}

// dispatchPassthrough streams each upstream content delta to the client as
// one SSE chunk, in upstream order.
func (s *Server) dispatchPassthrough(
	w http.ResponseWriter,
	r *http.Request,
	driver driverHandle,
	requestID string,
	created int64,
	model string,
) {
	sse, err := newSSEWriter(w, requestID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "api_error", "streaming_unsupported")
		driver.Kill()
		drain(driver.Events())
		s.count(modePassthrough, "error")
		return
	}

	ctx := r.Context()
	events := driver.Events()

	roleSent := false
	deltasSeen := false
	doneSent := false
	status := "ok"
	currentModel := model

	for {
		select {
		case <-ctx.Done():
			driver.Kill()
			drain(events)
			s.count(modePassthrough, "disconnect")
			return
		case event, ok := <-events:
			if !ok {
				s.count(modePassthrough, status)
				return
			}
			switch event.Kind {
			case claudecli.KindDelta:
				if doneSent {
					continue
				}
				deltasSeen = true
				first := !roleSent && event.DeltaText != ""
				sse.Data(respond.TextChunk(requestID, created, currentModel, event.DeltaText, first))
				if first {
					roleSent = true
				}
			case claudecli.KindAssistant:
				currentModel = respond.NormalizeModel(event.Assistant.Message.Model)
				// Without partial messages the assistant event is the only
				// carrier of text; project it into a single chunk.
				if !deltasSeen && !doneSent && streamjson.ExtractText(event.Assistant.Message.Content) != "" {
					sse.Data(respond.AssistantChunk(requestID, created, event.Assistant, !roleSent))
					roleSent = true
				}
			case claudecli.KindResult:
				if doneSent {
					continue
				}
				sse.Data(respond.DoneChunk(requestID, created, currentModel, respond.FinishStop))
				sse.Done()
				doneSent = true
			case claudecli.KindError:
				if doneSent {
					continue
				}
				status = "error"
				sse.Data(errorEnvelope(event.Err.Error(), "api_error", "upstream_timeout"))
				sse.Done()
				doneSent = true
			case claudecli.KindClose:
				if doneSent {
					continue
				}
				if event.ExitCode != 0 {
					status = "error"
					message := fmt.Sprintf("claude CLI exited with code %d", event.ExitCode)
					sse.Data(errorEnvelope(message, "api_error", "upstream_exit"))
				} else {
					sse.Data(respond.DoneChunk(requestID, created, currentModel, respond.FinishStop))
				}
				sse.Done()
				doneSent = true
			}
			if sse.Failed() {
				driver.Kill()
				drain(events)
				s.count(modePassthrough, "disconnect")
				return
			}
		}
	}
}

// dispatchBuffered withholds all client bytes until the close barrier, then
// classifies the authoritative text for tool calls and replays the outcome
// as SSE chunks or a single JSON body. finish_reason cannot be amended
// after the first chunk, so nothing is written before classification.
func (s *Server) dispatchBuffered(
	w http.ResponseWriter,
	r *http.Request,
	driver driverHandle,
	requestID string,
	created int64,
	model string,
	streaming bool,
) {
	ctx := r.Context()
	events := driver.Events()

	var buffer strings.Builder
	var result *streamjson.ResultEvent
	var driverErr error
	exitCode := 0
	currentModel := model

collect:
	for {
		select {
		case <-ctx.Done():
			driver.Kill()
			drain(events)
			s.count(modeBuffered, "disconnect")
			return
		case event, ok := <-events:
			if !ok {
				break collect
			}
			switch event.Kind {
			case claudecli.KindDelta:
				buffer.WriteString(event.DeltaText)
			case claudecli.KindAssistant:
				currentModel = respond.NormalizeModel(event.Assistant.Message.Model)
			case claudecli.KindResult:
				result = event.Result
			case claudecli.KindError:
				driverErr = event.Err
			case claudecli.KindClose:
				exitCode = event.ExitCode
			}
		}
	}

	// The result event is authoritative; the accumulated deltas are the
	// fallback when the CLI died before emitting one.
	text := buffer.String()
	var usage *streamjson.Usage
	if result != nil {
		text = result.Result
		usage = result.Usage
		if key := streamjson.FirstModelUsageKey(result.ModelUsage); key != "" {
			currentModel = respond.NormalizeModel(key)
		}
	}

	if result == nil && text == "" && (driverErr != nil || exitCode != 0) {
		message := fmt.Sprintf("claude CLI exited with code %d before producing output", exitCode)
		code := "upstream_exit"
		if driverErr != nil {
			message = driverErr.Error()
			code = "upstream_timeout"
		}
		s.writeError(w, http.StatusInternalServerError, message, "api_error", code)
		s.count(modeBuffered, "error")
		return
	}

	parsed := toolbridge.Parse(text, s.logger)

	if streaming {
		sse, err := newSSEWriter(w, requestID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error(), "api_error", "streaming_unsupported")
			s.count(modeBuffered, "error")
			return
		}
		if len(parsed.ToolCalls) > 0 {
			for _, chunk := range respond.ToolCallChunks(requestID, created, currentModel, parsed.ToolCalls, parsed.Text) {
				sse.Data(chunk)
			}
		} else {
			sse.Data(respond.TextChunk(requestID, created, currentModel, text, true))
			sse.Data(respond.DoneChunk(requestID, created, currentModel, respond.FinishStop))
		}
		sse.Done()
		s.count(modeBuffered, "ok")
		return
	}

	switch {
	case len(parsed.ToolCalls) > 0:
		s.writeJSON(w, http.StatusOK, respond.ToolCallResponse(requestID, created, currentModel, parsed.ToolCalls, parsed.Text, usage))
	case result != nil:
		s.writeJSON(w, http.StatusOK, respond.ResultResponse(requestID, created, result))
	default:
		s.writeJSON(w, http.StatusOK, respond.TextResponse(requestID, created, currentModel, text, usage))
	}
	s.count(modeBuffered, "ok")
}

// errorEnvelope builds the in-band SSE error payload.
func errorEnvelope(message string, errType string, code string) openai.ErrorEnvelope {
	return openai.ErrorEnvelope{Error: openai.ErrorDetail{
		Message: message,
		Type:    errType,
		Code:    code,
	}}
}

// count records one completed request.
func (s *Server) count(mode string, status string) {
	s.metrics.Requests.WithLabelValues(mode, status).Inc()
}

// drain consumes remaining driver events after a kill so the subprocess is
// reaped and the feed goroutine exits.
func drain(events <-chan claudecli.Event) {
	go func() {
		for range events {
		}
	}()
}
