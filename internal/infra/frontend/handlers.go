package frontend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

const (
	sessionIDHeader   = "Mcp-Session-Id"
	sessionIDParam    = "session_id"
	maxRequestBody    = 4 << 20
	messagesEndpoint  = "messages/"
	streamUnsupported = "Not support make use of Server-Sent Events (SSE) to stream multiple server messages."
)

// newSessionID returns a uuid in hex form without dashes.
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Server) handleStreamablePost(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.Method == methodInitialize {
		w.Header().Set(sessionIDHeader, newSessionID())
	}
	resp, hasResponse := s.dispatcher.Dispatch(r.Context(), VariantStreamable, req)
	if !hasResponse {
		writeAccepted(w)
		return
	}
	s.logResponse(r, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStreamableGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, rpcError(nil, &domain.ProtocolError{
		Code:    domain.ErrCodeServerError,
		Message: streamUnsupported,
	}))
}

func (s *Server) handleMessagesPost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get(sessionIDParam)
	if sessionID == "" {
		sessionID = newSessionID()
	}
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	resp, hasResponse := s.dispatcher.Dispatch(r.Context(), VariantChannelPair, req)
	if !hasResponse {
		writeAccepted(w)
		return
	}
	s.logResponse(r, resp)
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encode mailbox message failed", telemetry.SessionField(sessionID), zap.Error(err))
		writeAccepted(w)
		return
	}
	if err := s.mailbox.Deliver(r.Context(), sessionID, payload); err != nil {
		s.logger.Error("mailbox delivery failed", telemetry.SessionField(sessionID), zap.Error(err))
	}
	writeAccepted(w)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sessionID := newSessionID()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "endpoint", []byte(messagesEndpoint+"?"+sessionIDParam+"="+sessionID)); err != nil {
		return
	}
	flusher.Flush()

	err := s.mailbox.Stream(r.Context(), sessionID, func(message []byte) error {
		if err := writeEvent(w, "message", message); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		s.logger.Debug("push channel ended", telemetry.SessionField(sessionID), zap.Error(err))
	}
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (Request, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, rpcError(nil, &domain.ProtocolError{Code: domain.ErrCodeParseError, Message: "read request body"}))
		return Request{}, false
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcError(nil, &domain.ProtocolError{Code: domain.ErrCodeParseError, Message: err.Error()}))
		return Request{}, false
	}
	if req.Method == "" {
		writeJSON(w, http.StatusBadRequest, rpcError(req.ID, &domain.ProtocolError{Code: domain.ErrCodeInvalidRequest, Message: "method is required"}))
		return Request{}, false
	}
	s.logger.Debug("request received",
		telemetry.RequestIDField(middleware.GetReqID(r.Context())),
		telemetry.MethodField(req.Method),
		zap.String("path", r.URL.Path),
		zap.ByteString("body", body),
	)
	return req, true
}

func (s *Server) logResponse(r *http.Request, resp Response) {
	if ce := s.logger.Check(zap.DebugLevel, "response sent"); ce != nil {
		payload, _ := json.Marshal(resp)
		ce.Write(
			telemetry.RequestIDField(middleware.GetReqID(r.Context())),
			zap.ByteString("body", payload),
		)
	}
}

// writeEvent writes one server-sent event. Multi-line data is split across data fields.
func writeEvent(w io.Writer, event string, data []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", event)
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func writeAccepted(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
