package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/zeebo/blake3"

	"gemchat/internal/chat"
)

const maxChatBodyBytes = 1 << 20

// chatRequestSchema rejects malformed submit bodies before they reach the
// orchestrator. Message presence itself is still the orchestrator's check so
// the whitespace rule lives in one place.
var chatRequestSchema = jsonschema.MustCompileString("chat_request.json", `{
	"type": "object",
	"properties": {
		"message": {"type": "string"}
	},
	"required": ["message"],
	"additionalProperties": false
}`)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, chat.KindInvalidInput, "cannot read request body")
		return
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, chat.KindInvalidInput, "request body is not valid JSON")
		return
	}
	if err := chatRequestSchema.Validate(raw); err != nil {
		writeError(w, http.StatusBadRequest, chat.KindInvalidInput, "body must be an object with a string \"message\" field")
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, chat.KindInvalidInput, "request body is not valid JSON")
		return
	}

	turn, err := s.exch.SubmitMessage(r.Context(), req.Message)
	if err != nil {
		s.writeExchangeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: turn.ModelReply})
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	turns, err := s.exch.ListHistory(r.Context())
	if err != nil {
		s.writeExchangeError(w, err)
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}

	body, err := json.Marshal(turns)
	if err != nil {
		s.logger.Printf("encode history: %v", err)
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}

	sum := blake3.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeExchangeError maps the exchange taxonomy to status codes and a wire
// envelope. Full error detail is logged here; clients get kind + message
// only, never raw provider or store internals.
func (s *Server) writeExchangeError(w http.ResponseWriter, err error) {
	s.logger.Printf("exchange failed: %v", err)

	switch kind := chat.KindOf(err); kind {
	case chat.KindInvalidInput:
		writeError(w, http.StatusBadRequest, kind, "message must be a non-empty string")
	case chat.KindGenerationFailed:
		msg := "generation failed"
		var gf *chat.GenerationFailedError
		if errors.As(err, &gf) && gf.Timeout {
			msg = "generation timed out"
		}
		writeError(w, http.StatusBadGateway, kind, msg)
	case chat.KindPersistenceFailed:
		var pf *chat.PersistenceFailedError
		resp := ErrorResponse{
			Error: "reply generated but not recorded; it will be absent from history",
			Kind:  kind,
		}
		if errors.As(err, &pf) {
			resp.Response = pf.Reply
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	case chat.KindStoreUnavailable:
		writeError(w, http.StatusServiceUnavailable, kind, "chat history is unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "", "internal error")
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}
