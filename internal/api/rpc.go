package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hugo-lorenzo-mato/panel/internal/a2a"
	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// handleRPC serves A2A tasks/send. The message text is the document; the
// task result carries the consensus report as JSON. Optional per-task
// overrides travel in metadata under "config".
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req a2a.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		respondJSON(w, http.StatusOK, a2a.NewErrorResponse("", a2a.CodeParseError, "Parse error"))
		return
	}
	if rpcErr := req.Validate(); rpcErr != nil {
		respondJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, rpcErr.Code, rpcErr.Message))
		return
	}

	overrides, err := overridesFromMetadata(req.Params.Metadata)
	if err != nil {
		respondJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInvalidParams, err.Error()))
		return
	}

	stored, err := s.runAnalysis(r, req.Params.Message.Text(), overrides)
	if err != nil {
		code := a2a.CodeInternalError
		if isValidation(err) {
			code = a2a.CodeInvalidParams
		}
		s.logger.Warn("rpc analysis failed", "error", err)
		respondJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, code, err.Error()))
		return
	}

	body, err := json.Marshal(stored.Report)
	if err != nil {
		respondJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, err.Error()))
		return
	}
	meta := map[string]any{
		"report_id":       stored.ID,
		"final_sentiment": stored.Report.FinalSentiment,
	}
	respondJSON(w, http.StatusOK, a2a.NewResultResponse(req.ID, req.Params.ID, req.Params.SessionID, string(body), meta))
}

func isValidation(err error) bool {
	var domErr *core.DomainError
	return errors.As(err, &domErr) && domErr.Category == core.ErrCatValidation
}

func overridesFromMetadata(meta map[string]any) (*ConfigOverrides, error) {
	raw, ok := meta["config"]
	if !ok || raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var o ConfigOverrides
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		return nil, fmt.Errorf("invalid config metadata: %w", err)
	}
	return &o, nil
}

// handleAgentCard describes the panel as an A2A agent.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimSuffix(s.publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}

	skills := []a2a.Skill{{
		ID:          "consensus_sentiment",
		Name:        "Consensus sentiment analysis",
		Description: "Runs a panel of specialists over a document and returns their weighted consensus.",
		Tags:        []string{"sentiment", "consensus", "multi-agent"},
	}}
	respondJSON(w, http.StatusOK, a2a.AgentCard{
		Name:        "panel",
		Description: "Multi-specialist consensus engine",
		URL:         base + "/rpc",
		Version:     s.version,
		Skills:      skills,
	})
}
