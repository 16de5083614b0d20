package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/service/workflow"
)

// maxRequestBytes bounds request bodies; documents themselves are capped by
// core.MaxDocumentLength.
const maxRequestBytes = 2 << 20

// ConfigOverrides are the per-request changes to the server's defaults.
// Unset fields keep the default; a present but empty roles list is an
// error, not a request for the defaults.
type ConfigOverrides struct {
	Roles                 []string `json:"roles,omitempty"`
	MaxDiscussionRounds   *int     `json:"max_discussion_rounds,omitempty"`
	DisagreementThreshold *float64 `json:"disagreement_threshold,omitempty"`
	PerCallTimeout        string   `json:"per_call_timeout,omitempty"`
	PerCallMaxRetries     *int     `json:"per_call_max_retries,omitempty"`
	RetryDelay            string   `json:"retry_delay,omitempty"`
	MaxParallelism        *int     `json:"max_parallelism,omitempty"`
	Advise                *bool    `json:"advise,omitempty"`
}

// Apply returns base with the overrides applied.
func (o *ConfigOverrides) Apply(base core.WorkflowConfig) (core.WorkflowConfig, error) {
	cfg := base
	cfg.AgentRoles = append([]string{}, base.AgentRoles...)
	if o == nil {
		return cfg, nil
	}
	// An explicit empty list is kept so validation rejects it.
	if o.Roles != nil {
		cfg.AgentRoles = append([]string{}, o.Roles...)
	}
	if o.MaxDiscussionRounds != nil {
		cfg.MaxDiscussionRounds = *o.MaxDiscussionRounds
	}
	if o.DisagreementThreshold != nil {
		cfg.DisagreementThreshold = *o.DisagreementThreshold
	}
	if o.PerCallMaxRetries != nil {
		cfg.PerCallMaxRetries = *o.PerCallMaxRetries
	}
	if o.MaxParallelism != nil {
		cfg.MaxParallelism = *o.MaxParallelism
	}
	if o.Advise != nil {
		cfg.Advise = *o.Advise
	}
	var err error
	if o.PerCallTimeout != "" {
		if cfg.PerCallTimeout, err = parseOverrideDuration("per_call_timeout", o.PerCallTimeout); err != nil {
			return cfg, err
		}
	}
	if o.RetryDelay != "" {
		if cfg.RetryDelay, err = parseOverrideDuration("retry_delay", o.RetryDelay); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func parseOverrideDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, core.ErrValidation(core.CodeInvalidTimeout, fmt.Sprintf("%s: invalid duration %q", field, value))
	}
	return d, nil
}

// CreateAnalysisRequest is the body of POST /api/v1/analyses.
type CreateAnalysisRequest struct {
	Document string           `json:"document"`
	Config   *ConfigOverrides `json:"config,omitempty"`
}

// ListAnalysesResponse is the body of GET /api/v1/analyses.
type ListAnalysesResponse struct {
	Reports []core.ReportSummary `json:"reports"`
	Count   int                  `json:"count"`
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CreateAnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: core.CodeInvalidConfig})
		return
	}

	stored, err := s.runAnalysis(r, req.Document, req.Config)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/analyses/"+stored.ID)
	respondJSON(w, http.StatusCreated, stored)
}

// runAnalysis runs one analysis and persists it when a store is configured.
func (s *Server) runAnalysis(r *http.Request, document string, overrides *ConfigOverrides) (*core.StoredReport, error) {
	cfg, err := overrides.Apply(s.defaults)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	report, err := s.engine.Analyze(r.Context(), workflow.AnalysisRequest{
		ID:       id,
		Document: document,
		Config:   cfg,
	})
	if err != nil {
		return nil, err
	}

	stored := core.NewStoredReport(id, document, cfg.AgentRoles, report, s.now())
	if s.store != nil {
		if err := s.store.Save(r.Context(), stored); err != nil {
			return nil, err
		}
	}
	return stored, nil
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "report store not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer", Code: core.CodeInvalidConfig})
			return
		}
		limit = n
	}

	summaries, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ListAnalysesResponse{Reports: summaries, Count: len(summaries)})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "report store not configured")
		return
	}
	stored, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "report store not configured")
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RolesResponse is the body of GET /api/v1/roles.
type RolesResponse struct {
	Roles    []core.RoleProfile `json:"roles"`
	Defaults []string           `json:"defaults"`
}

func (s *Server) handleListRoles(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, RolesResponse{
		Roles:    s.engine.Catalog().Profiles(),
		Defaults: s.defaults.AgentRoles,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondError(w, http.StatusServiceUnavailable, "metrics not enabled")
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// decodeJSON decodes a bounded request body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
