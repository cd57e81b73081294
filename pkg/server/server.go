package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Mindburn-Labs/decision-firewall/pkg/audit"
	"github.com/Mindburn-Labs/decision-firewall/pkg/firewall"
	"github.com/Mindburn-Labs/decision-firewall/pkg/learning"
	"github.com/Mindburn-Labs/decision-firewall/pkg/metrics"
	"github.com/Mindburn-Labs/decision-firewall/pkg/ratelimit"
)

// Server exposes the firewall pipeline and its supporting state over HTTP.
type Server struct {
	interceptor  *firewall.Interceptor
	policy       *firewall.PolicyManager
	validator    *firewall.RequestValidator
	auditLog     *audit.Log
	metricsState *metrics.State
	learning     *learning.State
	tuner        *learning.Tuner
	limiter      *ratelimit.Limiter

	jwtSecret []byte
	log       *slog.Logger
	startedAt time.Time
}

// Config bundles the dependencies Server needs. All fields except
// Interceptor, Policy and Validator are optional; a nil field disables the
// routes that depend on it (e.g. no AuditLog means /audit/logs 404s).
type Config struct {
	Interceptor  *firewall.Interceptor
	Policy       *firewall.PolicyManager
	Validator    *firewall.RequestValidator
	AuditLog     *audit.Log
	MetricsState *metrics.State
	Learning     *learning.State
	Tuner        *learning.Tuner
	Limiter      *ratelimit.Limiter
	JWTSecret    []byte
	Log          *slog.Logger
}

// New constructs a Server from cfg.
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		interceptor:  cfg.Interceptor,
		policy:       cfg.Policy,
		validator:    cfg.Validator,
		auditLog:     cfg.AuditLog,
		metricsState: cfg.MetricsState,
		learning:     cfg.Learning,
		tuner:        cfg.Tuner,
		limiter:      cfg.Limiter,
		jwtSecret:    cfg.JWTSecret,
		log:          log,
		startedAt:    time.Now().UTC(),
	}
}

// Routes builds the ServeMux with every handler registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /firewall/check", s.handleCheck)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /audit/logs", s.handleAuditLogs)
	mux.HandleFunc("GET /audit/stats", s.handleAuditStats)
	mux.HandleFunc("GET /policy/mode", s.handlePolicyModeGet)
	mux.HandleFunc("POST /policy/mode", adminAuth(s.jwtSecret, s.handlePolicyModeSet))
	mux.HandleFunc("POST /policy/update", adminAuth(s.jwtSecret, s.handlePolicyUpdate))
	mux.HandleFunc("GET /learning/stats", s.handleLearningStats)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"service": "decision-firewall",
		"status":  "running",
		"uptime":  time.Since(s.startedAt).String(),
	}
	if s.policy != nil {
		info["policy_mode"] = s.policy.Mode()
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if s.validator != nil {
		if err := s.validator.Validate(payload); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	var req firewall.Request
	raw, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if s.limiter != nil {
		actorID := r.Header.Get("X-Actor-Id")
		if err := s.limiter.Check(r.Context(), actorID); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			writeError(w, http.StatusInternalServerError, "rate limiter unavailable")
			return
		}
	}

	resp, err := s.interceptor.Check(r.Context(), &req)
	if err != nil {
		if errors.Is(err, firewall.ErrInvalidRequest) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.log.Error("firewall check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error adjudicating request")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metricsState == nil {
		writeError(w, http.StatusNotFound, "metrics not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.metricsState.GetMetrics())
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditLog == nil {
		writeError(w, http.StatusNotFound, "audit log not configured")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	verdictFilter := r.URL.Query().Get("verdict")
	actionFilter := r.URL.Query().Get("action")

	entries := s.auditLog.Entries()
	filtered := make([]audit.Entry, 0, len(entries))
	for _, e := range entries {
		if verdictFilter != "" && e.Verdict != verdictFilter {
			continue
		}
		if actionFilter != "" && e.IntendedAction != actionFilter {
			continue
		}
		filtered = append(filtered, e)
		if len(filtered) >= limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": filtered, "count": len(filtered)})
}

func (s *Server) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	if s.auditLog == nil {
		writeError(w, http.StatusNotFound, "audit log not configured")
		return
	}
	writeJSON(w, http.StatusOK, audit.ComputeStats(s.auditLog.Entries()))
}

func (s *Server) handlePolicyModeGet(w http.ResponseWriter, r *http.Request) {
	if s.policy == nil {
		writeError(w, http.StatusNotFound, "policy manager not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.policy.GetPolicyInfo())
}

type policyModeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handlePolicyModeSet(w http.ResponseWriter, r *http.Request) {
	if s.policy == nil {
		writeError(w, http.StatusNotFound, "policy manager not configured")
		return
	}

	var req policyModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.policy.SetMode(firewall.PolicyMode(req.Mode)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Info("policy mode changed", "mode", req.Mode)
	writeJSON(w, http.StatusOK, s.policy.GetPolicyInfo())
}

type policyUpdateRequest struct {
	OverrideVerdict  string `json:"override_verdict"`
	OriginalVerdict  string `json:"original_verdict"`
	Reason           string `json:"reason"`
	RequestID        string `json:"request_id"`
	OutputPreview    string `json:"output_preview"`
}

func (s *Server) handlePolicyUpdate(w http.ResponseWriter, r *http.Request) {
	if s.learning == nil {
		writeError(w, http.StatusNotFound, "learning memory not configured")
		return
	}

	var req policyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.OriginalVerdict == "" || req.OverrideVerdict == "" {
		writeError(w, http.StatusBadRequest, "original_verdict and override_verdict are required")
		return
	}

	if err := s.learning.RecordHumanOverride(req.OriginalVerdict, req.OverrideVerdict, req.Reason, req.OutputPreview); err != nil {
		s.log.Error("failed to record human override", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record override")
		return
	}

	s.log.Info("human override recorded", "request_id", req.RequestID, "original_verdict", req.OriginalVerdict, "override_verdict", req.OverrideVerdict)
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleLearningStats(w http.ResponseWriter, r *http.Request) {
	if s.learning == nil {
		writeError(w, http.StatusNotFound, "learning memory not configured")
		return
	}

	stats := s.learning.GetStatistics()
	resp := map[string]interface{}{"statistics": stats}
	if s.tuner != nil {
		resp["adaptive_thresholds"] = s.tuner.GetAdaptiveThresholds()
	}
	writeJSON(w, http.StatusOK, resp)
}
