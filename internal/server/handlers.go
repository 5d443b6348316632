package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/label"
	"github.com/abhisek/heartrisk/internal/patient"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/store"
)

// ModelNotLoadedMessage is the 503 error body of a prediction without a model.
const ModelNotLoadedMessage = predict.ModelNotLoadedMessage

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type modelStatus struct {
	Path   string `json:"path"`
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) modelStatus() modelStatus {
	st := modelStatus{Path: s.opts.Model.Path()}
	if _, err := s.opts.Model.Get(); err != nil {
		st.Error = err.Error()
	} else {
		st.Loaded = true
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.SetModelLoaded(st.Loaded)
	}
	return st
}

// health handles GET /health.
func (s *Server) health(c *gin.Context) {
	st := s.modelStatus()
	status := "healthy"
	if !st.Loaded {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"version": s.opts.Version,
		"model":   st,
	})
}

// options handles GET /api/v1/options.
func (s *Server) options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"catalogs":  patient.Catalogs(),
		"examples":  patient.Examples(),
		"bounds":    patient.Bounds(),
		"defaults":  patient.Defaults(),
		"columns":   features.Columns(),
		"threshold": predict.Threshold,
	})
}

type decodeRequest struct {
	Value   label.Field `json:"value"`
	Default int         `json:"default"`
	// Field optionally names a catalog whose exact labels are tried first.
	Field string `json:"field,omitempty"`
}

// decode handles POST /api/v1/decode.
func (s *Server) decode(c *gin.Context) {
	var req decodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Field == "" {
		c.JSON(http.StatusOK, gin.H{"code": req.Value.Decode(req.Default)})
		return
	}
	for _, cat := range patient.Catalogs() {
		if cat.Field == req.Field {
			c.JSON(http.StatusOK, gin.H{"code": cat.Decode(req.Value.Value, req.Default)})
			return
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "unknown field " + strconv.Quote(req.Field)})
}

type predictResponse struct {
	SessionID   string          `json:"session_id"`
	Form        patient.Form    `json:"form"`
	Record      features.Record `json:"record"`
	ProbNoEvent float64         `json:"prob_no_event"`
	ProbEvent   float64         `json:"prob_event"`
	HighRisk    bool            `json:"high_risk"`
	RiskLabel   string          `json:"risk_label"`
	RiskPercent int             `json:"risk_percent"`
}

// predict handles POST /api/v1/predict.
func (s *Server) predict(c *gin.Context) {
	sessionID := c.GetString("session_id")

	var in patient.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	form, err := in.Resolve()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := form.Validate(); err != nil {
		var ve *patient.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "fields": ve.Fields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := form.Features()
	res, err := s.opts.Adapter.Predict(c.Request.Context(), rec)
	s.recordEvent(c, sessionID, rec, res, err)
	if err != nil {
		s.predictError(c, err)
		return
	}

	if err := s.opts.Sessions.Get(sessionID).Save(rec, res, s.now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save session: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, predictResponse{
		SessionID:   sessionID,
		Form:        form,
		Record:      rec,
		ProbNoEvent: res.ProbNoEvent,
		ProbEvent:   res.ProbEvent,
		HighRisk:    res.HighRisk,
		RiskLabel:   res.RiskLabel(),
		RiskPercent: res.RiskPercent(),
	})
}

func (s *Server) predictError(c *gin.Context, err error) {
	var (
		unavailable *predict.ModelUnavailableError
		inference   *predict.InferenceError
	)
	switch {
	case errors.As(err, &unavailable):
		if s.opts.Metrics != nil {
			s.opts.Metrics.SetModelLoaded(false)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  ModelNotLoadedMessage,
			"kind":   unavailable.Kind(),
			"detail": err.Error(),
		})
	case errors.As(err, &inference):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Prediction failed",
			"kind":   inference.Kind(),
			"detail": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "kind": predict.ErrorKind(err)})
	}
}

func (s *Server) recordEvent(c *gin.Context, sessionID string, rec features.Record, res predict.Result, err error) {
	if s.opts.Events == nil {
		return
	}
	ev := store.PredictionFromResult(sessionID, s.opts.Model.Path(), rec, res, err, s.now())
	if _, err := s.opts.Events.AppendPrediction(c.Request.Context(), ev); err != nil {
		s.opts.Logger.Error("record prediction event", "error", err)
	}
}

// downloadInput handles GET /api/v1/sessions/:id/input.json.
func (s *Server) downloadInput(c *gin.Context) {
	st, ok := s.opts.Sessions.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	b, ok := st.SnapshotJSON()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no prediction in this session"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+features.SnapshotFileName+`"`)
	c.Data(http.StatusOK, "application/json", b)
}

// clearSession handles DELETE /api/v1/sessions/:id.
func (s *Server) clearSession(c *gin.Context) {
	st, ok := s.opts.Sessions.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	st.Clear()
	c.Status(http.StatusNoContent)
}

type eventResponse struct {
	Sequence    int64           `json:"sequence"`
	SessionID   string          `json:"session_id"`
	Timestamp   time.Time       `json:"timestamp"`
	ModelPath   string          `json:"model_path"`
	Features    features.Record `json:"features"`
	ProbNoEvent float64         `json:"prob_no_event"`
	ProbEvent   float64         `json:"prob_event"`
	HighRisk    bool            `json:"high_risk"`
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
}

// history handles GET /api/v1/history.
func (s *Server) history(c *gin.Context) {
	if s.opts.Events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	events, err := s.opts.Events.QueryPredictions(c.Request.Context(), store.QueryOpts{
		SessionID: c.Query("session_id"),
		Limit:     limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query history: " + err.Error()})
		return
	}

	out := make([]eventResponse, len(events))
	for i, e := range events {
		out[i] = eventResponse{
			Sequence:    e.Sequence,
			SessionID:   e.SessionID,
			Timestamp:   e.Timestamp.UTC(),
			ModelPath:   e.ModelPath,
			Features:    e.Features,
			ProbNoEvent: e.ProbNoEvent,
			ProbEvent:   e.ProbEvent,
			HighRisk:    e.HighRisk,
			Success:     e.Success,
			Error:       e.ErrorMessage,
		}
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}
