package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/analytics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/dataset"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
)

// Dashboard names accepted by /api/dashboard/{report}.
const (
	ReportAttribution = "attribution"
	ReportVelocity    = "velocity"
	ReportROI         = "roi"
	ReportExecutive   = "executive"
)

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	report := chi.URLParam(r, "report")
	switch report {
	case ReportAttribution, ReportVelocity, ReportROI, ReportExecutive:
	default:
		writeError(w, http.StatusNotFound, "unknown report "+report)
		return
	}
	// TrackerRMS is app-wide; portalId only tags the request in logs.
	portalID := r.URL.Query().Get("portalId")
	if s.deps.Source == nil {
		writeError(w, http.StatusServiceUnavailable, "trackerrms is not configured")
		return
	}

	jobs, placements, err := s.fetch(r.Context())
	if err != nil {
		zap.L().Error("api: fetch trackerrms data",
			zap.String("portal_id", portalID),
			zap.String("report", report),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch trackerrms data")
		return
	}

	zap.L().Debug("api: dashboard",
		zap.String("portal_id", portalID),
		zap.String("report", report),
		zap.Int("placements", len(placements)),
	)

	e := s.deps.Engine
	switch report {
	case ReportAttribution:
		writeJSON(w, http.StatusOK, e.Attribution(placements))
	case ReportVelocity:
		writeJSON(w, http.StatusOK, e.Velocity(placements))
	case ReportROI:
		writeJSON(w, http.StatusOK, e.ROI(placements))
	case ReportExecutive:
		writeJSON(w, http.StatusOK, e.Executive(placements, jobs))
	}
}

// fetch returns the jobs and the placements with jobs attached.
func (s *Server) fetch(ctx context.Context) ([]model.Job, []model.Placement, error) {
	jobs, err := s.deps.Source.ListJobs(ctx)
	if err != nil {
		return nil, nil, err
	}
	placements, err := s.deps.Source.ListPlacements(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jobs, dataset.Attach(placements, jobs), nil
}

// ScoreResponse is the body of POST /api/score.
type ScoreResponse struct {
	Placements []model.Placement         `json:"placements"`
	Scores     []scoring.Scores          `json:"scores"`
	Report     analytics.ExecutiveReport `json:"report"`
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var in dataset.Dataset
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for i, p := range in.Placements {
		if p.ID == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("placements[%d].id is required", i))
			return
		}
	}

	attached := in.Attached()
	e := s.deps.Engine
	scored, results := scoring.BatchResults(attached, e.Weights())
	writeJSON(w, http.StatusOK, ScoreResponse{
		Placements: scored,
		Scores:     results,
		Report:     e.Executive(attached, in.Jobs),
	})
}

func (s *Server) startSync(w http.ResponseWriter, r *http.Request) {
	portalID := r.URL.Query().Get("portalId")
	if portalID == "" {
		writeError(w, http.StatusBadRequest, "portalId is required")
		return
	}
	if s.deps.Launcher == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	status := "accepted"
	if !s.deps.Launcher.Start(portalID) {
		status = "already_running"
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": status, "portalId": portalID})
}

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	portalID := r.URL.Query().Get("portalId")
	if portalID == "" {
		writeError(w, http.StatusBadRequest, "portalId is required")
		return
	}
	if s.deps.Launcher == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}
	sum, ok := s.deps.Launcher.Last(portalID)
	if !ok {
		writeError(w, http.StatusNotFound, "no sync recorded for portal "+portalID)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, eris.New("request body too large")
	}
	return body, nil
}
