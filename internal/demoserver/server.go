// Package demoserver is an in-process mock of the Vulnissimo API for demos
// and integration tests. Scans advance through a scripted lifecycle: each
// status poll moves a scan one step closer to its terminal state, which keeps
// tests deterministic.
package demoserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/vulnissimo/vulnissimo-go/internal/demoserver/docs" // swagger spec registration

	"github.com/vulnissimo/vulnissimo-go/internal/logging"
	"github.com/vulnissimo/vulnissimo-go/internal/model"
)

// Config controls the demo server's behavior.
type Config struct {
	// Addr is the listen address for Start (e.g. ":8099"). Unused when the
	// server is mounted via Handler (tests).
	Addr string

	// StepsToComplete is how many status polls a scan needs before it
	// reaches its terminal state. Defaults to 3 (pending, running,
	// terminal), the cadence the integration tests rely on.
	StepsToComplete int

	// Logger receives request diagnostics. If nil, logging is off.
	Logger logging.Logger
}

// scanState is the mutable record of one demo scan.
type scanState struct {
	scan     model.Scan
	polls    int
	fail     bool
	findings []model.Finding
}

// Server mocks the Vulnissimo API surface the SDK uses.
type Server struct {
	cfg      Config
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger

	mu    sync.RWMutex
	scans map[uuid.UUID]*scanState
}

// NewServer creates a demo server.
func NewServer(cfg Config) *Server {
	if cfg.StepsToComplete <= 0 {
		cfg.StepsToComplete = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	logger = logger.With(logging.Field{Key: "component", Value: "demoserver"})

	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: logger,
		scans:  make(map[uuid.UUID]*scanState),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Post("/scans", s.handleRunScan)
	r.Get("/scans/{scanID}", s.handleGetScanResult)
	r.Delete("/scans/{scanID}", s.handleCancelScan)
	r.Get("/scans/{scanID}/report", s.handleReportPage)
	r.Get("/ws/scans/{scanID}", s.handleProgressWS)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// Handler returns the HTTP handler, for mounting in httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the demo server until the listener fails.
func (s *Server) Start() error {
	s.logger.Info("demo server starting", logging.Field{Key: "addr", Value: s.cfg.Addr})
	return http.ListenAndServe(s.cfg.Addr, s.router)
}

// --- HTTP handlers ---

func (s *Server) handleRunScan(w http.ResponseWriter, r *http.Request) {
	var body model.ScanCreate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Target) == "" {
		writeError(w, http.StatusUnprocessableEntity, "target is required")
		return
	}

	id := uuid.New()
	state := &scanState{
		scan: model.Scan{
			ID:          id,
			Target:      body.Target,
			HTMLResult:  "http://" + r.Host + "/scans/" + id.String() + "/report",
			SubmittedAt: time.Now().UTC(),
		},
		fail:     body.Options["outcome"] == "failed" || strings.Contains(body.Target, "fail"),
		findings: demoFindings(body.Target),
	}

	s.mu.Lock()
	s.scans[id] = state
	s.mu.Unlock()

	s.logger.Info("scan accepted",
		logging.Field{Key: "scan_id", Value: id.String()},
		logging.Field{Key: "target", Value: body.Target})
	writeJSON(w, http.StatusCreated, state.scan)
}

func (s *Server) handleGetScanResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scanID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	s.mu.Lock()
	state, ok := s.scans[id]
	if ok {
		state.polls++
	}
	var result *model.ScanResult
	if ok {
		result = s.snapshot(state)
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("scan not found", logging.Field{Key: "scan_id", Value: id.String()})
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scanID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	s.mu.Lock()
	_, ok := s.scans[id]
	delete(s.scans, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	s.logger.Info("scan cancelled", logging.Field{Key: "scan_id", Value: id.String()})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scanID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	s.mu.RLock()
	_, ok := s.scans[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	// Push one update per step; the stream advances the scan like a poll
	// would, so watcher-only clients still see it finish.
	for {
		s.mu.Lock()
		state, ok := s.scans[id]
		if ok {
			state.polls++
		}
		var result *model.ScanResult
		if ok {
			result = s.snapshot(state)
		}
		s.mu.Unlock()

		if !ok {
			return
		}

		event := map[string]any{
			"scan_info": result.ScanInfo,
			"findings":  len(result.Findings),
		}
		if err := conn.WriteJSON(event); err != nil {
			return
		}
		if result.ScanInfo.Status.Terminal() {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scanID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	s.mu.RLock()
	state, ok := s.scans[id]
	var result *model.ScanResult
	if ok {
		result = s.snapshot(state)
	}
	s.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reportTemplate.Execute(w, reportData(result)); err != nil {
		s.logger.Warn("rendering report page", logging.Field{Key: "error", Value: err.Error()})
	}
}

// snapshot derives the externally visible result from a scan's poll count.
// Callers must hold at least a read lock.
func (s *Server) snapshot(state *scanState) *model.ScanResult {
	steps := s.cfg.StepsToComplete

	info := model.ScanInfo{
		SubmittedAt: state.scan.SubmittedAt,
		Progress:    state.polls * 100 / steps,
	}
	if info.Progress > 100 {
		info.Progress = 100
	}

	result := &model.ScanResult{
		ID:         state.scan.ID,
		Target:     state.scan.Target,
		HTMLResult: state.scan.HTMLResult,
	}

	switch {
	case state.polls < steps && state.polls < 2:
		info.Status = model.StatusPending
	case state.polls < steps:
		info.Status = model.StatusRunning
	case state.fail:
		info.Status = model.StatusFailed
		result.Error = "scanner worker crashed (demo failure)"
		ended := time.Now().UTC()
		info.EndedAt = &ended
	default:
		info.Status = model.StatusCompleted
		info.Progress = 100
		result.Findings = state.findings
		ended := time.Now().UTC()
		info.EndedAt = &ended
	}

	result.ScanInfo = info
	return result
}

// demoFindings returns the findings fixture for a target. Targets containing
// "clean" scan clean, everything else gets the standard set.
func demoFindings(target string) []model.Finding {
	if strings.Contains(target, "clean") {
		return []model.Finding{}
	}
	return []model.Finding{
		{
			ID:          "f-1",
			Title:       "SQL injection in login form",
			RiskLevel:   model.RiskCritical,
			Description: "The username parameter is concatenated into a SQL query.",
			CWE:         "CWE-89",
			Location:    "/login",
			Evidence:    "' OR '1'='1 returned a session cookie",
		},
		{
			ID:          "f-2",
			Title:       "Reflected XSS in search",
			RiskLevel:   model.RiskHigh,
			Description: "The q parameter is echoed unescaped into the results page.",
			CWE:         "CWE-79",
			Location:    "/search",
		},
		{
			ID:        "f-3",
			Title:     "Missing HSTS header",
			RiskLevel: model.RiskLow,
			Location:  "/",
		},
		{
			ID:        "f-4",
			Title:     "Server version disclosed",
			RiskLevel: model.RiskInfo,
			Location:  "/",
			Metadata:  map[string]any{"header": "Server: nginx/1.18.0"},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
