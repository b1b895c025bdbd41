package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/trackfit/internal/db"
	"github.com/banshee-data/trackfit/internal/fit/l4tracks"
	"github.com/banshee-data/trackfit/internal/httputil"
	"github.com/banshee-data/trackfit/internal/monitoring"
	"github.com/banshee-data/trackfit/internal/roadio"
	"github.com/banshee-data/trackfit/internal/version"
)

// WebServer serves fit diagnostics: grid charts of stored roads, stored
// tracks, Prometheus metrics and the database debug console.
type WebServer struct {
	address string
	server  *http.Server
	db      *db.DB
	fitter  *l4tracks.Fitter
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	DB      *db.DB
	Fitter  *l4tracks.Fitter
}

// NewWebServer creates a web server. The fitter is used to re-fit stored
// roads for the grid charts.
func NewWebServer(config WebServerConfig) (*WebServer, error) {
	if config.Fitter == nil {
		return nil, errors.New("monitor: web server needs a fitter")
	}
	ws := &WebServer{
		address: config.Address,
		db:      config.DB,
		fitter:  config.Fitter,
	}
	mux, err := ws.setupRoutes()
	if err != nil {
		return nil, err
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws, nil
}

// Handler returns the server's route multiplexer.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

// Start serves until ctx is cancelled, then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	monitoring.Logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

func (ws *WebServer) setupRoutes() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/grid", ws.handleGridChart)
	mux.HandleFunc("/api/runs", ws.handleRuns)
	mux.HandleFunc("/api/tracks", ws.handleTracks)
	mux.HandleFunc("/api/event", ws.handleEvent)
	mux.Handle("/metrics", promhttp.Handler())
	if ws.db != nil {
		if err := ws.db.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.String()})
}

// handleRuns lists stored runs, newest first.
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if ws.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "fit DB not configured")
		return
	}
	runs, err := ws.db.ListRuns(r.Context())
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

// handleEvent returns one stored input event in the column layout accepted
// by -input, so it can be re-fitted or edited offline.
// Query params:
//   - event (required)
func (ws *WebServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if ws.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "fit DB not configured")
		return
	}
	eventID, err := strconv.ParseInt(r.URL.Query().Get("event"), 10, 64)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, "event must be an integer")
		return
	}
	ev, err := ws.db.LoadEvent(r.Context(), eventID)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.WriteJSONError(w, http.StatusNotFound, fmt.Sprintf("event %d not found", eventID))
		return
	}
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, roadio.RecordOf(ev))
}

// handleTracks returns the stored tracks of one event.
// Query params:
//   - run (required)
//   - event (required)
func (ws *WebServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if ws.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "fit DB not configured")
		return
	}
	runID := r.URL.Query().Get("run")
	if runID == "" {
		httputil.WriteJSONError(w, http.StatusBadRequest, "run is required")
		return
	}
	eventID, err := strconv.ParseInt(r.URL.Query().Get("event"), 10, 64)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, "event must be an integer")
		return
	}
	tracks, err := ws.db.ListTracks(r.Context(), runID, eventID)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tracks == nil {
		tracks = []db.TrackRow{}
	}
	httputil.WriteJSON(w, http.StatusOK, tracks)
}
