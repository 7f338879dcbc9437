package monitor

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"image"
	"image/png"
	"net/http"
	"sync/atomic"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/posture.report/internal/httputil"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/pose/l4feedback"
	"github.com/banshee-data/posture.report/internal/pose/pipeline"
	"github.com/banshee-data/posture.report/internal/pose/visualiser"
	"github.com/banshee-data/posture.report/internal/version"
)

//go:embed templates/*
var templateFS embed.FS

var feedbackTemplate = template.Must(template.ParseFS(templateFS, "templates/feedback.html.tmpl"))

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Session *pipeline.Session
	Board   *l4feedback.Board

	// Optional.
	Publisher *visualiser.Publisher
	MQTT      *l4feedback.MQTTSink
}

// WebServer serves the feedback page, JSON API and debug routes.
type WebServer struct {
	address   string
	session   *pipeline.Session
	board     *l4feedback.Board
	publisher *visualiser.Publisher
	mqtt      *l4feedback.MQTTSink
	server    *http.Server

	lastTick atomic.Pointer[tickSummary]
}

type tickSummary struct {
	Tick     uint64    `json:"tick"`
	At       time.Time `json:"at"`
	State    string    `json:"state"`
	BatchSeq uint64    `json:"batch_seq"`
	Poses    int       `json:"poses"`
	Analysed int       `json:"analysed"`
	Skipped  int       `json:"skipped"`
	frame    image.Image
}

// NewWebServer creates a web server for one session.
func NewWebServer(cfg WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   cfg.Address,
		session:   cfg.Session,
		board:     cfg.Board,
		publisher: cfg.Publisher,
		mqtt:      cfg.MQTT,
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.setupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

// Handler returns the route mux.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// ObserveTick implements pipeline.TickObserver. It keeps the latest frame
// so /overlay.png can encode it on demand.
func (ws *WebServer) ObserveTick(r *pipeline.TickReport) {
	ws.lastTick.Store(&tickSummary{
		Tick:     r.Tick,
		At:       r.At,
		State:    r.State.String(),
		BatchSeq: r.BatchSeq,
		Poses:    r.Poses,
		Analysed: r.Analysed,
		Skipped:  r.Skipped,
		frame:    r.Frame,
	})
}

// Start serves until ctx is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Opsf("[Monitor] HTTP server listening on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Opsf("[Monitor] HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Opsf("[Monitor] HTTP server force close error: %v", err)
		}
	}
	monitoring.Opsf("[Monitor] HTTP server stopped")
	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/feedback", ws.handleFeedbackJSON)
	mux.HandleFunc("/api/session", ws.handleSession)
	mux.HandleFunc("/overlay.png", ws.handleOverlay)
	mux.HandleFunc("/feedback", ws.handleFeedbackPage)
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/feedback", http.StatusFound)
	})

	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.Version)
	debug.KV("Session", ws.session.ID())
	debug.KVFunc("Ticks", func() any { return ws.session.Status().Ticks })
	debug.KVFunc("Feedback revision", func() any { return ws.board.Revision() })
	debug.HandleFunc("alignment", "Alignment metrics vs thresholds", ws.handleAlignmentChart)
	debug.HandleSilentFunc("ingest", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, ws.session.Status().Ingest)
	})
	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

type feedbackResponse struct {
	SessionID string            `json:"session_id"`
	Revision  uint64            `json:"revision"`
	Regions   []l4feedback.View `json:"regions"`
}

func (ws *WebServer) handleFeedbackJSON(w http.ResponseWriter, r *http.Request) {
	if !httputil.AllowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	httputil.NoStore(w)
	resp := feedbackResponse{SessionID: ws.session.ID(), Revision: ws.board.Revision()}
	for _, e := range ws.board.Snapshot() {
		resp.Regions = append(resp.Regions, l4feedback.NewView(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type sessionResponse struct {
	pipeline.Status
	LastTick  *tickSummary               `json:"last_tick,omitempty"`
	Publisher *visualiser.PublisherStats `json:"grpc,omitempty"`
	MQTT      *l4feedback.MQTTSinkStats  `json:"mqtt,omitempty"`
}

func (ws *WebServer) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{Status: ws.session.Status(), LastTick: ws.lastTick.Load()}
	if ws.publisher != nil {
		s := ws.publisher.Stats()
		resp.Publisher = &s
	}
	if ws.mqtt != nil {
		s := ws.mqtt.Stats()
		resp.MQTT = &s
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (ws *WebServer) handleOverlay(w http.ResponseWriter, r *http.Request) {
	last := ws.lastTick.Load()
	if last == nil || last.frame == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "no frame rendered yet")
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, last.frame); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to encode frame")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	httputil.NoStore(w)
	_, _ = w.Write(buf.Bytes())
}

type regionBlock struct {
	ID   string
	Body template.HTML
}

func (ws *WebServer) handleFeedbackPage(w http.ResponseWriter, r *http.Request) {
	data := struct {
		SessionID      string
		Revision       uint64
		RefreshSeconds int
		Regions        []regionBlock
	}{
		SessionID:      ws.session.ID(),
		Revision:       ws.board.Revision(),
		RefreshSeconds: 1,
	}
	for _, e := range ws.board.Snapshot() {
		// Entry.HTML escapes message and recommendation itself.
		data.Regions = append(data.Regions, regionBlock{ID: string(e.Region), Body: template.HTML(e.HTML())})
	}

	var buf bytes.Buffer
	if err := feedbackTemplate.Execute(&buf, data); err != nil {
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
