package monitor

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posture.report/internal/config"
	kp "github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/pose/l4feedback"
	"github.com/banshee-data/posture.report/internal/pose/pipeline"
	"github.com/banshee-data/posture.report/internal/pose/visualiser"
	"github.com/banshee-data/posture.report/internal/testutil"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

type fixture struct {
	ws      *WebServer
	session *pipeline.Session
	board   *l4feedback.Board
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC))
	board := l4feedback.NewBoard(clock)
	session, err := pipeline.NewSessionFromConfig(config.DefaultPostureConfig(), kp.DefaultSkeleton(), board, clock)
	require.NoError(t, err)
	ws := NewWebServer(WebServerConfig{
		Address:   "localhost:0",
		Session:   session,
		Board:     board,
		Publisher: visualiser.NewPublisher(visualiser.DefaultConfig()),
	})
	session.AddObserver(ws)
	return fixture{ws: ws, session: session, board: board}
}

// loopbackRequest sets RemoteAddr so tsweb allows debug access.
func loopbackRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func serve(f fixture, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.ws.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFeedbackJSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := serve(f, httptest.NewRequest(http.MethodGet, "/api/feedback", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var before feedbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	require.Len(t, before.Regions, 6)
	assert.False(t, before.Regions[0].Set)

	f.session.OnDetection([]kp.Pose{testutil.NewPoseBuilder().X(kp.Nose, 400).Build()})
	f.session.Tick(nil)

	rec = serve(f, httptest.NewRequest(http.MethodGet, "/api/feedback", nil))
	var after feedbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, f.session.ID(), after.SessionID)
	assert.Equal(t, uint64(6), after.Revision)
	neck := after.Regions[2]
	assert.Equal(t, "neck-feedback", neck.Region)
	assert.False(t, neck.Aligned)
	assert.Equal(t, "#ff8c00", neck.Color)
	assert.Equal(t, 80.0, neck.Metric)

	rec = serve(f, httptest.NewRequest(http.MethodPost, "/api/feedback", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionJSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.session.OnDetection(nil)
	f.session.Tick(nil)

	rec := serve(f, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, f.session.ID(), got["session_id"])
	assert.Equal(t, true, got["initialised"])
	assert.Equal(t, "empty", got["last_tick"].(map[string]any)["state"])
	assert.Contains(t, got, "grpc")
	assert.NotContains(t, got, "mqtt")
}

func TestOverlayPNG(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := serve(f, httptest.NewRequest(http.MethodGet, "/overlay.png", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.session.OnDetection([]kp.Pose{testutil.UprightPose()})
	f.session.Tick(nil)

	rec = serve(f, httptest.NewRequest(http.MethodGet, "/overlay.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())
}

func TestFeedbackPage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.session.OnDetection([]kp.Pose{testutil.NewPoseBuilder().Y(kp.LeftShoulder, 80).Build()})
	f.session.Tick(nil)

	rec := serve(f, httptest.NewRequest(http.MethodGet, "/feedback", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, id := range []string{"shoulder-feedback", "hip-feedback", "neck-feedback", "knee-feedback", "ankle-feedback", "arm-feedback"} {
		assert.Contains(t, body, `id="`+id+`"`)
	}
	assert.Contains(t, body, `<p style="color:#ffff00;">Shoulder Misalignment Detected!</p><p>Recommendation: Level your shoulders.</p>`)
	assert.Contains(t, body, `<p style="color:#00ff00;">Good Hip Alignment!</p>`)

	rec = serve(f, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestDebugRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.session.OnDetection([]kp.Pose{testutil.UprightPose()})
	f.session.Tick(nil)

	rec := serve(f, loopbackRequest(http.MethodGet, "/debug/alignment"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Posture alignment")
	assert.Contains(t, rec.Body.String(), "neck-feedback")

	rec = serve(f, loopbackRequest(http.MethodGet, "/debug/ingest"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stored":1`)

	rec = serve(f, loopbackRequest(http.MethodGet, "/debug/"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), f.session.ID())

	rec = serve(f, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
