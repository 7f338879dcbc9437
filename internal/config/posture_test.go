package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
)

func TestDefaultPostureConfig(t *testing.T) {
	cfg := DefaultPostureConfig()

	assert.Equal(t, 0.5, cfg.GetGateMinConfidence())
	assert.Equal(t, 0.1, cfg.GetRenderMinConfidence())
	assert.Equal(t, 2.0, cfg.GetBoneWidthPx())
	assert.Equal(t, 10.0, cfg.GetMarkerDiameterPx())
	w, h := cfg.GetCanvasSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, time.Second/30, cfg.GetFrameInterval())
	assert.Equal(t, "posture/feedback", cfg.GetMQTTTopicPrefix())
	assert.Equal(t, 2*time.Second, cfg.GetPublishTimeout())

	th := cfg.GetThresholds()
	assert.Equal(t, 30.0, th[l3alignment.RegionNeck])
	assert.Equal(t, 50.0, th[l3alignment.RegionShoulder])
	assert.Len(t, th, 6)
	require.NoError(t, cfg.Validate())
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := EmptyPostureConfig()
	def := DefaultPostureConfig()

	assert.Equal(t, def.GetGateMinConfidence(), cfg.GetGateMinConfidence())
	assert.Equal(t, def.GetRenderMinConfidence(), cfg.GetRenderMinConfidence())
	assert.Equal(t, def.GetFrameInterval(), cfg.GetFrameInterval())
	assert.Equal(t, def.GetMQTTPoseTopic(), cfg.GetMQTTPoseTopic())
	assert.Equal(t, byte(0), cfg.GetMQTTQoS())
	assert.Empty(t, cfg.GetThresholds())
}

func TestDefaultsFileMatchesCode(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultPostureConfig(), fromFile); diff != "" {
		t.Errorf("config/posture.defaults.json drifted from DefaultPostureConfig (-code +file):\n%s", diff)
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(tmpDir, "posture.json")
		body := `{
  "gate_min_confidence": 0.6,
  "thresholds_px": {"neck-feedback": 25},
  "frame_rate": 15
}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 0.6, cfg.GetGateMinConfidence())
		assert.Equal(t, 25.0, cfg.GetThresholds()[l3alignment.RegionNeck])
		assert.Equal(t, time.Second/15, cfg.GetFrameInterval())
		assert.Equal(t, 0.1, cfg.GetRenderMinConfidence(), "unset fields keep defaults")
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(tmpDir, "posture.yaml")
		body := "render_min_confidence: 0.2\nmqtt_topic_prefix: gym/mirror-1\nthresholds_px:\n  hip-feedback: 40\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 0.2, cfg.GetRenderMinConfidence())
		assert.Equal(t, "gym/mirror-1", cfg.GetMQTTTopicPrefix())
		assert.Equal(t, 40.0, cfg.GetThresholds()[l3alignment.RegionHip])
	})

	t.Run("bad extension", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(tmpDir, "posture.toml"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/posture.json")
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(tmpDir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"frame_rate": "fast"`), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("fails validation", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"gate_min_confidence": 1.5}`), 0644))
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "gate_min_confidence")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *PostureConfig
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultPostureConfig()},
		{name: "empty", cfg: &PostureConfig{}},
		{name: "gate below zero", cfg: &PostureConfig{GateMinConfidence: ptrFloat64(-0.1)}, wantErr: true},
		{name: "render above one", cfg: &PostureConfig{RenderMinConfidence: ptrFloat64(1.1)}, wantErr: true},
		{name: "unknown region", cfg: &PostureConfig{ThresholdsPx: map[string]float64{"spine-feedback": 1}}, wantErr: true},
		{name: "negative threshold", cfg: &PostureConfig{ThresholdsPx: map[string]float64{"arm-feedback": -1}}, wantErr: true},
		{name: "zero bone width", cfg: &PostureConfig{BoneWidthPx: ptrFloat64(0)}, wantErr: true},
		{name: "zero marker", cfg: &PostureConfig{MarkerDiameterPx: ptrFloat64(0)}, wantErr: true},
		{name: "zero canvas", cfg: &PostureConfig{CanvasWidth: ptrInt(0)}, wantErr: true},
		{name: "negative canvas height", cfg: &PostureConfig{CanvasHeight: ptrInt(-4)}, wantErr: true},
		{name: "frame rate too high", cfg: &PostureConfig{FrameRate: ptrFloat64(500)}, wantErr: true},
		{name: "bad qos", cfg: &PostureConfig{MQTTQoS: ptrInt(3)}, wantErr: true},
		{name: "bad timeout", cfg: &PostureConfig{PublishTimeout: ptrString("soon")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
