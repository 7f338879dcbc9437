package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
)

// DefaultConfigPath is the path to the canonical posture defaults file.
const DefaultConfigPath = "config/posture.defaults.json"

// PostureConfig holds tuning for the posture pipeline. Every field is
// optional; the Get* methods supply defaults for fields left unset, so
// partial files are safe.
type PostureConfig struct {
	// Analysis params
	GateMinConfidence *float64           `json:"gate_min_confidence,omitempty" yaml:"gate_min_confidence,omitempty"`
	ThresholdsPx      map[string]float64 `json:"thresholds_px,omitempty" yaml:"thresholds_px,omitempty"` // region id -> pixels

	// Render params
	RenderMinConfidence *float64 `json:"render_min_confidence,omitempty" yaml:"render_min_confidence,omitempty"`
	BoneWidthPx         *float64 `json:"bone_width_px,omitempty" yaml:"bone_width_px,omitempty"`
	MarkerDiameterPx    *float64 `json:"marker_diameter_px,omitempty" yaml:"marker_diameter_px,omitempty"`
	CanvasWidth         *int     `json:"canvas_width,omitempty" yaml:"canvas_width,omitempty"`
	CanvasHeight        *int     `json:"canvas_height,omitempty" yaml:"canvas_height,omitempty"`
	FrameRate           *float64 `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"` // render ticks per second

	// Feedback transport params
	MQTTTopicPrefix *string `json:"mqtt_topic_prefix,omitempty" yaml:"mqtt_topic_prefix,omitempty"`
	MQTTPoseTopic   *string `json:"mqtt_pose_topic,omitempty" yaml:"mqtt_pose_topic,omitempty"`
	MQTTQoS         *int    `json:"mqtt_qos,omitempty" yaml:"mqtt_qos,omitempty"`
	PublishTimeout  *string `json:"publish_timeout,omitempty" yaml:"publish_timeout,omitempty"` // duration string like "2s"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPostureConfig returns a PostureConfig with every field unset.
func EmptyPostureConfig() *PostureConfig {
	return &PostureConfig{}
}

// DefaultPostureConfig returns a config with every field set to its
// default, matching config/posture.defaults.json.
func DefaultPostureConfig() *PostureConfig {
	thresholds := make(map[string]float64, len(l3alignment.Regions))
	for _, c := range l3alignment.DefaultChecks() {
		thresholds[string(c.Region)] = c.Threshold
	}
	return &PostureConfig{
		GateMinConfidence:   ptrFloat64(0.5),
		ThresholdsPx:        thresholds,
		RenderMinConfidence: ptrFloat64(0.1),
		BoneWidthPx:         ptrFloat64(2),
		MarkerDiameterPx:    ptrFloat64(10),
		CanvasWidth:         ptrInt(640),
		CanvasHeight:        ptrInt(480),
		FrameRate:           ptrFloat64(30),
		MQTTTopicPrefix:     ptrString("posture/feedback"),
		MQTTPoseTopic:       ptrString("posture/poses"),
		MQTTQoS:             ptrInt(0),
		PublishTimeout:      ptrString("2s"),
	}
}

// LoadConfig loads a PostureConfig from a .json, .yaml or .yml file of at
// most 1MB and validates it.
func LoadConfig(path string) (*PostureConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPostureConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PostureConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/pose/<layer>/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that set values are in range.
func (c *PostureConfig) Validate() error {
	if c.GateMinConfidence != nil && (*c.GateMinConfidence < 0 || *c.GateMinConfidence > 1) {
		return fmt.Errorf("gate_min_confidence must be between 0 and 1, got %f", *c.GateMinConfidence)
	}
	if c.RenderMinConfidence != nil && (*c.RenderMinConfidence < 0 || *c.RenderMinConfidence > 1) {
		return fmt.Errorf("render_min_confidence must be between 0 and 1, got %f", *c.RenderMinConfidence)
	}
	for region, th := range c.ThresholdsPx {
		if !l3alignment.Region(region).Valid() {
			return fmt.Errorf("thresholds_px: unknown region %q", region)
		}
		if th < 0 {
			return fmt.Errorf("thresholds_px[%s] must be non-negative, got %f", region, th)
		}
	}
	if c.BoneWidthPx != nil && *c.BoneWidthPx <= 0 {
		return fmt.Errorf("bone_width_px must be positive, got %f", *c.BoneWidthPx)
	}
	if c.MarkerDiameterPx != nil && *c.MarkerDiameterPx <= 0 {
		return fmt.Errorf("marker_diameter_px must be positive, got %f", *c.MarkerDiameterPx)
	}
	if c.CanvasWidth != nil && *c.CanvasWidth <= 0 {
		return fmt.Errorf("canvas_width must be positive, got %d", *c.CanvasWidth)
	}
	if c.CanvasHeight != nil && *c.CanvasHeight <= 0 {
		return fmt.Errorf("canvas_height must be positive, got %d", *c.CanvasHeight)
	}
	if c.FrameRate != nil && (*c.FrameRate <= 0 || *c.FrameRate > 240) {
		return fmt.Errorf("frame_rate must be in (0, 240], got %f", *c.FrameRate)
	}
	if c.MQTTQoS != nil && (*c.MQTTQoS < 0 || *c.MQTTQoS > 2) {
		return fmt.Errorf("mqtt_qos must be 0, 1 or 2, got %d", *c.MQTTQoS)
	}
	if c.PublishTimeout != nil && *c.PublishTimeout != "" {
		if _, err := time.ParseDuration(*c.PublishTimeout); err != nil {
			return fmt.Errorf("invalid publish_timeout '%s': %w", *c.PublishTimeout, err)
		}
	}
	return nil
}

// GetGateMinConfidence returns the gate_min_confidence value or the default.
func (c *PostureConfig) GetGateMinConfidence() float64 {
	if c.GateMinConfidence == nil {
		return l3alignment.DefaultGateConfidence
	}
	return *c.GateMinConfidence
}

// GetThresholds returns the per-region overrides keyed by region.
func (c *PostureConfig) GetThresholds() map[l3alignment.Region]float64 {
	out := make(map[l3alignment.Region]float64, len(c.ThresholdsPx))
	for k, v := range c.ThresholdsPx {
		out[l3alignment.Region(k)] = v
	}
	return out
}

// GetRenderMinConfidence returns the render_min_confidence value or the default.
func (c *PostureConfig) GetRenderMinConfidence() float64 {
	if c.RenderMinConfidence == nil {
		return 0.1
	}
	return *c.RenderMinConfidence
}

// GetBoneWidthPx returns the bone_width_px value or the default.
func (c *PostureConfig) GetBoneWidthPx() float64 {
	if c.BoneWidthPx == nil {
		return 2
	}
	return *c.BoneWidthPx
}

// GetMarkerDiameterPx returns the marker_diameter_px value or the default.
func (c *PostureConfig) GetMarkerDiameterPx() float64 {
	if c.MarkerDiameterPx == nil {
		return 10
	}
	return *c.MarkerDiameterPx
}

// GetCanvasSize returns the canvas size or 640x480.
func (c *PostureConfig) GetCanvasSize() (width, height int) {
	width, height = 640, 480
	if c.CanvasWidth != nil {
		width = *c.CanvasWidth
	}
	if c.CanvasHeight != nil {
		height = *c.CanvasHeight
	}
	return width, height
}

// GetFrameInterval converts frame_rate into a render tick interval.
func (c *PostureConfig) GetFrameInterval() time.Duration {
	rate := 30.0
	if c.FrameRate != nil && *c.FrameRate > 0 {
		rate = *c.FrameRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// GetMQTTTopicPrefix returns the mqtt_topic_prefix value or the default.
func (c *PostureConfig) GetMQTTTopicPrefix() string {
	if c.MQTTTopicPrefix == nil || *c.MQTTTopicPrefix == "" {
		return "posture/feedback"
	}
	return *c.MQTTTopicPrefix
}

// GetMQTTPoseTopic returns the mqtt_pose_topic value or the default.
func (c *PostureConfig) GetMQTTPoseTopic() string {
	if c.MQTTPoseTopic == nil || *c.MQTTPoseTopic == "" {
		return "posture/poses"
	}
	return *c.MQTTPoseTopic
}

// GetMQTTQoS returns the mqtt_qos value or the default.
func (c *PostureConfig) GetMQTTQoS() byte {
	if c.MQTTQoS == nil {
		return 0
	}
	return byte(*c.MQTTQoS)
}

// GetPublishTimeout parses and returns PublishTimeout.
func (c *PostureConfig) GetPublishTimeout() time.Duration {
	if c.PublishTimeout == nil || *c.PublishTimeout == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.PublishTimeout)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}
