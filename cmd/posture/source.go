package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/pose/estimator"
	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/pose/pipeline"
)

// poseSource is a running estimator adapter.
type poseSource interface {
	// Skeleton reports the skeleton declared by the source, if any.
	Skeleton() (l1keypoints.Skeleton, bool)
	Run(ctx context.Context, onPoses estimator.DetectionFunc) error
	Close() error
}

type sourceOptions struct {
	workerAddr string
	people     int
	config     *config.PostureConfig
	mqtt       *mqttSubscriber
}

func openSource(kind string, o sourceOptions) (poseSource, error) {
	switch kind {
	case "synthetic":
		w, h := o.config.GetCanvasSize()
		g := estimator.NewSyntheticGenerator(w, h, nil)
		if o.people > 0 {
			g.People = o.people
		}
		return syntheticSource{g}, nil
	case "worker":
		w, err := openWorker(o.workerAddr)
		if err != nil {
			return nil, err
		}
		return w, nil
	case "mqtt":
		if o.mqtt == nil {
			return nil, fmt.Errorf("-source=mqtt requires -mqtt-broker")
		}
		return o.mqtt, nil
	}
	return nil, fmt.Errorf("unknown pose source %q", kind)
}

type syntheticSource struct {
	gen *estimator.SyntheticGenerator
}

func (syntheticSource) Skeleton() (l1keypoints.Skeleton, bool) { return l1keypoints.Skeleton{}, false }
func (s syntheticSource) Run(ctx context.Context, fn estimator.DetectionFunc) error {
	return s.gen.Run(ctx, fn)
}
func (syntheticSource) Close() error { return nil }

type workerSource struct {
	rc       io.ReadCloser
	dec      *estimator.Decoder
	skeleton l1keypoints.Skeleton
}

// openWorker connects to the worker stream and completes the handshake.
func openWorker(addr string) (*workerSource, error) {
	var rc io.ReadCloser
	switch {
	case addr == "-":
		rc = os.Stdin
	case strings.HasPrefix(addr, "tcp://"):
		conn, err := net.DialTimeout("tcp", strings.TrimPrefix(addr, "tcp://"), 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to dial worker: %w", err)
		}
		rc = conn
	default:
		f, err := os.Open(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to open worker stream: %w", err)
		}
		rc = f
	}

	dec := estimator.NewDecoder(rc)
	skel, err := estimator.Handshake(dec)
	if err != nil {
		rc.Close()
		return nil, err
	}
	monitoring.Opsf("[Estimator] worker %s declared %d bones", addr, skel.Len())
	return &workerSource{rc: rc, dec: dec, skeleton: skel}, nil
}

func (w *workerSource) Skeleton() (l1keypoints.Skeleton, bool) { return w.skeleton, true }

func (w *workerSource) Run(ctx context.Context, fn estimator.DetectionFunc) error {
	// Closing the reader is the only way to interrupt a blocked read.
	stop := context.AfterFunc(ctx, func() { w.rc.Close() })
	defer stop()

	stats, err := estimator.Run(ctx, w.dec, fn)
	monitoring.Diagf("[Estimator] worker stream: %d batches, %d gaps", stats.Batches, stats.Gaps)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (w *workerSource) Close() error { return w.rc.Close() }

type mqttSubscriber struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func (m *mqttSubscriber) Skeleton() (l1keypoints.Skeleton, bool) { return l1keypoints.Skeleton{}, false }
func (m *mqttSubscriber) Run(ctx context.Context, fn estimator.DetectionFunc) error {
	return estimator.NewMQTTSource(m.client, m.topic, m.qos).Run(ctx, fn)
}
func (m *mqttSubscriber) Close() error { return nil }

type staticFrame struct {
	img image.Image
}

func (f staticFrame) Frame() image.Image { return f.img }

// loadBackground decodes path as the fixed capture frame. An empty path
// renders on a blank canvas.
func loadBackground(path string) (pipeline.FrameSource, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return staticFrame{img}, nil
}
