// Command gen-poses writes a synthetic pose stream.
//
// By default it writes the length-prefixed worker stream (skeleton
// handshake followed by poses messages) to stdout, which can be piped into
// `posture -source=worker`. With -mqtt-broker it publishes each poses
// message to the pose topic instead.
//
// Usage:
//
//	go run ./cmd/tools/gen-poses -n 300 -realtime | posture -source=worker
//	go run ./cmd/tools/gen-poses -mqtt-broker localhost:1883 -n 0 -realtime
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/posture.report/internal/mqttclient"
	"github.com/banshee-data/posture.report/internal/pose/estimator"
	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

func main() {
	out := flag.String("out", "-", "Output file, '-' for stdout")
	count := flag.Int("n", 300, "Number of batches (0 runs until interrupted)")
	rate := flag.Float64("rate", 10, "Batches per second")
	people := flag.Int("people", 1, "People per batch")
	width := flag.Int("width", 640, "Frame width in pixels")
	height := flag.Int("height", 480, "Frame height in pixels")
	seed := flag.Int64("seed", 1, "Random seed")
	realtime := flag.Bool("realtime", false, "Pace output at -rate instead of writing as fast as possible")
	broker := flag.String("mqtt-broker", "", "Publish to this MQTT broker instead of writing a stream")
	topic := flag.String("mqtt-topic", "posture/poses", "MQTT pose topic")
	flag.Parse()

	if *rate <= 0 {
		log.Fatal("-rate must be positive")
	}
	interval := time.Duration(float64(time.Second) / *rate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.NewMockClock(time.Now())
	gen := estimator.NewSyntheticGenerator(*width, *height, clock)
	gen.Seed(*seed)
	gen.People = *people
	gen.FrameRate = *rate

	var emit func(estimator.Message) error
	if *broker != "" {
		client, err := mqttclient.Connect(ctx, mqttclient.Options{Broker: *broker, ClientID: "gen-poses"})
		if err != nil {
			log.Fatalf("failed to connect to MQTT: %v", err)
		}
		defer client.Disconnect(250)
		emit = mqttEmitter(client, *topic)
	} else {
		var w io.Writer = os.Stdout
		if *out != "-" {
			f, err := os.Create(*out)
			if err != nil {
				log.Fatalf("failed to create %s: %v", *out, err)
			}
			defer f.Close()
			w = f
		}
		enc := estimator.NewEncoder(w)
		if err := enc.Encode(estimator.SkeletonMessage(l1keypoints.DefaultSkeleton())); err != nil {
			log.Fatalf("failed to write handshake: %v", err)
		}
		emit = enc.Encode
	}

	// Progress goes to stderr, so only show it when stdout is not the stream.
	var bar *pb.ProgressBar
	if *out != "-" && *broker == "" && *count > 0 {
		bar = pb.StartNew(*count)
	}

	written := 0
	for ; *count == 0 || written < *count; written++ {
		if ctx.Err() != nil {
			break
		}
		if err := emit(gen.Next()); err != nil {
			log.Fatalf("failed to emit batch %d: %v", written+1, err)
		}
		if bar != nil {
			bar.Increment()
		}
		clock.Advance(interval)
		if *realtime {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
	}
	if bar != nil {
		bar.Finish()
	}
	log.Printf("wrote %d batches", written)
}

func mqttEmitter(client mqtt.Client, topic string) func(estimator.Message) error {
	return func(m estimator.Message) error {
		body, err := estimator.EncodeMessage(m)
		if err != nil {
			return err
		}
		token := client.Publish(topic, 0, false, body)
		if !token.WaitTimeout(2 * time.Second) {
			log.Printf("publish of batch %d still pending", m.Seq)
			return nil
		}
		return token.Error()
	}
}
