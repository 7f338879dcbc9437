package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/mqttclient"
	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/pose/l4feedback"
	"github.com/banshee-data/posture.report/internal/pose/monitor"
	"github.com/banshee-data/posture.report/internal/pose/pipeline"
	"github.com/banshee-data/posture.report/internal/pose/visualiser"
	"github.com/banshee-data/posture.report/internal/timeutil"
	"github.com/banshee-data/posture.report/internal/version"
)

var (
	listen      = flag.String("listen", ":8090", "HTTP listen address")
	grpcAddr    = flag.String("grpc-addr", "localhost:50061", "gRPC feedback stream address (empty disables)")
	configPath  = flag.String("config", "", "Path to posture tuning file (.json/.yaml); defaults when empty")
	source      = flag.String("source", "synthetic", "Pose source: synthetic, worker or mqtt")
	workerAddr  = flag.String("worker", "-", "Worker stream for -source=worker: '-' for stdin, tcp://host:port, or a file path")
	mqttBroker  = flag.String("mqtt-broker", "", "MQTT broker host:port (empty disables MQTT)")
	mqttID      = flag.String("mqtt-client-id", "posture-report", "MQTT client id")
	background  = flag.String("background", "", "PNG/JPEG drawn behind the overlay")
	people      = flag.Int("synthetic-people", 1, "People in the synthetic scene")
	diagLog     = flag.Bool("diag", false, "Enable diagnostic logging")
	traceLog    = flag.Bool("trace", false, "Enable per-tick trace logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	setupLogging(*diagLog, *traceLog)

	cfg := config.DefaultPostureConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitoring.Opsf("[Main] starting %s source=%s", version.String(), *source)

	board := l4feedback.NewBoard(nil)
	sinks := l4feedback.MultiSink{board}

	var mqttSink *l4feedback.MQTTSink
	var mqttClient mqtt.Client
	var poseSubscriber *mqttSubscriber
	if *mqttBroker != "" {
		client, err := mqttclient.Connect(ctx, mqttclient.Options{Broker: *mqttBroker, ClientID: *mqttID})
		if err != nil {
			log.Fatalf("failed to connect to MQTT: %v", err)
		}
		mqttClient = client
		mqttSink = l4feedback.NewMQTTSink(client, l4feedback.MQTTSinkConfig{
			TopicPrefix:    cfg.GetMQTTTopicPrefix(),
			QoS:            cfg.GetMQTTQoS(),
			PublishTimeout: cfg.GetPublishTimeout(),
		})
		sinks = append(sinks, mqttSink)
		poseSubscriber = &mqttSubscriber{client: client, topic: cfg.GetMQTTPoseTopic(), qos: cfg.GetMQTTQoS()}
	}

	src, err := openSource(*source, sourceOptions{
		workerAddr: *workerAddr,
		people:     *people,
		config:     cfg,
		mqtt:       poseSubscriber,
	})
	if err != nil {
		log.Fatalf("failed to open pose source: %v", err)
	}
	defer src.Close()

	skeleton := l1keypoints.DefaultSkeleton()
	if s, ok := src.Skeleton(); ok {
		skeleton = s
	}

	session, err := pipeline.NewSessionFromConfig(cfg, skeleton, sinks, timeutil.RealClock{})
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	monitoring.Opsf("[Main] session %s, %d bones, frame interval %s", session.ID(), skeleton.Len(), cfg.GetFrameInterval())

	frames, err := loadBackground(*background)
	if err != nil {
		log.Fatalf("failed to load background: %v", err)
	}

	var publisher *visualiser.Publisher
	if *grpcAddr != "" {
		publisher = visualiser.NewPublisher(visualiser.Config{ListenAddr: *grpcAddr, MaxClients: visualiser.DefaultConfig().MaxClients})
		if err := publisher.Start(); err != nil {
			log.Fatalf("failed to start gRPC publisher: %v", err)
		}
		defer publisher.Stop()
		session.AddObserver(publisher)
	}

	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   *listen,
		Session:   session,
		Board:     board,
		Publisher: publisher,
		MQTT:      mqttSink,
	})
	session.AddObserver(ws)

	// Create a wait group for the render loop, pose source and HTTP server.
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := session.Run(ctx, frames); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Opsf("[Main] render loop error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := src.Run(ctx, func(poses []l1keypoints.Pose) { session.OnDetection(poses) })
		switch {
		case err == nil:
			monitoring.Opsf("[Main] pose source finished; keeping last feedback until shutdown")
		case !errors.Is(err, context.Canceled):
			monitoring.Opsf("[Main] pose source error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ws.Start(ctx); err != nil {
			monitoring.Opsf("[Main] HTTP server error: %v", err)
			stop()
		}
	}()

	wg.Wait()
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
	monitoring.Opsf("[Main] graceful shutdown complete")
}

func setupLogging(diag, trace bool) {
	var diagW, traceW io.Writer
	if diag {
		diagW = os.Stderr
	}
	if trace {
		traceW = os.Stderr
	}
	monitoring.SetLogWriters(os.Stderr, diagW, traceW)
}
