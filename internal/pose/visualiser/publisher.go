package visualiser

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/pose/pipeline"
)

// Config holds configuration for the feedback gRPC server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50061")
	ListenAddr string

	// MaxClients caps concurrent viewers; 0 means unlimited.
	MaxClients int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50061",
		MaxClients: 8,
	}
}

// Publisher owns the gRPC server and fans updates out to viewers.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	updates   chan *Update
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	lastState string // render goroutine only

	updateCount    atomic.Uint64
	droppedUpdates atomic.Uint64
	clientCount    atomic.Int32

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type clientStream struct {
	id      string
	request Request
	ch      chan *Update
}

// NewPublisher creates a stopped publisher.
func NewPublisher(cfg Config) *Publisher {
	return &Publisher{
		config:  cfg,
		updates: make(chan *Update, 100),
		clients: make(map[string]*clientStream),
		stopCh:  make(chan struct{}),
	}
}

// Start listens on the configured address and serves in the background.
func (p *Publisher) Start() error {
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve serves on lis in the background.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.listener = lis
	p.server = grpc.NewServer()
	RegisterFeedbackServer(p.server, p)

	p.wg.Add(2)
	go p.broadcastLoop()
	go func() {
		defer p.wg.Done()
		monitoring.Opsf("[Visualiser] gRPC feedback stream listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			monitoring.Opsf("[Visualiser] gRPC server error: %v", err)
		}
	}()
	return nil
}

// Stop closes every stream and waits for the server to exit.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	p.server.Stop()
	p.wg.Wait()
	monitoring.Opsf("[Visualiser] gRPC server stopped")
}

// ObserveTick implements pipeline.TickObserver. Ticks that publish
// nothing and keep the same state are not streamed.
func (p *Publisher) ObserveTick(r *pipeline.TickReport) {
	state := r.State.String()
	if len(r.Results) == 0 && state == p.lastState {
		return
	}
	p.lastState = state
	p.Publish(NewUpdate(r))
}

// Publish queues u for every viewer without blocking.
func (p *Publisher) Publish(u *Update) {
	if !p.running.Load() || u == nil {
		return
	}
	select {
	case p.updates <- u:
		p.updateCount.Add(1)
	default:
		if n := p.droppedUpdates.Add(1); n == 1 || n%100 == 0 {
			monitoring.Opsf("[Visualiser] update queue full, dropped %d updates", n)
		}
	}
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case u := <-p.updates:
			p.clientsMu.RLock()
			for _, c := range p.clients {
				select {
				case c.ch <- u:
				default:
					// Slow viewer.
					p.droppedUpdates.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

func (p *Publisher) addClient(req Request) (*clientStream, error) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if p.config.MaxClients > 0 && len(p.clients) >= p.config.MaxClients {
		return nil, fmt.Errorf("viewer limit %d reached", p.config.MaxClients)
	}
	c := &clientStream{
		id:      uuid.NewString(),
		request: req,
		ch:      make(chan *Update, 10),
	}
	p.clients[c.id] = c
	n := p.clientCount.Add(1)
	monitoring.Opsf("[Visualiser] viewer connected: %s regions=%v (total: %d)", c.id, req.Regions, n)
	return c, nil
}

func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	_, ok := p.clients[id]
	delete(p.clients, id)
	p.clientsMu.Unlock()
	if ok {
		n := p.clientCount.Add(-1)
		monitoring.Opsf("[Visualiser] viewer disconnected: %s (remaining: %d)", id, n)
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	Updates uint64 `json:"updates"`
	Dropped uint64 `json:"dropped"`
	Clients int32  `json:"clients"`
	Running bool   `json:"running"`
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Updates: p.updateCount.Load(),
		Dropped: p.droppedUpdates.Load(),
		Clients: p.clientCount.Load(),
		Running: p.running.Load(),
	}
}
