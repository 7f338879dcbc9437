package estimator

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
)

// MaxMessageSize bounds a single framed message.
const MaxMessageSize = 16 << 20

var (
	// ErrMessageTooLarge is returned for frames over MaxMessageSize.
	ErrMessageTooLarge = errors.New("pose message exceeds maximum size")
	// ErrNoSkeleton is returned when a stream does not open with a
	// skeleton message.
	ErrNoSkeleton = errors.New("pose stream did not start with skeleton handshake")
)

// DetectionFunc receives one complete detection batch.
type DetectionFunc func(poses []l1keypoints.Pose)

// Decoder reads length-prefixed messages.
type Decoder struct {
	r      *bufio.Reader
	header [4]byte
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next reads one message. It returns io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF when the stream stops inside a frame.
func (d *Decoder) Next() (Message, error) {
	if _, err := io.ReadFull(d.r, d.header[:]); err != nil {
		return Message{}, err
	}
	n := binary.BigEndian.Uint32(d.header[:])
	if n > MaxMessageSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(d.r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Message{}, fmt.Errorf("failed to read %d byte pose message: %w", n, err)
	}
	return DecodeMessage(body)
}

// Encoder writes length-prefixed messages. It is safe for concurrent use.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one framed message.
func (e *Encoder) Encode(m Message) error {
	body, err := EncodeMessage(m)
	if err != nil {
		return err
	}
	if len(body) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(body))
	}
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write pose message: %w", err)
	}
	return nil
}

// Handshake reads the first message and returns the skeleton it declares.
func Handshake(dec *Decoder) (l1keypoints.Skeleton, error) {
	m, err := dec.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return l1keypoints.Skeleton{}, ErrNoSkeleton
		}
		return l1keypoints.Skeleton{}, err
	}
	if m.Type != TypeSkeleton {
		return l1keypoints.Skeleton{}, fmt.Errorf("%w: got %q", ErrNoSkeleton, m.Type)
	}
	skel, err := l1keypoints.NewSkeleton(m.Skeleton)
	if err != nil {
		return l1keypoints.Skeleton{}, fmt.Errorf("%w: %v", ErrNoSkeleton, err)
	}
	return skel, nil
}

// StreamStats counts what Run delivered.
type StreamStats struct {
	Batches uint64
	Gaps    uint64 // messages missing according to Seq
}

// Run delivers every poses message after the handshake to onPoses until
// the stream ends or ctx is cancelled. A clean end of stream returns nil.
// Cancellation is observed between messages; close the underlying reader
// to interrupt a blocked read.
func Run(ctx context.Context, dec *Decoder, onPoses DetectionFunc) (StreamStats, error) {
	var stats StreamStats
	var lastSeq uint64
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		m, err := dec.Next()
		if errors.Is(err, io.EOF) {
			monitoring.Diagf("[Estimator] stream ended after %d batches", stats.Batches)
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		if m.Type != TypePoses {
			monitoring.Diagf("[Estimator] ignoring mid-stream %q message", m.Type)
			continue
		}
		if lastSeq != 0 && m.Seq > lastSeq+1 {
			stats.Gaps += m.Seq - lastSeq - 1
		}
		lastSeq = m.Seq
		stats.Batches++
		onPoses(PosesFromWire(m.Poses))
	}
}
