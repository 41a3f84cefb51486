package adapter

import (
	"context"
	"errors"
	"io"
	"sync"

	goserial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/hdlc"
	"github.com/dotbot-project/fleet-controller/internal/protocol"
)

// helloPayload and byePayload are the edge-gateway attach/detach handshake
// bytes from spec.md §6 — sent raw (not a protocol.Frame) through the HDLC
// encoder on Start/Close.
var (
	helloPayload = []byte{0x01, 0xFF}
	byePayload   = []byte{0x01, 0xFE}
)

// SerialConfig configures the real hardware link.
type SerialConfig struct {
	PortName string
	BaudRate uint
}

// SerialAdapter is the real-hardware Adapter, grounded on
// original_source/dotbot/adapter.py's SerialAdapter (byte queue fed by a
// callback-driven reader) and jacobsa/go-serial for the port itself, since
// neither the teacher nor any other pack repo performs raw serial I/O.
type SerialAdapter struct {
	cfg    SerialConfig
	logger *zap.Logger

	mu      sync.Mutex
	port    io.ReadWriteCloser
	started bool

	// writeMu serializes every paced write to port. spec.md §5 grants the
	// writer task sole ownership of the link with "no locking beyond the
	// implicit single-owner rule" because the reference implementation's
	// event loop is single-threaded; Go's goroutine-per-caller HTTP/MQTT/
	// calibration callers need this mutex to recreate that single-writer
	// guarantee, otherwise two concurrent writePaced calls interleave their
	// chunks on the wire.
	writeMu sync.Mutex
}

// NewSerialAdapter opens the configured port and readies a SerialAdapter.
func NewSerialAdapter(cfg SerialConfig, logger *zap.Logger) (*SerialAdapter, error) {
	port, err := goserial.Open(goserial.OpenOptions{
		PortName:        cfg.PortName,
		BaudRate:        cfg.BaudRate,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      goserial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, &Error{Kind: LinkDown, Msg: "adapter: open serial port: " + err.Error()}
	}
	return &SerialAdapter{cfg: cfg, logger: logger, port: port}, nil
}

// Start launches the dedicated byte-reader goroutine and the frame
// dispatcher, then sends the attach hello.
func (a *SerialAdapter) Start(ctx context.Context, onFrame func(protocol.Frame)) error {
	a.mu.Lock()
	a.started = true
	port := a.port
	a.mu.Unlock()

	bytes := make(chan []byte, 256)

	// The one dedicated goroutine for blocking serial reads (spec.md §5);
	// its only job is pushing raw chunks onto a channel for the
	// event-loop-side decoder to consume.
	go func() {
		defer close(bytes)
		buf := make([]byte, 256)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case bytes <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					a.logger.Warn("serial link disconnected")
				} else {
					a.logger.Error("serial read failed", zap.Error(err))
				}
				return
			}
		}
	}()

	go a.dispatch(ctx, bytes, onFrame)

	return a.writeFramed(ctx, port, helloPayload)
}

// dispatch is the frame-decoding consumer: it owns the HDLC decoder instance
// (one per adapter, per spec.md §5) and feeds each assembled payload through
// the packet codec before calling onFrame.
func (a *SerialAdapter) dispatch(ctx context.Context, bytes <-chan []byte, onFrame func(protocol.Frame)) {
	dec := hdlc.NewDecoder()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-bytes:
			if !ok {
				return
			}
			for _, b := range chunk {
				if dec.HandleByte(b) != hdlc.Ready {
					continue
				}
				payload, err := dec.Payload()
				if err != nil || payload == nil {
					continue
				}
				frame, err := protocol.DecodeFrame(payload)
				if err != nil {
					a.logger.Debug("dropping undecodable frame", zap.Error(err))
					continue
				}
				onFrame(frame)
			}
		}
	}
}

// Send serializes, HDLC-frames, and paced-writes frame to the port. Callers
// reach this concurrently (HTTP handlers, the MQTT bridge's callback
// goroutine, the calibration hand-off's own goroutine); writeFramed's
// writeMu keeps their chunks from interleaving on the wire.
func (a *SerialAdapter) Send(ctx context.Context, frame protocol.Frame) error {
	a.mu.Lock()
	started, port := a.started, a.port
	a.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return a.writeFramed(ctx, port, protocol.EncodeFrame(frame))
}

// writeFramed HDLC-encodes payload and paced-writes it to port under
// writeMu, so the whole chunked write completes before another Send,
// Start's hello, or Close's bye can start one of its own.
func (a *SerialAdapter) writeFramed(ctx context.Context, port io.Writer, payload []byte) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return writePaced(ctx, port, hdlc.Encode(payload))
}

// Close sends the detach bye and releases the port.
func (a *SerialAdapter) Close() error {
	a.mu.Lock()
	port := a.port
	a.port = nil
	a.mu.Unlock()
	if port == nil {
		return nil
	}
	_ = a.writeFramed(context.Background(), port, byePayload)
	return port.Close()
}
