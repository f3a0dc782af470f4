// Package bus implements serialized register transactions against a single
// I2C endpoint.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/sm5714"
	"github.com/mklimuk/sm5714/snsctx"
)

const (
	DefaultBufferSize = 16
	DefaultTimeout    = 100 * time.Millisecond
	// NoTimeout disables the deadline of a sequenced transaction.
	NoTimeout time.Duration = 0
	// UseDefault selects the connection's configured timeout.
	UseDefault time.Duration = -1
)

var ErrClosed = errors.New("bus connection closed")

type Opts struct {
	Name       string
	Timeout    time.Duration
	BufferSize int
	Logger     *slog.Logger
}

type Opt func(*Opts)

func WithName(name string) Opt {
	return func(o *Opts) {
		o.Name = name
	}
}

func WithTimeout(timeout time.Duration) Opt {
	return func(o *Opts) {
		o.Timeout = timeout
	}
}

func WithBufferSize(size int) Opt {
	return func(o *Opts) {
		o.BufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// Conn is one endpoint on a bus. All transactions on a Conn are serialized by
// its guard; distinct Conns never share state.
type Conn struct {
	mx        sync.Mutex
	transport sm5714.I2CBus
	address   byte
	config    Opts
	log       *slog.Logger
	wbuf      []byte
	rbuf      []byte
	closed    bool
}

func New(transport sm5714.I2CBus, address byte, opts ...Opt) *Conn {
	config := Opts{
		Name:       fmt.Sprintf("i2c@%#02x", address),
		Timeout:    DefaultTimeout,
		BufferSize: DefaultBufferSize,
		Logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Conn{
		transport: transport,
		address:   address,
		config:    config,
		log:       config.Logger.With("conn", config.Name),
		wbuf:      make([]byte, config.BufferSize),
		rbuf:      make([]byte, config.BufferSize),
	}
}

func (c *Conn) Address() byte {
	return c.address
}

func (c *Conn) Name() string {
	return c.config.Name
}

// WriteSync sends reg followed by data as a single write frame.
func (c *Conn) WriteSync(ctx context.Context, reg byte, data []byte) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed {
		return fmt.Errorf("%w: %w", sm5714.ErrBusTransport, ErrClosed)
	}
	frame := c.writeBuffer(1 + len(data))
	frame[0] = reg
	copy(frame[1:], data)
	c.dump(ctx, "write", frame)
	err := c.transport.WriteToAddr(ctx, c.address, frame)
	if err != nil {
		return fmt.Errorf("%w: write to %#02x reg %#02x: %w", sm5714.ErrBusTransport, c.address, reg, err)
	}
	return nil
}

// ReadSync sets the register pointer to reg and reads len(data) bytes.
// data is left untouched unless the whole read succeeds.
func (c *Conn) ReadSync(ctx context.Context, reg byte, data []byte) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed {
		return fmt.Errorf("%w: %w", sm5714.ErrBusTransport, ErrClosed)
	}
	frame := c.writeBuffer(1)
	frame[0] = reg
	c.dump(ctx, "write", frame)
	err := c.transport.WriteToAddr(ctx, c.address, frame)
	if err != nil {
		return fmt.Errorf("%w: set pointer %#02x on %#02x: %w", sm5714.ErrBusTransport, reg, c.address, err)
	}
	buf := c.readBuffer(len(data))
	n, err := c.read(ctx, buf)
	if err != nil {
		return fmt.Errorf("%w: read %d bytes from %#02x reg %#02x: %w", sm5714.ErrBusTransport, len(data), c.address, reg, err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: read %d of %d bytes from %#02x reg %#02x", sm5714.ErrBusTransport, n, len(data), c.address, reg)
	}
	c.dump(ctx, "read", buf)
	copy(data, buf)
	return nil
}

// WriteWriteRead issues frame1, frame2 and a read of len(data) bytes back to
// back. delay is observed before the read phase. timeout bounds the whole
// sequence; pass NoTimeout for no deadline or UseDefault for the connection
// default. data is left untouched unless the whole sequence succeeds.
func (c *Conn) WriteWriteRead(ctx context.Context, frame1, frame2, data []byte, delay, timeout time.Duration) error {
	if timeout == UseDefault {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed {
		return fmt.Errorf("%w: %w", sm5714.ErrBusTransport, ErrClosed)
	}

	buf := c.readBuffer(len(data))
	var n int
	var err error
	if seq, ok := c.transport.(sm5714.Sequencer); ok {
		c.dump(ctx, "write", frame1)
		c.dump(ctx, "write", frame2)
		n, err = seq.Sequence(ctx, c.address, []sm5714.Transfer{
			{Write: frame1},
			{Write: frame2},
			{Read: buf, Delay: delay},
		})
	} else {
		n, err = c.writeWriteRead(ctx, frame1, frame2, buf, delay)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: sequence on %#02x: %w", sm5714.ErrBusTransport, c.address, err)
	}
	// Transports count every byte moved, both write frames included. A read
	// short by even one byte fails (see DESIGN.md, short-transfer count).
	expected := len(frame1) + len(frame2) + len(data)
	if n < expected {
		c.log.WarnContext(ctx, "short sequenced transfer", "returned", n, "expected", expected)
		return fmt.Errorf("%w: %d of %d bytes on %#02x", sm5714.ErrShortTransfer, n, expected, c.address)
	}
	c.dump(ctx, "read", buf)
	copy(data, buf)
	return nil
}

// writeWriteRead emulates a sequence on transports without native support.
// Adjacent writes with no restart between them are a single frame on the wire.
func (c *Conn) writeWriteRead(ctx context.Context, frame1, frame2, buf []byte, delay time.Duration) (int, error) {
	frame := c.writeBuffer(len(frame1) + len(frame2))
	copy(frame, frame1)
	copy(frame[len(frame1):], frame2)
	c.dump(ctx, "write", frame)
	err := c.transport.WriteToAddr(ctx, c.address, frame)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return len(frame), err
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return len(frame), ctx.Err()
		}
	}
	n, err := c.read(ctx, buf)
	return len(frame) + n, err
}

func (c *Conn) read(ctx context.Context, buf []byte) (int, error) {
	if cr, ok := c.transport.(sm5714.CountingReader); ok {
		return cr.ReadCountFromAddr(ctx, c.address, buf)
	}
	err := c.transport.ReadFromAddr(ctx, c.address, buf)
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Close releases the transport. Subsequent calls fail with ErrClosed.
func (c *Conn) Close(ctx context.Context) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.transport.Release(ctx)
	if err != nil {
		return fmt.Errorf("%w: release %#02x: %w", sm5714.ErrBusTransport, c.address, err)
	}
	return nil
}

// writeBuffer and readBuffer hand out the scratch buffers for small
// transfers and allocate for anything larger. Callers hold the guard.
func (c *Conn) writeBuffer(size int) []byte {
	if size <= len(c.wbuf) {
		clear(c.wbuf)
		return c.wbuf[:size]
	}
	return make([]byte, size)
}

func (c *Conn) readBuffer(size int) []byte {
	if size <= len(c.rbuf) {
		clear(c.rbuf)
		return c.rbuf[:size]
	}
	return make([]byte, size)
}

func (c *Conn) dump(ctx context.Context, op string, data []byte) {
	snsctx.Dump(ctx, c.log, "i2c "+op, data, "addr", fmt.Sprintf("%#02x", c.address))
}
