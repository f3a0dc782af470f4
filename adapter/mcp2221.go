// Package adapter contains USB and board I2C bridges usable as sm5714 buses.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/sm5714"
	"github.com/mklimuk/sm5714/snsctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

// MCP2221 HID commands.
const (
	cmdStatus          = 0x10
	cmdGetI2CData      = 0x40
	cmdGetGPIO         = 0x51
	cmdI2CWrite        = 0x90
	cmdI2CRead         = 0x91
	cmdI2CWriteNoStop  = 0x92
	cmdI2CReadRepStart = 0x93
)

// Payload carried by one 64-byte report after the 4-byte header.
const (
	maxReadChunk  = 60
	maxWriteChunk = 60
)

var (
	ErrCommandFailed = errors.New("command failed")
	ErrNotFound      = errors.New("MCP2221 device not found")
)

var (
	_ sm5714.I2CBus         = &MCP2221{}
	_ sm5714.CountingReader = &MCP2221{}
	_ sm5714.Sequencer      = &MCP2221{}
)

// hidDevice is the part of *hid.Device the bridge uses.
type hidDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

type opener func(id ...int) (hidDevice, error)

type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	open         opener
	log          *slog.Logger
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

// MCP2221GPIOValues are the GP pin levels; a pin not configured for GPIO
// reads as 0xEE.
type MCP2221GPIOValues struct {
	GPIO0 byte `yaml:"GPIO0"`
	GPIO1 byte `yaml:"GPIO1"`
	GPIO2 byte `yaml:"GPIO2"`
	GPIO3 byte `yaml:"GPIO3"`
}

func NewMCP2221() *MCP2221 {
	return &MCP2221{
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: 50 * time.Millisecond,
		open:         openHID,
		log:          slog.Default(),
	}
}

func openHID(id ...int) (hidDevice, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) > 1 && len(id) == 0 {
		return nil, fmt.Errorf("ambiguous device identification")
	}
	if len(devs) == 0 {
		return nil, ErrNotFound
	}
	idx := 0
	if len(id) > 0 {
		idx = id[0]
		if idx < 0 || idx >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", idx)
		}
	}
	dev, err := devs[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.write(ctx, cmdI2CWrite, address, buffer)
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	n, err := d.ReadCountFromAddr(ctx, address, buffer)
	if err != nil {
		return err
	}
	if n != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), n)
	}
	return nil
}

// ReadCountFromAddr reads into buffer and reports how many bytes the bridge
// actually returned.
func (d *MCP2221) ReadCountFromAddr(ctx context.Context, address byte, buffer []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.read(ctx, cmdI2CRead, address, buffer)
}

// Sequence sends writes without a stop condition and reads with a repeated
// start. A delayed read ends the preceding write with a stop instead.
func (d *MCP2221) Sequence(ctx context.Context, address byte, transfers []sm5714.Transfer) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	var pending []byte
	total := 0
	for i, t := range transfers {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		pending = append(pending, t.Write...)
		if len(t.Read) == 0 && i < len(transfers)-1 {
			continue
		}
		readCmd := byte(cmdI2CReadRepStart)
		if len(pending) > 0 {
			writeCmd := byte(cmdI2CWriteNoStop)
			if t.Delay > 0 || len(t.Read) == 0 {
				writeCmd = cmdI2CWrite
				readCmd = cmdI2CRead
			}
			if err := d.write(ctx, writeCmd, address, pending); err != nil {
				return total, err
			}
			total += len(pending)
			pending = nil
		} else {
			readCmd = cmdI2CRead
		}
		if len(t.Read) == 0 {
			continue
		}
		if t.Delay > 0 {
			timer := time.NewTimer(t.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return total, ctx.Err()
			}
		}
		n, err := d.read(ctx, readCmd, address, t.Read)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (d *MCP2221) write(ctx context.Context, cmd byte, address byte, buffer []byte) error {
	if len(buffer) > maxWriteChunk {
		return fmt.Errorf("write of %d bytes exceeds adapter limit of %d", len(buffer), maxWriteChunk)
	}
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx, true)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		d.log.DebugContext(ctx, "adapter busy")
		return sm5714.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) read(ctx context.Context, cmd byte, address byte, buffer []byte) (int, error) {
	if len(buffer) > maxReadChunk {
		return 0, fmt.Errorf("read of %d bytes exceeds adapter limit of %d", len(buffer), maxReadChunk)
	}
	d.resetBuffers()
	d.request[0] = cmd
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		return 0, sm5714.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetI2CData
	err = d.send(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 {
		return 0, fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	size := int(d.response[3])
	if size == 127 {
		return 0, fmt.Errorf("invalid data size byte: %w", ErrCommandFailed)
	}
	return copy(buffer, d.response[4:4+min(size, len(buffer))]), nil
}

func (d *MCP2221) ReadGPIO(ctx context.Context, id ...int) (MCP2221GPIOValues, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdGetGPIO
	var res MCP2221GPIOValues
	err := d.send(ctx, true, id...)
	if err != nil {
		return res, fmt.Errorf("read GPIO values command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return res, ErrCommandFailed
	}
	res.GPIO0 = d.response[2]
	res.GPIO1 = d.response[4]
	res.GPIO2 = d.response[6]
	res.GPIO3 = d.response[8]
	return res, nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9-10: requested I2C transfer length (LE)
		11-12: already transferred number of bytes (LE)
		13: internal I2C data buffer counter
		14: current I2C communication speed divider value
		15: current I2C timeout value
		16-17: I2C address being used
		25: read pending
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

// Release cancels any transfer the bridge still holds.
func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	_, err := d.releaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.releaseBus(ctx)
}

func (d *MCP2221) releaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = 0x10
	err := d.send(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context, response bool, id ...int) error {
	dev, err := d.open(id...)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			d.log.WarnContext(ctx, "could not close adapter", "error", err)
		}
	}()
	snsctx.Dump(ctx, d.log, "sending message to adapter", d.request)
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short write: %d", n)
	}
	if !response {
		return nil
	}
	timer := time.NewTimer(d.responseWait)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short read: %d", n)
	}
	snsctx.Dump(ctx, d.log, "read message from adapter", d.response)
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
