// Package register reads and writes 16-bit little-endian device registers.
package register

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Conn is the bus endpoint a Map operates on. *bus.Conn satisfies it.
type Conn interface {
	ReadSync(ctx context.Context, reg byte, data []byte) error
	WriteSync(ctx context.Context, reg byte, data []byte) error
}

type Map struct {
	conn Conn
}

func New(conn Conn) *Map {
	return &Map{conn: conn}
}

func (m *Map) Read(ctx context.Context, addr byte) (uint16, error) {
	var raw [2]byte
	err := m.conn.ReadSync(ctx, addr, raw[:])
	if err != nil {
		return 0, fmt.Errorf("register: read %#02x: %w", addr, err)
	}
	return binary.LittleEndian.Uint16(raw[:]), nil
}

func (m *Map) Write(ctx context.Context, addr byte, value uint16) error {
	var raw [2]byte
	binary.LittleEndian.PutUint16(raw[:], value)
	err := m.conn.WriteSync(ctx, addr, raw[:])
	if err != nil {
		return fmt.Errorf("register: write %#02x: %w", addr, err)
	}
	return nil
}

// Update replaces the bits selected by mask with the matching bits of value.
// Nothing is written when the register already holds the result.
func (m *Map) Update(ctx context.Context, addr byte, mask, value uint16) error {
	current, err := m.Read(ctx, addr)
	if err != nil {
		return err
	}
	next := Merge(current, mask, value)
	if next == current {
		return nil
	}
	return m.Write(ctx, addr, next)
}

// Merge returns current with the masked bits taken from value.
func Merge(current, mask, value uint16) uint16 {
	return (current &^ mask) | (value & mask)
}
