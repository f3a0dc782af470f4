package bustest

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Registers is an in-memory device with 16-bit little-endian registers.
// It also serves the fuel gauge SRAM window: a write of
// [raddr, sub, 0, rdata] selects an SRAM word that the next read returns.
type Registers struct {
	mx      sync.Mutex
	Regs    map[byte]uint16
	SRAM    map[byte]uint16
	RAddr   byte
	RData   byte
	Latency time.Duration
	Writes  [][]byte
	// Fail makes writes starting with the given register fail.
	Fail map[byte]error
	// FailSRAM makes reads of the given SRAM sub-address fail.
	FailSRAM map[byte]error

	pointer byte
	sram    bool
}

func NewRegisters(raddr, rdata byte) *Registers {
	return &Registers{
		Regs:     map[byte]uint16{},
		SRAM:     map[byte]uint16{},
		RAddr:    raddr,
		RData:    rdata,
		Fail:     map[byte]error{},
		FailSRAM: map[byte]error{},
	}
}

func (r *Registers) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if len(buffer) == 0 {
		return fmt.Errorf("empty write")
	}
	if err := r.Fail[buffer[0]]; err != nil {
		return err
	}
	r.Writes = append(r.Writes, append([]byte(nil), buffer...))
	if len(buffer) == 4 && buffer[0] == r.RAddr && buffer[3] == r.RData {
		r.pointer = buffer[1]
		r.sram = true
		return nil
	}
	r.pointer = buffer[0]
	r.sram = false
	if len(buffer) >= 3 {
		r.Regs[buffer[0]] = binary.LittleEndian.Uint16(buffer[1:3])
	}
	return nil
}

func (r *Registers) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if r.Latency > 0 {
		time.Sleep(r.Latency)
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	var v uint16
	if r.sram {
		if err := r.FailSRAM[r.pointer]; err != nil {
			return err
		}
		v = r.SRAM[r.pointer]
	} else {
		v = r.Regs[r.pointer]
	}
	var raw [2]byte
	binary.LittleEndian.PutUint16(raw[:], v)
	copy(buffer, raw[:])
	return nil
}

func (r *Registers) Release(ctx context.Context) error {
	return nil
}

// WriteCount returns the number of writes carrying a payload, excluding
// pointer-only writes.
func (r *Registers) WriteCount() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	n := 0
	for _, w := range r.Writes {
		if len(w) >= 3 && !(len(w) == 4 && w[0] == r.RAddr && w[3] == r.RData) {
			n++
		}
	}
	return n
}
