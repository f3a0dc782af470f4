package sm5714

import (
	"context"
	"time"
)

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// CountingReader is implemented by transports able to report how many bytes
// a read actually moved. Transports without it are assumed to fill the
// whole buffer or fail.
type CountingReader interface {
	ReadCountFromAddr(ctx context.Context, address byte, buffer []byte) (int, error)
}

// Transfer is one segment of a sequenced transaction. A segment either writes
// or reads; Delay is observed before the segment starts.
type Transfer struct {
	Write []byte
	Read  []byte
	Delay time.Duration
}

// Sequencer issues chained transfers to one address with no stop condition
// between them and returns the total number of bytes moved (written + read).
type Sequencer interface {
	Sequence(ctx context.Context, address byte, transfers []Transfer) (int, error)
}
