package sm5714

import "errors"

var (
	// ErrBusTransport is reported when the underlying transfer failed.
	ErrBusTransport = errors.New("bus transport error")
	// ErrShortTransfer is reported when fewer bytes moved than the protocol requires.
	ErrShortTransfer = errors.New("short transfer")
	// ErrConfigUnavailable is reported when a platform firmware method is missing or malformed.
	ErrConfigUnavailable = errors.New("platform configuration unavailable")
	// ErrInvalidSession is reported when a caller presents a stale battery tag.
	ErrInvalidSession = errors.New("invalid battery session")
)

var ErrBusBusy = errors.New("I2C engine is busy (command not completed)")
