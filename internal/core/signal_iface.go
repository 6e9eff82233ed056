package core

// Frame is a raw encoded signaling message.
type Frame []byte

// SignalConnection abstracts a relay member's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
