package domain

import "errors"

var ErrUnknownStreamType = errors.New("unknown stream type")

// StreamType names one independently negotiated media channel between two
// peers. A pair of peers can hold up to one negotiation per stream type.
type StreamType string

const (
	StreamPrimary   StreamType = "primary"
	StreamSecondary StreamType = "secondary"
	StreamScreen    StreamType = "screen"
)

// StreamTypes lists all valid stream types in a stable order.
var StreamTypes = []StreamType{StreamPrimary, StreamSecondary, StreamScreen}

func ParseStreamType(s string) (StreamType, error) {
	switch StreamType(s) {
	case StreamPrimary, StreamSecondary, StreamScreen:
		return StreamType(s), nil
	}
	return "", ErrUnknownStreamType
}
