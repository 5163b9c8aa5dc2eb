package chatroom

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Wire format constants. Every frame is a 4-byte ASCII decimal length
// header followed by the body it describes.
const (
	// HeaderSize is the fixed size of the length header in bytes.
	HeaderSize = 4
	// MaxBodySize is the maximum size of a frame body in bytes.
	MaxBodySize = 512
	// MaxFrameSize is the maximum size of an encoded frame in bytes.
	MaxFrameSize = HeaderSize + MaxBodySize
)

// Errors returned by frame construction and decoding.
var (
	// ErrBodyTooLarge is returned when a body exceeds MaxBodySize.
	ErrBodyTooLarge = errors.New("frame body too large")
	// ErrInvalidHeader is returned when a length header is not a decimal
	// number between 0 and MaxBodySize.
	ErrInvalidHeader = errors.New("invalid frame header")
)

// Frame is a single immutable message on the wire. The zero value is a
// valid empty frame.
type Frame struct {
	body []byte
}

// NewFrame creates a frame from the given body. The body is copied, so
// the caller may reuse its buffer. Returns ErrBodyTooLarge if the body
// exceeds MaxBodySize; bodies are otherwise arbitrary bytes.
func NewFrame(body []byte) (Frame, error) {
	if len(body) > MaxBodySize {
		return Frame{}, errors.Wrapf(ErrBodyTooLarge, "%d bytes", len(body))
	}
	b := make([]byte, len(body))
	copy(b, body)
	return Frame{body: b}, nil
}

// Length returns the length of the frame body in bytes.
func (f Frame) Length() int {
	return len(f.body)
}

// Body returns the raw frame body.
func (f Frame) Body() []byte {
	return f.body
}

// Encode renders the frame for transmission: the body length as a
// right-justified space-padded 4-byte decimal, then the body.
func (f Frame) Encode() []byte {
	buf := make([]byte, 0, HeaderSize+len(f.body))
	buf = append(buf, fmt.Sprintf("%*d", HeaderSize, len(f.body))...)
	buf = append(buf, f.body...)
	return buf
}

// DecodeHeader parses a length header. It accepts leading spaces and a
// decimal number; anything else, a negative length, or a length above
// MaxBodySize returns ErrInvalidHeader.
func DecodeHeader(header [HeaderSize]byte) (int, error) {
	s := strings.TrimLeft(string(header[:]), " ")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidHeader, "%q", header)
	}
	if n < 0 || n > MaxBodySize {
		return 0, errors.Wrapf(ErrInvalidHeader, "length %d out of range", n)
	}
	return n, nil
}

// ReadFrame reads one complete frame from the reader: a full header,
// then exactly the body it describes. A reader positioned at a frame
// boundary with no more data returns io.EOF untouched; a header or body
// cut short returns io.ErrUnexpectedEOF. This reassembles frames from a
// TCP stream regardless of how the bytes were segmented.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	n, err := DecodeHeader(header)
	if err != nil {
		return Frame{}, err
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, errors.Wrap(err, "read frame body")
	}

	return Frame{body: body}, nil
}
