package chatroom

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func mustFrame(t *testing.T, body string) Frame {
	t.Helper()

	frame, err := NewFrame([]byte(body))
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return frame
}

func TestNewFrame(t *testing.T) {
	frame := mustFrame(t, "Hello, world!")

	if frame.Length() != 13 {
		t.Errorf("Length = %d, want 13", frame.Length())
	}

	if string(frame.Body()) != "Hello, world!" {
		t.Errorf("Body = %q, want %q", frame.Body(), "Hello, world!")
	}
}

func TestNewFrame_Empty(t *testing.T) {
	frame, err := NewFrame(nil)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	if frame.Length() != 0 {
		t.Errorf("Length = %d, want 0", frame.Length())
	}
}

func TestNewFrame_MaxBody(t *testing.T) {
	frame, err := NewFrame(bytes.Repeat([]byte("x"), MaxBodySize))
	if err != nil {
		t.Fatalf("NewFrame failed at max size: %v", err)
	}

	if frame.Length() != MaxBodySize {
		t.Errorf("Length = %d, want %d", frame.Length(), MaxBodySize)
	}
}

func TestNewFrame_BodyTooLarge(t *testing.T) {
	_, err := NewFrame(bytes.Repeat([]byte("x"), MaxBodySize+1))
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestNewFrame_CopiesBody(t *testing.T) {
	body := []byte("original")
	frame, err := NewFrame(body)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	copy(body, "mutated!")

	if string(frame.Body()) != "original" {
		t.Errorf("Body = %q, caller mutation leaked into frame", frame.Body())
	}
}

func TestFrame_Encode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"greeting", "Hello, world!", "  13Hello, world!"},
		{"empty", "", "   0"},
		{"single byte", "a", "   1a"},
		{"three digits", strings.Repeat("z", 100), " 100" + strings.Repeat("z", 100)},
		{"max", strings.Repeat("z", MaxBodySize), " 512" + strings.Repeat("z", MaxBodySize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustFrame(t, tt.body).Encode()
			if string(got) != tt.want {
				t.Errorf("Encode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    int
		wantErr bool
	}{
		{"  13", 13, false},
		{"   0", 0, false},
		{"0000", 0, false},
		{"   1", 1, false},
		{" 512", 512, false},
		{" 513", 0, true},
		{"9999", 0, true},
		{"  -1", 0, true},
		{"abcd", 0, true},
		{"    ", 0, true},
		{" 1 3", 0, true},
		{"12.0", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			var header [HeaderSize]byte
			copy(header[:], tt.header)

			n, err := DecodeHeader(header)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHeader) {
					t.Errorf("expected ErrInvalidHeader, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("DecodeHeader failed: %v", err)
			}
			if n != tt.want {
				t.Errorf("length = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestReadFrame_RoundTrip(t *testing.T) {
	sent := mustFrame(t, "Hello, world!")

	got, err := ReadFrame(bytes.NewReader(sent.Encode()))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if string(got.Body()) != string(sent.Body()) {
		t.Errorf("body = %q, want %q", got.Body(), sent.Body())
	}
}

func TestReadFrame_ArbitraryBytes(t *testing.T) {
	body := []byte("line one\nline two\x00  \ttrailing")
	sent, err := NewFrame(body)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	got, err := ReadFrame(bytes.NewReader(sent.Encode()))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	if !bytes.Equal(got.Body(), body) {
		t.Errorf("body = %q, want %q", got.Body(), body)
	}
}

func TestReadFrame_Sequence(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(mustFrame(t, "first").Encode())
	stream.Write(mustFrame(t, "second").Encode())

	for _, want := range []string{"first", "second"} {
		frame, err := ReadFrame(&stream)
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if string(frame.Body()) != want {
			t.Errorf("body = %q, want %q", frame.Body(), want)
		}
	}

	if _, err := ReadFrame(&stream); err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadFrame_EmptyStream(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReadFrame_TruncatedHeader(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("  1"))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadFrame_TruncatedBody(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("  10short"))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadFrame_CorruptHeader(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("XXXXwhatever"))
	if !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("expected ErrInvalidHeader, got %v", err)
	}
}
