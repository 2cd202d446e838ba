package main

import (
	"bufio"
	"unicode/utf8"

	"github.com/texelmux/texelmux/input"
)

// readKey reads one key's worth of bytes from r and decodes it into an
// input.KeyEvent, returning the raw bytes alongside so the caller can
// forward them verbatim when the key isn't consumed by the leader-key
// machine. Escape sequences are recognized for the arrow keys (plain
// and xterm's Ctrl-modified form); anything else starting with ESC is
// reported as a lone Escape named key, which means a standalone
// Escape keypress blocks until the next byte arrives, acceptable for
// a reference client, not for a production terminal front-end.
func readKey(r *bufio.Reader) ([]byte, input.KeyEvent, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, input.KeyEvent{}, err
	}

	switch {
	case b == 0x1b:
		return readEscapeSequence(r)
	case b == 0x00:
		return []byte{b}, input.KeyEvent{Named: "Space", Ctrl: true}, nil
	case b >= 1 && b <= 26:
		return []byte{b}, input.KeyEvent{Char: rune('a' + b - 1), Ctrl: true}, nil
	case b < 0x80:
		return []byte{b}, input.KeyEvent{Char: rune(b)}, nil
	default:
		return readUTF8Rune(r, b)
	}
}

func readEscapeSequence(r *bufio.Reader) ([]byte, input.KeyEvent, error) {
	raw := []byte{0x1b}

	next, err := r.ReadByte()
	if err != nil {
		return raw, input.KeyEvent{Named: "Escape"}, nil
	}
	raw = append(raw, next)
	if next != '[' {
		return raw, input.KeyEvent{Named: "Escape"}, nil
	}

	var seq []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			return raw, input.KeyEvent{Named: "Escape"}, nil
		}
		raw = append(raw, c)
		if c >= 'A' && c <= 'Z' {
			return raw, decodeCSIFinal(seq, c), nil
		}
		seq = append(seq, c)
		if len(seq) > 8 {
			return raw, input.KeyEvent{Named: "Escape"}, nil
		}
	}
}

func decodeCSIFinal(params []byte, final byte) input.KeyEvent {
	named := map[byte]string{'A': "Up", 'B': "Down", 'C': "Right", 'D': "Left"}[final]
	if named == "" {
		return input.KeyEvent{Named: "Escape"}
	}
	// xterm sends "1;5" as the modifier parameter block for Ctrl.
	ctrl := string(params) == "1;5"
	return input.KeyEvent{Named: named, Ctrl: ctrl}
}

func readUTF8Rune(r *bufio.Reader, first byte) ([]byte, input.KeyEvent, error) {
	size := utf8Size(first)
	raw := make([]byte, 1, size)
	raw[0] = first
	for len(raw) < size {
		c, err := r.ReadByte()
		if err != nil {
			break
		}
		raw = append(raw, c)
	}
	ch, _ := utf8.DecodeRune(raw)
	return raw, input.KeyEvent{Char: ch}, nil
}

func utf8Size(lead byte) int {
	switch {
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}
