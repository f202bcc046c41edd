// Package hexinput decodes the boot console's hex image line.
package hexinput

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nvandessel/glitchsim/internal/constants"
)

// ErrNoInput is returned when the reader is exhausted before any line.
var ErrNoInput = errors.New("no input")

// Decode greedily decodes hex digit pairs from the start of line.
// Decoding stops at the first position that is not a pair of hex digits, or
// once constants.MinImageSize bytes have been produced.
func Decode(line string) []byte {
	return DecodeN(line, constants.MinImageSize)
}

// DecodeN is Decode with an explicit buffer capacity.
func DecodeN(line string, capacity int) []byte {
	out := make([]byte, 0, min(capacity, len(line)/2))
	for i := 0; i+1 < len(line) && len(out) < capacity; i += 2 {
		hi, ok := nibble(line[i])
		if !ok {
			break
		}
		lo, ok := nibble(line[i+1])
		if !ok {
			break
		}
		out = append(out, hi<<4|lo)
	}
	return out
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// ReadLine reads one line from r, keeping at most constants.MaxInputLineLen
// characters. The trailing newline is dropped.
func ReadLine(r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, constants.MaxInputLineLen)
	var sb strings.Builder
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				break
			}
			if errors.Is(err, io.EOF) {
				return "", ErrNoInput
			}
			return "", fmt.Errorf("reading input line: %w", err)
		}
		if room := constants.MaxInputLineLen - sb.Len(); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			sb.Write(chunk)
		}
		if !isPrefix {
			break
		}
	}
	return sb.String(), nil
}

// Read reads one line from r and decodes it.
func Read(r io.Reader) ([]byte, error) {
	line, err := ReadLine(r)
	if err != nil {
		return nil, err
	}
	return Decode(line), nil
}
