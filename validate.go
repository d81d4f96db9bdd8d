package mdstream

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrInvalidUTF8 reports invalid UTF-8 input.
	ErrInvalidUTF8 = errors.New("invalid utf-8 input")
	// ErrBinaryInput reports input that appears to be binary.
	ErrBinaryInput = errors.New("binary input detected")
)

const (
	// minBinarySample is the input size from which the control ratio counts.
	minBinarySample = 64
	maxControlPct   = 2
)

// ValidateInput returns an error if src is not valid UTF-8 or looks binary:
// it contains a NUL, or at least 2% of a sample of 64 bytes or more are
// control characters.
func ValidateInput(src []byte) error {
	var v validator
	if err := v.write(src); err != nil {
		return err
	}
	return v.close()
}

// validator applies the rules of ValidateInput to a stream. It fails as soon
// as a chunk proves the input bad and rechecks the control ratio at close.
type validator struct {
	bytes    int
	controls int
	carry    [utf8.UTFMax]byte
	carryLen int
}

func (v *validator) write(b []byte) error {
	for v.carryLen > 0 && len(b) > 0 {
		v.carry[v.carryLen] = b[0]
		v.carryLen++
		b = b[1:]
		if utf8.FullRune(v.carry[:v.carryLen]) {
			r, size := utf8.DecodeRune(v.carry[:v.carryLen])
			v.carryLen = 0
			if err := v.rune(r, size); err != nil {
				return err
			}
		}
	}
	for len(b) > 0 {
		if !utf8.FullRune(b) {
			v.carryLen = copy(v.carry[:], b)
			return nil
		}
		r, size := utf8.DecodeRune(b)
		if err := v.rune(r, size); err != nil {
			return err
		}
		b = b[size:]
	}
	return nil
}

func (v *validator) close() error {
	if v.carryLen > 0 {
		return ErrInvalidUTF8
	}
	if v.binary() {
		return ErrBinaryInput
	}
	return nil
}

func (v *validator) rune(r rune, size int) error {
	switch {
	case r == utf8.RuneError && size == 1:
		return ErrInvalidUTF8
	case r == 0:
		return ErrBinaryInput
	}
	v.bytes += size
	if isControlRune(r) {
		v.controls++
		if v.binary() {
			return ErrBinaryInput
		}
	}
	return nil
}

func (v *validator) binary() bool {
	return v.bytes >= minBinarySample && v.controls*100 >= v.bytes*maxControlPct
}

// isControlRune reports C0 controls other than tab, newline and carriage
// return, and DEL.
func isControlRune(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return r < 0x20 || r == 0x7F
}

// stripControl removes control bytes in place. Every control character is
// ASCII, so a multi-byte sequence split across chunks is never affected.
func stripControl(b []byte) []byte {
	out := b[:0]
	for _, c := range b {
		if c < 0x80 && isControlRune(rune(c)) {
			continue
		}
		out = append(out, c)
	}
	return out
}
