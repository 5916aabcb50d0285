package javaobj

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// reader wraps a buffered byte source with the big-endian primitive
// reads and the modified-UTF-8 string decode the stream format needs.
//
// Every byte consumed is also appended to history, since the
// underlying io.Reader is not assumed to support Seek: exception-frame
// capture (see Parser.Run) needs to slice an already-consumed window,
// which it does against history instead of tell/seek/read on the
// source.
type reader struct {
	rd               *bufio.Reader
	maxDataBlockSize int
	history          bytes.Buffer
}

func newReader(rd io.Reader) *reader {
	buf := bufio.NewReaderSize(rd, defaultBufferSize)
	return &reader{rd: buf, maxDataBlockSize: buf.Size()}
}

// pos returns the number of bytes consumed so far.
func (r *reader) pos() int64 { return int64(r.history.Len()) }

// window returns the bytes consumed between the two given positions.
func (r *reader) window(start, end int64) []byte {
	b := r.history.Bytes()
	if start < 0 {
		start = 0
	}
	if end > int64(len(b)) {
		end = int64(len(b))
	}
	out := make([]byte, end-start)
	copy(out, b[start:end])
	return out
}

const defaultBufferSize = 1024

func (r *reader) setMaxDataBlockSize(n int) {
	r.maxDataBlockSize = n
}

func (r *reader) readByte() (byte, error) {
	b, err := r.rd.ReadByte()
	if err != nil {
		return 0, errors.Wrap(err, "error reading byte")
	}
	r.history.WriteByte(b)
	return b, nil
}

// tryReadByte reads a byte, reporting io.EOF distinctly so the
// top-level loop can stop cleanly at end of stream.
func (r *reader) tryReadByte() (byte, error) {
	b, err := r.rd.ReadByte()
	if err != nil {
		return 0, err
	}
	r.history.WriteByte(b)
	return b, nil
}

func (r *reader) readFull(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("negative read length %d", n)
	}
	if n > r.maxDataBlockSize {
		return nil, errors.Errorf(
			"block data exceeds size of reader buffer (%d > %d); "+
				"use SetMaxDataBlockSize to raise the limit", n, r.maxDataBlockSize)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r.rd, data); err != nil {
		return nil, errors.Wrap(err, "error reading bytes")
	}
	r.history.Write(data)
	return data, nil
}

func (r *reader) readPrimitive(v interface{}) error {
	n := binary.Size(v)
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.rd, buf); err != nil {
		return errors.Wrap(err, "error reading primitive")
	}
	r.history.Write(buf)
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian, v); err != nil {
		return errors.Wrap(err, "error decoding primitive")
	}
	return nil
}

func (r *reader) readInt8() (int8, error) {
	var x int8
	err := r.readPrimitive(&x)
	return x, err
}

func (r *reader) readUint8() (uint8, error) {
	var x uint8
	err := r.readPrimitive(&x)
	return x, err
}

func (r *reader) readBool() (bool, error) {
	x, err := r.readInt8()
	return x != 0, err
}

func (r *reader) readInt16() (int16, error) {
	var x int16
	err := r.readPrimitive(&x)
	return x, err
}

func (r *reader) readUint16() (uint16, error) {
	var x uint16
	err := r.readPrimitive(&x)
	return x, err
}

func (r *reader) readChar() (string, error) {
	code, err := r.readUint16()
	if err != nil {
		return "", err
	}
	return string(rune(code)), nil
}

func (r *reader) readInt32() (int32, error) {
	var x int32
	err := r.readPrimitive(&x)
	return x, err
}

func (r *reader) readUint32() (uint32, error) {
	var x uint32
	err := r.readPrimitive(&x)
	return x, err
}

func (r *reader) readInt64() (int64, error) {
	var x int64
	err := r.readPrimitive(&x)
	return x, err
}

func (r *reader) readFloat32() (float32, error) {
	var x float32
	err := r.readPrimitive(&x)
	return x, err
}

func (r *reader) readFloat64() (float64, error) {
	var x float64
	err := r.readPrimitive(&x)
	return x, err
}

// readHandle reads a 32-bit signed handle reference, as emitted after
// a TC_REFERENCE tag.
func (r *reader) readHandle() (uint32, error) {
	v, err := r.readInt32()
	return uint32(v), err
}

// readUTF reads a standard (16-bit length prefixed) modified-UTF-8 string.
func (r *reader) readUTF() (string, error) {
	n, err := r.readUint16()
	if err != nil {
		return "", errors.Wrap(err, "error reading utf length")
	}
	data, err := r.readFull(int(n))
	if err != nil {
		return "", errors.Wrap(err, "error reading utf data")
	}
	return decodeModifiedUTF8(data)
}

// readLongUTF reads a 64-bit length prefixed modified-UTF-8 string.
// Returns (text, small, err) where small indicates the length would
// have fit in 16 bits.
func (r *reader) readLongUTF() (text string, small bool, err error) {
	n, err := r.readInt64()
	if err != nil {
		return "", false, errors.Wrap(err, "error reading long utf length")
	}
	if n < 0 || n > 2147483647 {
		return "", false, newErr(ErrInvalidStringLength, "invalid string length %d", n)
	}
	if n < 65536 {
		small = true
	}
	data, err := r.readFull(int(n))
	if err != nil {
		return "", false, errors.Wrap(err, "error reading long utf data")
	}
	text, err = decodeModifiedUTF8(data)
	return text, small, err
}

// decodeModifiedUTF8 decodes Java's modified UTF-8 variant: NUL is
// encoded as the two bytes 0xC0 0x80, and characters outside the BMP
// are written as a surrogate pair of three-byte sequences rather than
// as a single four-byte sequence.
func decodeModifiedUTF8(data []byte) (string, error) {
	var out []rune
	i := 0
	for i < len(data) {
		b0 := data[i]
		switch {
		case b0&0x80 == 0:
			out = append(out, rune(b0))
			i++
		case b0&0xE0 == 0xC0:
			if i+1 >= len(data) {
				return "", errors.New("truncated 2-byte modified-utf8 sequence")
			}
			b1 := data[i+1]
			if b1&0xC0 != 0x80 {
				return "", errors.New("invalid 2-byte modified-utf8 continuation")
			}
			r := (rune(b0&0x1F) << 6) | rune(b1&0x3F)
			out = append(out, r)
			i += 2
		case b0&0xF0 == 0xE0:
			if i+2 >= len(data) {
				return "", errors.New("truncated 3-byte modified-utf8 sequence")
			}
			b1, b2 := data[i+1], data[i+2]
			if b1&0xC0 != 0x80 || b2&0xC0 != 0x80 {
				return "", errors.New("invalid 3-byte modified-utf8 continuation")
			}
			r := (rune(b0&0x0F) << 12) | (rune(b1&0x3F) << 6) | rune(b2&0x3F)
			out = append(out, r)
			i += 3
		default:
			return "", errors.Errorf("invalid modified-utf8 lead byte 0x%x", b0)
		}
	}

	// Recombine any surrogate pairs emitted as two encoded code units.
	decoded := make([]rune, 0, len(out))
	for i := 0; i < len(out); i++ {
		r1 := out[i]
		if utf16.IsSurrogate(r1) && i+1 < len(out) {
			r2 := out[i+1]
			if combined := utf16.DecodeRune(r1, r2); combined != '�' {
				decoded = append(decoded, combined)
				i++
				continue
			}
		}
		decoded = append(decoded, r1)
	}

	return string(decoded), nil
}
