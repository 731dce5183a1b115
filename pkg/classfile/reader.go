package classfile

import "encoding/binary"

// reader is a big-endian cursor over class data. The first out-of-range
// read records an error; every later read returns zero values, so callers
// check err once per structure instead of after every field.
type reader struct {
	data []byte
	pos  int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) fail(n int) {
	if r.err == nil {
		r.err = parseErr(r.pos, ErrTruncated, "need %d bytes, have %d", n, len(r.data)-r.pos)
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.pos {
		r.fail(n)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u1() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u2() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u4() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) skip(n int) {
	r.take(n)
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}
