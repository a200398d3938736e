package binlog

import (
	"io"
)

// reader decodes little-endian values from a fully read event body.
// The first short read sets err and every later call is a no-op, so
// decoders check r.err once at the end.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(b []byte) *reader {
	return &reader{buf: b}
}

func (r *reader) buffer() []byte {
	return r.buf[r.off:]
}

func (r *reader) ensure(n int) error {
	if r.err != nil {
		return r.err
	}
	if n < 0 || n > len(r.buffer()) {
		r.err = io.ErrUnexpectedEOF
	}
	return r.err
}

func (r *reader) skip(n int) error {
	if err := r.ensure(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *reader) more() bool {
	return r.err == nil && len(r.buffer()) > 0
}

// int ---

func (r *reader) int1() byte {
	if err := r.ensure(1); err != nil {
		return 0
	}
	v := r.buffer()[0]
	r.off++
	return v
}

func (r *reader) int2() uint16 {
	if err := r.ensure(2); err != nil {
		return 0
	}
	buf := r.buffer()
	v := uint16(buf[0]) | uint16(buf[1])<<8
	r.off += 2
	return v
}

func (r *reader) int4() uint32 {
	if err := r.ensure(4); err != nil {
		return 0
	}
	buf := r.buffer()
	v := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	r.off += 4
	return v
}

func (r *reader) int8() uint64 {
	if err := r.ensure(8); err != nil {
		return 0
	}
	buf := r.buffer()
	v := uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
		uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56
	r.off += 8
	return v
}

// bytes, strings ---

func (r *reader) bytesInternal(n int) []byte {
	if err := r.ensure(n); err != nil {
		return nil
	}
	v := r.buffer()[:n]
	r.off += n
	return v
}

func (r *reader) bytes(n int) []byte {
	return append([]byte(nil), r.bytesInternal(n)...)
}

func (r *reader) string(n int) string {
	return string(r.bytesInternal(n))
}

func (r *reader) stringEOF() string {
	if r.err != nil {
		return ""
	}
	return string(r.bytesInternal(len(r.buffer())))
}
