package binlog

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/spf13/afero"
)

// cursor serves reads at a logical offset of a file that another process
// appends to. A read that would cross the known end of file waits for a
// growth signal; it never times out.
//
// Only one request may be outstanding. The decoder calls request and skip
// from a single goroutine, which keeps offset bookkeeping consistent.
type cursor struct {
	file    afero.File
	path    string
	signals <-chan struct{}

	offset  atomic.Int64
	size    int64 // known file size, never decreases
	pending bool
}

func newCursor(file afero.File, path string, size int64, signals <-chan struct{}) *cursor {
	return &cursor{
		file:    file,
		path:    path,
		size:    size,
		signals: signals,
	}
}

func (c *cursor) Offset() int64 {
	return c.offset.Load()
}

// request returns the next n bytes and advances the offset past them.
func (c *cursor) request(ctx context.Context, n int) ([]byte, error) {
	off, err := c.await(ctx, int64(n))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if n > 0 {
		m, err := c.file.ReadAt(buf, off)
		if m < n {
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, ioError("read", c.path, err)
		}
	}
	c.offset.Store(off + int64(n))
	return buf, nil
}

// skip advances the offset by n without reading. It still waits until
// the file is large enough, so the offset never passes the known size.
func (c *cursor) skip(ctx context.Context, n int64) error {
	off, err := c.await(ctx, n)
	if err != nil {
		return err
	}
	c.offset.Store(off + n)
	return nil
}

// await blocks until n bytes past the current offset are known to exist
// and returns the current offset.
func (c *cursor) await(ctx context.Context, n int64) (int64, error) {
	if c.pending {
		panic("binlog: cursor request already outstanding")
	}
	c.pending = true
	defer func() { c.pending = false }()

	off := c.Offset()
	for off+n > c.size {
		if err := c.refresh(); err != nil {
			return 0, err
		}
		if off+n <= c.size {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-c.signals:
		}
	}
	return off, nil
}

func (c *cursor) refresh() error {
	fi, err := c.file.Stat()
	if err != nil {
		return ioError("stat", c.path, err)
	}
	if fi.Size() > c.size {
		c.size = fi.Size()
	}
	return nil
}
