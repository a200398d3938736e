package binlog

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

type state uint8

const (
	expectMagic state = iota
	expectFormatDescription
	expectEvent
)

// decoder runs the event state machine over one session.
type decoder struct {
	s     *session
	state state
	carry AutoIncrement
	pub   Publisher
	log   logrus.FieldLogger
}

func newDecoder(s *session, pub Publisher) *decoder {
	return &decoder{
		s:     s,
		state: expectMagic,
		pub:   pub,
		log:   s.log,
	}
}

// run decodes events until the log rotates, a fatal error occurs or ctx
// is done. On rotation the session is already stopped and the path of the
// next binlog file is returned.
func (d *decoder) run(ctx context.Context) (next string, err error) {
	for next == "" && err == nil {
		next, err = d.step(ctx)
	}
	return next, err
}

func (d *decoder) step(ctx context.Context) (string, error) {
	switch d.state {
	case expectMagic:
		return "", d.readMagic(ctx)
	case expectFormatDescription:
		return "", d.readFormatDescription(ctx)
	default:
		return d.readEvent(ctx)
	}
}

func (d *decoder) readMagic(ctx context.Context) error {
	b, err := d.s.cur.request(ctx, len(fileHeader))
	if err != nil {
		return err
	}
	if !bytes.Equal(b, fileHeader) {
		return formatErrorf(d.s.path, 0, "invalid fileheader % x", b)
	}
	d.state = expectFormatDescription
	return nil
}

func (d *decoder) readFormatDescription(ctx context.Context) error {
	h, err := d.readHeader(ctx)
	if err != nil {
		return err
	}
	if h.EventType != FORMAT_DESCRIPTION_EVENT {
		return formatErrorf(d.s.path, int64(len(fileHeader)), "unsupported binlog version: first event is %s", h.EventType)
	}
	if err := d.s.cur.skip(ctx, h.bodySize()); err != nil {
		return err
	}
	d.state = expectEvent
	d.pub.Publish(LogStarted{Timestamp: h.time(), File: d.s.path})
	return nil
}

func (d *decoder) readHeader(ctx context.Context) (EventHeader, error) {
	off := d.s.cur.Offset()
	b, err := d.s.cur.request(ctx, eventHeaderSize)
	if err != nil {
		return EventHeader{}, err
	}
	var h EventHeader
	if err := h.decode(newReader(b)); err != nil {
		return h, formatErrorf(d.s.path, off, "event header: %v", err)
	}
	if h.EventSize < eventHeaderSize {
		return h, formatErrorf(d.s.path, off, "%s event size %d is smaller than its header", h.EventType, h.EventSize)
	}
	return h, nil
}

func (d *decoder) readBody(ctx context.Context, h EventHeader) (*reader, error) {
	b, err := d.s.cur.request(ctx, int(h.bodySize()))
	if err != nil {
		return nil, err
	}
	return newReader(b), nil
}

func (d *decoder) readEvent(ctx context.Context) (string, error) {
	off := d.s.cur.Offset()
	h, err := d.readHeader(ctx)
	if err != nil {
		return "", err
	}
	log := d.log.WithFields(logrus.Fields{"offset": off, "event": h.EventType})
	log.Debug("binlog event")

	switch h.EventType {
	case QUERY_EVENT:
		if d.s.fastForwarding() {
			// the carry survives into the first query past the threshold
			return "", d.s.cur.skip(ctx, h.bodySize())
		}
		r, err := d.readBody(ctx, h)
		if err != nil {
			return "", err
		}
		var e QueryEvent
		if err := e.decode(r); err != nil {
			return "", formatErrorf(d.s.path, off, "query event: %v", err)
		}
		q := Query{Timestamp: h.time(), Database: e.Schema, Text: e.Query}
		if d.carry.isSet() {
			carry := d.carry
			q.AutoIncrement = &carry
		}
		d.carry = AutoIncrement{}
		d.pub.Publish(q)
	case STOP_EVENT:
		if err := d.s.cur.skip(ctx, h.bodySize()); err != nil {
			return "", err
		}
		d.pub.Publish(ServerStopped{Timestamp: h.time()})
	case ROTATE_EVENT:
		r, err := d.readBody(ctx, h)
		if err != nil {
			return "", err
		}
		var e RotateEvent
		if err := e.decode(r); err != nil {
			return "", formatErrorf(d.s.path, off, "rotate event: %v", err)
		}
		next := e.NextBinlog
		if !filepath.IsAbs(next) {
			next = filepath.Join(filepath.Dir(d.s.path), next)
		}
		if err := d.s.stop(); err != nil {
			log.WithError(err).Warn("closing rotated binlog")
		}
		d.pub.Publish(Rotated{NextFile: next})
		return next, nil
	case INTVAR_EVENT:
		if h.bodySize() < intVarEventSize {
			return "", formatErrorf(d.s.path, off, "intvar event size %d is too small", h.EventSize)
		}
		b, err := d.s.cur.request(ctx, intVarEventSize)
		if err != nil {
			return "", err
		}
		if err := d.s.cur.skip(ctx, h.bodySize()-intVarEventSize); err != nil {
			return "", err
		}
		var e IntVarEvent
		if err := e.decode(newReader(b)); err != nil {
			return "", formatErrorf(d.s.path, off, "intvar event: %v", err)
		}
		switch e.Type {
		case LAST_INSERT_ID_EVENT:
			v := e.Value
			d.carry.LastInsertID = &v
		case INSERT_ID_EVENT:
			v := e.Value
			d.carry.AutoIncrement = &v
		}
	default:
		return "", d.s.cur.skip(ctx, h.bodySize())
	}
	return "", nil
}
