package binlog

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// noThreshold marks a session that publishes every query.
const noThreshold = -1

// session owns one open binlog file: its handle, its cursor and the watch
// on the file. A session never reopens its file; the next file gets a new
// session.
type session struct {
	path      string
	file      afero.File
	cur       *cursor
	threshold int64 // queries below this offset are not published
	log       logrus.FieldLogger

	cancelWatch func()
	stopOnce    sync.Once
	stopErr     error
}

// openSession starts following path. With fastForward set, queries that
// are already in the file at this instant are decoded but not published.
func openSession(fs afero.Fs, w Watcher, path string, fastForward bool, log logrus.FieldLogger) (*session, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return nil, ioError("stat", path, err)
	}
	threshold := int64(noThreshold)
	if fastForward {
		threshold = fi.Size()
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	signals, cancel, err := w.Watch(path)
	if err != nil {
		_ = f.Close()
		return nil, ioError("watch", path, err)
	}
	s := &session{
		path:        path,
		file:        f,
		cur:         newCursor(f, path, fi.Size(), signals),
		threshold:   threshold,
		log:         log.WithField("file", path),
		cancelWatch: cancel,
	}
	if fastForward {
		s.log.WithField("threshold", threshold).Info("binlog session started, fast-forwarding")
	} else {
		s.log.Info("binlog session started")
	}
	return s, nil
}

// fastForwarding tells whether the cursor is still inside the history
// that existed when the session started.
func (s *session) fastForwarding() bool {
	return s.threshold != noThreshold && s.cur.Offset() < s.threshold
}

// stop removes the watch and closes the file. Only the first call does
// any work.
func (s *session) stop() error {
	s.stopOnce.Do(func() {
		s.cancelWatch()
		if err := s.file.Close(); err != nil {
			s.stopErr = ioError("close", s.path, err)
		}
		s.log.WithField("offset", s.cur.Offset()).Debug("binlog session stopped")
	})
	return s.stopErr
}
