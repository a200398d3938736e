package binlog

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Options configure a Tailer. Zero values select the defaults.
type Options struct {
	// Fs is the file system the binlog and index files live in.
	// Defaults to the operating system's.
	Fs afero.Fs

	// Watcher reports file growth and creation. Defaults to an
	// FSNotifyWatcher for the OS file system and a PollWatcher otherwise.
	Watcher Watcher

	// Resolver finds the first binlog file. Defaults to FileIndex.
	Resolver IndexResolver

	Logger logrus.FieldLogger
}

// Tailer follows the binlog files listed in an index and publishes what
// they record. It starts at the newest file and skips the queries that
// were logged before Run was called.
type Tailer struct {
	index string
	fs    afero.Fs
	w     Watcher
	res   IndexResolver
	pub   Publisher
	log   logrus.FieldLogger

	mu   sync.Mutex
	sess *session
}

func New(index string, pub Publisher, opts Options) *Tailer {
	t := &Tailer{
		index: index,
		fs:    opts.Fs,
		w:     opts.Watcher,
		res:   opts.Resolver,
		pub:   pub,
		log:   opts.Logger,
	}
	if t.log == nil {
		t.log = logrus.StandardLogger()
	}
	if t.fs == nil {
		t.fs = afero.NewOsFs()
	}
	if t.w == nil {
		if _, ok := t.fs.(*afero.OsFs); ok {
			t.w = FSNotifyWatcher{Log: t.log}
		} else {
			t.w = PollWatcher{Fs: t.fs}
		}
	}
	if t.res == nil {
		t.res = FileIndex{Fs: t.fs}
	}
	return t
}

// Position returns the binlog file being read and the offset of the next
// byte to decode. It is empty before the first session starts.
func (t *Tailer) Position() (file string, offset int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return "", 0
	}
	return t.sess.path, t.sess.cur.Offset()
}

// Run tails until ctx is done or a fatal error occurs. A fatal error is
// published as an Error notification and returned; cancellation is only
// returned.
func (t *Tailer) Run(ctx context.Context) error {
	err := t.run(ctx)
	if err != nil && ctx.Err() == nil {
		t.log.WithError(err).Error("binlog tailing stopped")
		t.pub.Publish(Error{Cause: err})
	}
	return err
}

func (t *Tailer) run(ctx context.Context) error {
	file, err := t.res.Resolve(t.index)
	if err != nil {
		return err
	}
	fastForward := true
	for {
		s, err := openSession(t.fs, t.w, file, fastForward, t.log)
		if err != nil {
			return err
		}
		t.setSession(s)
		next, err := newDecoder(s, t.pub).run(ctx)
		if err != nil {
			_ = s.stop()
			return err
		}
		t.log.WithFields(logrus.Fields{"file": file, "next": next}).Info("binlog rotated")
		if err := t.awaitFile(ctx, next); err != nil {
			return err
		}
		file, fastForward = next, false
	}
}

func (t *Tailer) setSession(s *session) {
	t.mu.Lock()
	t.sess = s
	t.mu.Unlock()
}

// awaitFile blocks until name exists. It never times out.
func (t *Tailer) awaitFile(ctx context.Context, name string) error {
	exists := func() (bool, error) {
		ok, err := afero.Exists(t.fs, name)
		if err != nil {
			return false, ioError("stat", name, err)
		}
		return ok, nil
	}
	if ok, err := exists(); ok || err != nil {
		return err
	}

	signals, cancel, err := t.w.Watch(name)
	if err != nil {
		return ioError("watch", name, err)
	}
	defer cancel()
	t.log.WithField("file", name).Info("waiting for next binlog file")
	for {
		// checked again after Watch so a file created in between is not missed
		if ok, err := exists(); ok || err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-signals:
		}
	}
}
