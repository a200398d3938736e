package binlog

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Watcher subscribes to changes of a single file.
//
// Watch signals whenever name changes size or metadata, or comes into
// existence. Signals are coalesced: a receiver that is busy sees at most
// one pending signal. cancel removes the subscription; it is safe to call
// more than once.
type Watcher interface {
	Watch(name string) (signals <-chan struct{}, cancel func(), err error)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// FSNotifyWatcher watches files through kernel notifications.
// It watches the parent directory so that creation of a file that does
// not exist yet is reported too.
type FSNotifyWatcher struct {
	Log logrus.FieldLogger
}

func (w FSNotifyWatcher) Watch(name string) (<-chan struct{}, func(), error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	name = filepath.Clean(name)
	if err := fw.Add(filepath.Dir(name)); err != nil {
		_ = fw.Close()
		return nil, nil, err
	}
	log := w.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	ch := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == name {
					notify(ch)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				// a dropped kernel event may hide growth, so wake the reader anyway
				log.WithError(err).WithField("file", name).Warn("fsnotify error")
				notify(ch)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = fw.Close()
		})
	}
	return ch, cancel, nil
}

// PollWatcher watches files by calling Stat every Interval.
// Use it for file systems without change notifications, such as
// afero.MemMapFs or network mounts.
type PollWatcher struct {
	Fs       afero.Fs
	Interval time.Duration
}

const defaultPollInterval = 250 * time.Millisecond

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
	mode    os.FileMode
}

func (w PollWatcher) stat(name string) fileState {
	fi, err := w.Fs.Stat(name)
	if err != nil {
		return fileState{}
	}
	return fileState{true, fi.Size(), fi.ModTime(), fi.Mode()}
}

func (w PollWatcher) Watch(name string) (<-chan struct{}, func(), error) {
	interval := w.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ch := make(chan struct{}, 1)
	done := make(chan struct{})
	last := w.stat(name)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if cur := w.stat(name); cur != last {
					last = cur
					notify(ch)
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { close(done) })
	}
	return ch, cancel, nil
}
