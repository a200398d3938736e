package binlog

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// IndexResolver finds the binlog file a Tailer starts from.
type IndexResolver interface {
	Resolve(index string) (string, error)
}

// FileIndex resolves a mysqld index file such as binlog.index: a newline
// separated list of binlog files, oldest first. Relative entries are
// relative to the directory of the index file.
type FileIndex struct {
	Fs afero.Fs
}

// Resolve returns the absolute path of the last non-empty entry.
func (x FileIndex) Resolve(index string) (string, error) {
	fs := x.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	f, err := fs.Open(index)
	if err != nil {
		return "", ioError("open", index, err)
	}
	defer f.Close()

	var last string
	s := bufio.NewScanner(f)
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			last = line
		}
	}
	if err := s.Err(); err != nil {
		return "", ioError("read", index, err)
	}
	if last == "" {
		return "", errors.Wrap(ErrEmptyIndex, index)
	}
	if !filepath.IsAbs(last) {
		last = filepath.Join(filepath.Dir(index), last)
	}
	abs, err := filepath.Abs(last)
	if err != nil {
		return "", errors.Wrapf(err, "binlog: resolving %s", last)
	}
	return abs, nil
}
