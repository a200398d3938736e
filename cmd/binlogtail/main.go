package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	binlog "github.com/santhosh-tekuri/binlogtail"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func printUsage() {
	errln("Usage:")
	errln()
	errln("binlogtail tail INDEX-FILE [CONFIG-FILE]")
	errln("Arguments:")
	errln("    INDEX-FILE  index file of the mysqld binlogs. use - to take it from CONFIG-FILE.")
	errln("    CONFIG-FILE optional. yaml config, see below.")
	errln("Examples:")
	errln("    binlogtail tail /var/lib/mysql/binlog.index")
	errln("    binlogtail tail - /etc/binlogtail.yaml")
	errln()
	errln("binlogtail resolve INDEX-FILE")
	errln("    prints the binlog file tailing would start from.")
	errln()
	errln("CONFIG-FILE:")
	errln("    index: /var/lib/mysql/binlog.index")
	errln("    watch: {mode: fsnotify, poll_interval: 250ms}  # mode: fsnotify or poll")
	errln("    log: {level: info, format: text}              # format: text or json")
	errln("    output: json                                  # json or text")
}

func main() {
	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "resolve":
		file, err := binlog.FileIndex{}.Resolve(os.Args[2])
		if err != nil {
			errln(err)
			os.Exit(1)
		}
		fmt.Println(file)
	case "tail":
		var cfg *Config
		var err error
		if len(os.Args) >= 4 {
			cfg, err = LoadConfig(os.Args[3])
		} else {
			cfg, err = Load(nil)
		}
		if err != nil {
			errln(err)
			os.Exit(1)
		}
		if os.Args[2] != "-" {
			cfg.Index = os.Args[2]
		}
		if cfg.Index == "" {
			printUsage()
			os.Exit(1)
		}
		if err := tail(cfg); err != nil {
			errln(err)
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func tail(cfg *Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := cfg.logger()
	fs := afero.NewOsFs()
	var w binlog.Watcher = binlog.FSNotifyWatcher{Log: log}
	if cfg.Watch.Mode == "poll" {
		w = binlog.PollWatcher{
			Fs:       fs,
			Interval: ParseDuration(cfg.Watch.PollInterval, 250*time.Millisecond, log),
		}
	}

	out := os.Stdout
	var writeErr error
	pub := binlog.PublisherFunc(func(n binlog.Notification) {
		if writeErr != nil {
			return
		}
		if cfg.Output == "text" {
			writeErr = printText(out, n)
		} else {
			writeErr = printJSON(out, n)
		}
		if writeErr != nil {
			log.WithError(writeErr).Error("writing notification")
			stop()
		}
	})

	t := binlog.New(cfg.Index, pub, binlog.Options{
		Fs:      fs,
		Watcher: w,
		Logger:  log,
	})
	log.WithField("index", cfg.Index).Info("tailing binlog")
	err := t.Run(ctx)
	if writeErr != nil {
		return writeErr
	}
	if errors.Is(err, context.Canceled) {
		file, offset := t.Position()
		log.WithFields(logrus.Fields{"file": file, "offset": offset}).Info("stopped")
		return nil
	}
	return err
}

func printJSON(w io.Writer, n binlog.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	m["kind"] = n.Kind()
	if e, ok := n.(binlog.Error); ok {
		m["error"] = e.Error()
	}
	return json.NewEncoder(w).Encode(m)
}

func printText(w io.Writer, n binlog.Notification) error {
	format := func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04:05")
	}
	var err error
	switch n := n.(type) {
	case binlog.LogStarted:
		_, err = fmt.Fprintf(w, "%s %-13s %s\n", format(n.Timestamp), n.Kind(), n.File)
	case binlog.Query:
		_, err = fmt.Fprintf(w, "%s %-13s %s: %s", format(n.Timestamp), n.Kind(), n.Database, n.Text)
		if err == nil && n.AutoIncrement != nil {
			if v := n.AutoIncrement.LastInsertID; v != nil {
				_, err = fmt.Fprintf(w, " LAST_INSERT_ID=%d", *v)
			}
			if v := n.AutoIncrement.AutoIncrement; v != nil && err == nil {
				_, err = fmt.Fprintf(w, " INSERT_ID=%d", *v)
			}
		}
		if err == nil {
			_, err = fmt.Fprintln(w)
		}
	case binlog.ServerStopped:
		_, err = fmt.Fprintf(w, "%s %-13s\n", format(n.Timestamp), n.Kind())
	case binlog.Rotated:
		_, err = fmt.Fprintf(w, "%19s %-13s %s\n", "", n.Kind(), n.NextFile)
	case binlog.Error:
		_, err = fmt.Fprintf(w, "%19s %-13s %v\n", "", n.Kind(), n.Cause)
	}
	return err
}

func errln(args ...interface{}) {
	_, _ = fmt.Fprintln(os.Stderr, args...)
}
