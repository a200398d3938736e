/*
Package binlog tails the binary log files of a local mysql server and
publishes the statements they record.

It reads the binlog files from disk; it never connects to the server.
Tailing starts at the newest file named in the index file. Queries that
are already in that file are decoded but not published, so a consumer
only sees writes made after tailing started. When the server rotates its
log, the tailer waits for the next file and continues from its start.

to print every query logged from now on:

	ch := make(binlog.ChanPublisher)
	t := binlog.New("/var/lib/mysql/binlog.index", ch, binlog.Options{})
	go func() {
		_ = t.Run(ctx)
		close(ch)
	}()
	for n := range ch {
		switch n := n.(type) {
		case binlog.Query:
			fmt.Printf("%s: %s\n", n.Database, n.Text)
		case binlog.Error:
			return n.Cause
		}
	}

Only QUERY_EVENT, STOP_EVENT, ROTATE_EVENT and INTVAR_EVENT are decoded.
Other events are skipped using the size in their header.

for a command line tool see cmd/binlogtail/main.go
*/
package binlog
