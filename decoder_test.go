package binlog

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testBinlog = "/var/lib/mysql/binlog.000001"

type decodeResult struct {
	got    []Notification
	next   string
	err    error
	offset int64
	s      *session
}

// decode runs a decoder without fast-forward over data until want
// notifications are published or the decoder stops.
func decode(t *testing.T, data []byte, want int) decodeResult {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testBinlog, data, 0644))
	s, err := openSession(fs, testWatcher(fs), testBinlog, false, testLogger())
	require.NoError(t, err)
	defer s.stop()

	ch := make(ChanPublisher, 16)
	d := newDecoder(s, ch)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	type runResult struct {
		next string
		err  error
	}
	done := make(chan runResult, 1)
	go func() {
		next, err := d.run(ctx)
		done <- runResult{next, err}
	}()

	var res decodeResult
	var run runResult
	finished := false
	timeout := time.After(5 * time.Second)
	for len(res.got) < want && !finished {
		select {
		case n := <-ch:
			res.got = append(res.got, n)
		case run = <-done:
			finished = true
		case <-timeout:
			t.Fatalf("got %d notifications, want %d", len(res.got), want)
		}
	}
	if !finished {
		cancel()
		run = <-done
	}
	for len(ch) > 0 {
		res.got = append(res.got, <-ch)
	}
	res.next, res.err, res.offset, res.s = run.next, run.err, s.cur.Offset(), s
	return res
}

func TestDecoder_queryAndStop(t *testing.T) {
	data := binlogFile(
		queryEvent("app", "INSERT INTO t VALUES (1)"),
		stopEvent(),
	)
	res := decode(t, data, 3)
	require.Equal(t, context.Canceled, res.err)
	require.Equal(t, []Notification{
		LogStarted{Timestamp: time.Unix(ts, 0).UTC(), File: testBinlog},
		Query{Timestamp: time.Unix(ts, 0).UTC(), Database: "app", Text: "INSERT INTO t VALUES (1)"},
		ServerStopped{Timestamp: time.Unix(ts, 0).UTC()},
	}, res.got)
	require.Equal(t, int64(len(data)), res.offset)
}

func TestDecoder_skipsOtherEvents(t *testing.T) {
	testCases := []struct {
		name  string
		event []byte
	}{
		{"xid", newEvent(XID_EVENT, []byte{1, 2, 3, 4, 5, 6, 7, 8})},
		{"tableMap", newEvent(TABLE_MAP_EVENT, make([]byte, 40))},
		{"unknownType", newEvent(EventType(0x99), make([]byte, 3))},
		{"emptyBody", newEvent(HEARTBEAT_EVENT, nil)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			before := len(binlogFile())
			res := decode(t, binlogFile(tc.event, stopEvent()), 2)
			require.Len(t, res.got, 2)
			require.IsType(t, LogStarted{}, res.got[0])
			require.IsType(t, ServerStopped{}, res.got[1])
			require.Equal(t, int64(before+len(tc.event)+len(stopEvent())), res.offset)
		})
	}
}

func TestDecoder_autoIncrementCarry(t *testing.T) {
	data := binlogFile(
		intVarEvent(INSERT_ID_EVENT, 5),
		intVarEvent(LAST_INSERT_ID_EVENT, 0x100000009),
		queryEvent("app", "INSERT INTO t VALUES (NULL)"),
		queryEvent("app", "UPDATE t SET a = 2"),
		intVarEvent(INSERT_ID_EVENT, 6),
		queryEvent("app", "INSERT INTO t VALUES (NULL)"),
		stopEvent(),
	)
	res := decode(t, data, 5)
	require.Len(t, res.got, 5)

	q := res.got[1].(Query)
	require.Equal(t, &AutoIncrement{AutoIncrement: uint32p(5), LastInsertID: uint32p(9)}, q.AutoIncrement)

	q = res.got[2].(Query)
	require.Nil(t, q.AutoIncrement)

	q = res.got[3].(Query)
	require.Equal(t, &AutoIncrement{AutoIncrement: uint32p(6)}, q.AutoIncrement)
	require.IsType(t, ServerStopped{}, res.got[4])
}

func TestDecoder_intVarWithChecksum(t *testing.T) {
	body := append(intVarBody(INSERT_ID_EVENT, 3), 0xaa, 0xbb, 0xcc, 0xdd)
	data := binlogFile(
		newEvent(INTVAR_EVENT, body),
		queryEvent("app", "INSERT INTO t VALUES (NULL)"),
	)
	res := decode(t, data, 2)
	require.Len(t, res.got, 2)
	require.Equal(t, &AutoIncrement{AutoIncrement: uint32p(3)}, res.got[1].(Query).AutoIncrement)
	require.Equal(t, int64(len(data)), res.offset)
}

func TestDecoder_rotate(t *testing.T) {
	res := decode(t, binlogFile(rotateEvent("binlog.000002")), 2)
	require.NoError(t, res.err)
	require.Equal(t, "/var/lib/mysql/binlog.000002", res.next)
	require.Equal(t, []Notification{
		LogStarted{Timestamp: time.Unix(ts, 0).UTC(), File: testBinlog},
		Rotated{NextFile: "/var/lib/mysql/binlog.000002"},
	}, res.got)

	// the session is stopped before Rotated is published
	_, err := res.s.file.ReadAt(make([]byte, 1), 0)
	require.Error(t, err)
	require.NoError(t, res.s.stop())
}

func TestDecoder_formatErrors(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want int // notifications before the error
	}{
		{"badMagic", append([]byte{0xfe, 'b', 'o', 'g'}, formatDescriptionEvent()...), 0},
		{"notFormatDescription", append(append([]byte(nil), fileHeader...), queryEvent("app", "SELECT 1")...), 0},
		{"eventSmallerThanHeader", binlogFile(header(ts, XID_EVENT, 10)), 1},
		{"shortIntVar", binlogFile(newEvent(INTVAR_EVENT, []byte{1, 2})), 1},
		{"shortRotate", binlogFile(newEvent(ROTATE_EVENT, []byte{1, 2, 3})), 1},
		{"truncatedQuery", binlogFile(newEvent(QUERY_EVENT, []byte{0, 0, 0, 0, 0, 0, 0, 0, 9})), 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := decode(t, tc.data, tc.want+1)
			require.Error(t, res.err)
			require.True(t, IsFormatError(res.err), "%+v", res.err)
			require.Len(t, res.got, tc.want)
		})
	}
}
