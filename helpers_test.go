package binlog

import (
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Helpers ---

const ts = 1600000000

func header(timestamp uint32, typ EventType, size uint32) []byte {
	b := make([]byte, eventHeaderSize)
	binary.LittleEndian.PutUint32(b[0:], timestamp)
	b[4] = byte(typ)
	binary.LittleEndian.PutUint32(b[5:], 1) // server id
	binary.LittleEndian.PutUint32(b[9:], size)
	binary.LittleEndian.PutUint16(b[17:], 0)
	return b
}

func newEvent(typ EventType, body []byte) []byte {
	return append(header(ts, typ, uint32(eventHeaderSize+len(body))), body...)
}

func fdeBody() []byte {
	b := make([]byte, 2+50+4+1)
	binary.LittleEndian.PutUint16(b, 4)
	copy(b[2:], "5.7.31-log")
	binary.LittleEndian.PutUint32(b[52:], ts)
	b[56] = eventHeaderSize
	return append(b, 56, 13, 0, 8, 0, 18, 0, 4, 4, 4, 4, 18, 0, 0, 95, 0, 4, 26, 8, 0, 0, 0, 8, 8, 8, 2, 0)
}

func queryBody(schema string, statusVars []byte, query string) []byte {
	b := make([]byte, 13)
	binary.LittleEndian.PutUint32(b[0:], 7) // slave proxy id
	binary.LittleEndian.PutUint32(b[4:], 0) // execution time
	b[8] = byte(len(schema))
	binary.LittleEndian.PutUint16(b[9:], 0) // error code
	binary.LittleEndian.PutUint16(b[11:], uint16(len(statusVars)))
	b = append(b, statusVars...)
	b = append(b, schema...)
	b = append(b, 0)
	return append(b, query...)
}

func intVarBody(typ uint8, v uint64) []byte {
	b := make([]byte, intVarEventSize)
	b[0] = typ
	binary.LittleEndian.PutUint64(b[1:], v)
	return b
}

func rotateBody(name string) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, 4)
	return append(b, name...)
}

func formatDescriptionEvent() []byte {
	return newEvent(FORMAT_DESCRIPTION_EVENT, fdeBody())
}

func queryEvent(schema, query string) []byte {
	return newEvent(QUERY_EVENT, queryBody(schema, []byte{0, 0, 0, 0, 0}, query))
}

func intVarEvent(typ uint8, v uint64) []byte {
	return newEvent(INTVAR_EVENT, intVarBody(typ, v))
}

func stopEvent() []byte {
	return newEvent(STOP_EVENT, nil)
}

func rotateEvent(name string) []byte {
	return newEvent(ROTATE_EVENT, rotateBody(name))
}

// binlogFile returns a file header and format description event
// followed by events.
func binlogFile(events ...[]byte) []byte {
	b := append([]byte(nil), fileHeader...)
	b = append(b, formatDescriptionEvent()...)
	for _, e := range events {
		b = append(b, e...)
	}
	return b
}

func appendFile(t *testing.T, fs afero.Fs, name string, data []byte) {
	t.Helper()
	f, err := fs.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(os.Stderr)
	if !testing.Verbose() {
		l.SetLevel(logrus.PanicLevel)
	}
	return l
}

func testWatcher(fs afero.Fs) Watcher {
	return PollWatcher{Fs: fs, Interval: 2 * time.Millisecond}
}

func uint32p(v uint32) *uint32 { return &v }
