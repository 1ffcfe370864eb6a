// ABOUTME: Line framing for incremental response bodies - reassembles complete
// ABOUTME: newline-delimited records from arbitrarily split byte chunks.
package stream

import (
	"bytes"
	"fmt"
)

// frameDecoder turns raw byte chunks into complete records. It owns no I/O:
// callers feed it chunks and it keeps only the unterminated tail between
// calls, so a record or a multi-byte character split across chunks is
// reassembled before any decoding happens.
type frameDecoder struct {
	buf      []byte
	prefix   []byte // envelope marker stripped from each line, may be empty
	sentinel []byte // literal end-of-stream marker, may be empty
	max      int    // largest allowed record in bytes
}

// record is one complete framed line, or the sentinel marker.
type record struct {
	text     string
	sentinel bool
}

func newFrameDecoder(prefix, sentinel string, max int) *frameDecoder {
	return &frameDecoder{
		prefix:   []byte(prefix),
		sentinel: []byte(sentinel),
		max:      max,
	}
}

// feed appends one chunk and returns every record it completes, in order.
// Records already completed are returned even when the remainder fails the
// size check; the error is fatal to the stream either way.
func (d *frameDecoder) feed(chunk []byte) ([]record, error) {
	d.buf = append(d.buf, chunk...)

	var recs []record
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		if i > d.max {
			return recs, d.oversize(i)
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]
		if rec, ok := d.frame(line); ok {
			recs = append(recs, rec)
		}
	}

	if len(d.buf) > d.max {
		return recs, d.oversize(len(d.buf))
	}
	return recs, nil
}

// flush returns the retained tail as a final record, if it frames to one.
// Called once at end of body: the last record of a response may arrive
// without its separator.
func (d *frameDecoder) flush() (record, bool) {
	line := d.buf
	d.buf = nil
	return d.frame(line)
}

// frame trims one raw line into a record. Blank lines and lines that become
// blank after envelope stripping carry no protocol meaning and are dropped.
// The sentinel is recognized here, before any JSON decoding.
func (d *frameDecoder) frame(line []byte) (record, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return record{}, false
	}
	if len(d.prefix) > 0 && bytes.HasPrefix(line, d.prefix) {
		line = bytes.TrimSpace(line[len(d.prefix):])
		if len(line) == 0 {
			return record{}, false
		}
	}
	if len(d.sentinel) > 0 && bytes.Equal(line, d.sentinel) {
		return record{sentinel: true}, true
	}
	return record{text: string(line)}, true
}

func (d *frameDecoder) oversize(n int) error {
	return &Error{
		Kind: ErrFraming,
		Op:   "frame",
		Err:  fmt.Errorf("record of %d bytes exceeds limit of %d", n, d.max),
	}
}
