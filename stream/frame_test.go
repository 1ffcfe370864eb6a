// ABOUTME: Tests for the line framing layer - chunk reassembly, envelope
// ABOUTME: stripping, sentinel recognition, and record size limits.
package stream

import (
	"errors"
	"strings"
	"testing"
)

func feedAll(t *testing.T, d *frameDecoder, chunks ...string) []record {
	t.Helper()
	var recs []record
	for _, chunk := range chunks {
		out, err := d.feed([]byte(chunk))
		if err != nil {
			t.Fatalf("unexpected feed error: %v", err)
		}
		recs = append(recs, out...)
	}
	return recs
}

func TestFrameDecoderSingleChunk(t *testing.T) {
	d := newFrameDecoder("", "", DefaultMaxRecord)
	recs := feedAll(t, d, "{\"a\":1}\n{\"b\":2}\n")

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].text != `{"a":1}` {
		t.Errorf("record 0: expected %q, got %q", `{"a":1}`, recs[0].text)
	}
	if recs[1].text != `{"b":2}` {
		t.Errorf("record 1: expected %q, got %q", `{"b":2}`, recs[1].text)
	}
}

func TestFrameDecoderRecordSplitAcrossChunks(t *testing.T) {
	d := newFrameDecoder("", "", DefaultMaxRecord)

	recs, err := d.feed([]byte(`{"resp`))
	if err != nil {
		t.Fatalf("unexpected feed error: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records from partial chunk, got %d", len(recs))
	}

	recs, err = d.feed([]byte("onse\":\"x\"}\n"))
	if err != nil {
		t.Fatalf("unexpected feed error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after completion, got %d", len(recs))
	}
	if recs[0].text != `{"response":"x"}` {
		t.Errorf("expected reassembled record, got %q", recs[0].text)
	}
}

func TestFrameDecoderDropsBlankLines(t *testing.T) {
	d := newFrameDecoder("", "", DefaultMaxRecord)
	recs := feedAll(t, d, "\n   \n\t\n{\"a\":1}\n\n")

	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].text != `{"a":1}` {
		t.Errorf("expected record text, got %q", recs[0].text)
	}
}

func TestFrameDecoderStripsEnvelopePrefix(t *testing.T) {
	d := newFrameDecoder("data:", "", DefaultMaxRecord)
	recs := feedAll(t, d, "data: {\"a\":1}\ndata:{\"b\":2}\n{\"c\":3}\n")

	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	want := []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}
	for i, w := range want {
		if recs[i].text != w {
			t.Errorf("record %d: expected %q, got %q", i, w, recs[i].text)
		}
	}
}

func TestFrameDecoderBlankAfterPrefix(t *testing.T) {
	d := newFrameDecoder("data:", "", DefaultMaxRecord)
	recs := feedAll(t, d, "data: \n")

	if len(recs) != 0 {
		t.Fatalf("expected prefix-only line to be dropped, got %d records", len(recs))
	}
}

func TestFrameDecoderSentinel(t *testing.T) {
	d := newFrameDecoder("data:", "[DONE]", DefaultMaxRecord)
	recs := feedAll(t, d, "data: {\"a\":1}\ndata: [DONE]\n")

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].sentinel {
		t.Error("first record should not be the sentinel")
	}
	if !recs[1].sentinel {
		t.Error("expected second record to be the sentinel")
	}
}

func TestFrameDecoderSentinelWithoutPrefix(t *testing.T) {
	d := newFrameDecoder("", "[DONE]", DefaultMaxRecord)
	recs := feedAll(t, d, "[DONE]\n")

	if len(recs) != 1 || !recs[0].sentinel {
		t.Fatalf("expected bare sentinel record, got %+v", recs)
	}
}

func TestFrameDecoderCRLF(t *testing.T) {
	d := newFrameDecoder("", "", DefaultMaxRecord)
	recs := feedAll(t, d, "{\"a\":1}\r\n{\"b\":2}\r\n")

	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].text != `{"a":1}` {
		t.Errorf("carriage return not trimmed: %q", recs[0].text)
	}
}

func TestFrameDecoderUTF8SplitAcrossChunks(t *testing.T) {
	// The euro sign is three bytes; split it between two chunks.
	line := "{\"t\":\"€\"}\n"
	raw := []byte(line)
	cut := len(raw) - 4 // inside the multi-byte sequence

	d := newFrameDecoder("", "", DefaultMaxRecord)
	recs := feedAll(t, d, string(raw[:cut]), string(raw[cut:]))

	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if !strings.Contains(recs[0].text, "€") {
		t.Errorf("multi-byte character corrupted: %q", recs[0].text)
	}
	if strings.ContainsRune(recs[0].text, '�') {
		t.Errorf("replacement character introduced: %q", recs[0].text)
	}
}

func TestFrameDecoderRecordTooLarge(t *testing.T) {
	d := newFrameDecoder("", "", 16)

	_, err := d.feed([]byte(strings.Repeat("x", 32)))
	if err == nil {
		t.Fatal("expected oversize error")
	}
	if !errors.Is(err, ErrFraming) {
		t.Errorf("expected framing error, got %v", err)
	}
}

func TestFrameDecoderCompleteLineTooLarge(t *testing.T) {
	d := newFrameDecoder("", "", 16)

	recs, err := d.feed([]byte("short\n" + strings.Repeat("x", 32) + "\n"))
	if err == nil {
		t.Fatal("expected oversize error")
	}
	if !errors.Is(err, ErrFraming) {
		t.Errorf("expected framing error, got %v", err)
	}
	if len(recs) != 1 || recs[0].text != "short" {
		t.Errorf("records before the oversize line should survive, got %+v", recs)
	}
}

func TestFrameDecoderFlushTail(t *testing.T) {
	d := newFrameDecoder("", "", DefaultMaxRecord)
	feedAll(t, d, `{"a":1}`)

	rec, ok := d.flush()
	if !ok {
		t.Fatal("expected flush to yield the unterminated tail")
	}
	if rec.text != `{"a":1}` {
		t.Errorf("expected tail record, got %q", rec.text)
	}

	if _, ok := d.flush(); ok {
		t.Error("second flush should yield nothing")
	}
}

func TestFrameDecoderFlushEmpty(t *testing.T) {
	d := newFrameDecoder("", "", DefaultMaxRecord)
	feedAll(t, d, "{\"a\":1}\n")

	if _, ok := d.flush(); ok {
		t.Error("flush after a terminated record should yield nothing")
	}
}
