// ABOUTME: Tests for Collect - synchronous decoding of multi-record bodies
// ABOUTME: with the same framing rules as the live engine.
package stream

import (
	"errors"
	"strings"
	"testing"
)

func TestCollectMultipleRecords(t *testing.T) {
	body := strings.NewReader(
		"{\"response\":\"Hello\",\"done\":false}\n" +
			"{\"response\":\" world\",\"done\":false}\n" +
			"{\"response\":\"!\",\"done\":true}\n",
	)

	records, err := Collect(body, probeCodec{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	var text strings.Builder
	for _, rec := range records {
		text.WriteString(rec.Response)
	}
	if text.String() != "Hello world!" {
		t.Errorf("expected accumulated text, got %q", text.String())
	}
	if !records[2].Done {
		t.Error("expected final record to carry the done flag")
	}
}

func TestCollectSingleRecord(t *testing.T) {
	body := strings.NewReader("{\"response\":\"all at once\",\"done\":true}\n")

	records, err := Collect(body, probeCodec{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Response != "all at once" {
		t.Fatalf("expected one record, got %+v", records)
	}
}

func TestCollectFlushesTailWithoutSeparator(t *testing.T) {
	body := strings.NewReader("{\"response\":\"tail\",\"done\":true}")

	records, err := Collect(body, probeCodec{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Response != "tail" {
		t.Fatalf("expected the unterminated tail record, got %+v", records)
	}
}

func TestCollectMalformedRecordFails(t *testing.T) {
	body := strings.NewReader("{\"response\":\"ok\",\"done\":false}\nnot json\n")

	records, err := Collect(body, probeCodec{}, Options{})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected decode-kind error, got %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected records before the bad one to be returned, got %d", len(records))
	}
}

func TestCollectEmptyBody(t *testing.T) {
	records, err := Collect(strings.NewReader(""), probeCodec{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %+v", records)
	}
}

func TestCollectSkipsSentinel(t *testing.T) {
	body := strings.NewReader("{\"response\":\"a\",\"done\":false}\n[DONE]\n")

	records, err := Collect(body, probeCodec{}, Options{Sentinel: "[DONE]"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected the sentinel to be skipped, got %+v", records)
	}
}
