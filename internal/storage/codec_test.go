package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestProbeRecordCodecRoundTrip(t *testing.T) {
	record := testRecord("refusal")

	data, err := EncodeProbeRecord(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeProbeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != record.Name || got.ProbeType != record.ProbeType {
		t.Fatalf("record = %+v", got)
	}
	if !got.CreatedAt.Equal(record.CreatedAt) {
		t.Fatalf("created_at = %v", got.CreatedAt)
	}
	// Marshalling compacts the raw payload, so compare compacted forms.
	var want bytes.Buffer
	if err := json.Compact(&want, record.Payload); err != nil {
		t.Fatalf("compact: %v", err)
	}
	if string(got.Payload) != want.String() {
		t.Fatalf("payload = %s, want %s", got.Payload, want.String())
	}
}

func TestDecodeProbeRecordVersionMismatch(t *testing.T) {
	record := testRecord("refusal")
	record.SchemaVersion = CurrentSchemaVersion + 1

	data, err := EncodeProbeRecord(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeProbeRecord(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	record = testRecord("refusal")
	record.CodecVersion = CurrentCodecVersion + 1
	data, _ = EncodeProbeRecord(record)
	if _, err := DecodeProbeRecord(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestDecodeProbeRecordInvalidJSON(t *testing.T) {
	if _, err := DecodeProbeRecord([]byte("{not json")); err == nil {
		t.Fatal("expected an error for invalid json")
	}
}
