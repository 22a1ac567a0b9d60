package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeProbeRecord(r ProbeRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeProbeRecord(data []byte) (ProbeRecord, error) {
	var record ProbeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ProbeRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return ProbeRecord{}, err
	}
	return record, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion > CurrentSchemaVersion {
		return fmt.Errorf("%w: schema version %d, supported up to %d",
			ErrVersionMismatch, v.SchemaVersion, CurrentSchemaVersion)
	}
	if v.CodecVersion > CurrentCodecVersion {
		return fmt.Errorf("%w: codec version %d, supported up to %d",
			ErrVersionMismatch, v.CodecVersion, CurrentCodecVersion)
	}
	return nil
}
