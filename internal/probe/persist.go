package probe

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Binary container layout, little-endian:
//
//	magic "PRBK" | uint16 version | kind (uint16 len + bytes)
//	| config JSON (uint32 len + bytes)
//	| direction matrix (uint32 rows, uint32 cols, float64 data)
//	| uint8 hasState | state JSON (uint32 len + bytes, if hasState)
//
// The direction is stored post-transform; the state blob carries the raw
// trainable parameters for gradient probes and is absent for closed-form
// variants, which reload from the direction alone.
var containerMagic = [4]byte{'P', 'R', 'B', 'K'}

const containerVersion uint16 = 1

// paramState is the serialized trainable-parameter blob.
type paramState struct {
	Weights     [][]float64 `json:"weights"`
	Bias        []float64   `json:"bias,omitempty"`
	FeatureMean []float64   `json:"feature_mean,omitempty"`
	FeatureStd  []float64   `json:"feature_std,omitempty"`
}

// persistable is the internal surface the persistence layer needs beyond
// the public Probe contract.
type persistable interface {
	Probe
	configValue() any
	state() *paramState
}

func saveBinary(p persistable, path string) error {
	dirs, err := p.Directions()
	if err != nil {
		return fmt.Errorf("save %s probe: %w", p.Kind(), err)
	}

	configBlob, err := json.Marshal(p.configValue())
	if err != nil {
		return fmt.Errorf("encode %s config: %w", p.Kind(), err)
	}

	buf := &bytes.Buffer{}
	buf.Write(containerMagic[:])
	if err := binary.Write(buf, binary.LittleEndian, containerVersion); err != nil {
		return err
	}
	if err := writeTag(buf, p.Kind()); err != nil {
		return err
	}
	if err := writeBlob(buf, configBlob); err != nil {
		return err
	}
	if err := writeMatrix(buf, dirs); err != nil {
		return err
	}

	st := p.state()
	if st == nil {
		buf.WriteByte(0)
	} else {
		stateBlob, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode %s state: %w", p.Kind(), err)
		}
		buf.WriteByte(1)
		if err := writeBlob(buf, stateBlob); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadProbe reads a probe container and reconstructs the variant named by
// its type tag. JSON paths are routed to LoadJSON.
func LoadProbe(path string) (Probe, error) {
	if strings.HasSuffix(path, ".json") {
		return LoadJSON(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != containerMagic {
		return nil, fmt.Errorf("%w: bad container magic in %s", ErrUnrecognizedFormat, path)
	}
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != containerVersion {
		return nil, fmt.Errorf("%w: container version %d", ErrUnrecognizedFormat, version)
	}

	kind, err := readTag(r)
	if err != nil {
		return nil, err
	}
	configBlob, err := readBlob(r)
	if err != nil {
		return nil, err
	}
	dirs, err := readMatrix(r)
	if err != nil {
		return nil, err
	}

	spec, err := lookupVariant(kind)
	if err != nil {
		return nil, err
	}
	p, err := spec.fromConfigJSON(configBlob)
	if err != nil {
		return nil, fmt.Errorf("decode %s config: %w", kind, err)
	}

	hasState, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if hasState == 1 {
		stateBlob, err := readBlob(r)
		if err != nil {
			return nil, err
		}
		var st paramState
		if err := json.Unmarshal(stateBlob, &st); err != nil {
			return nil, fmt.Errorf("decode %s state: %w", kind, err)
		}
		restorer, ok := p.(stateRestorer)
		if !ok {
			return nil, fmt.Errorf("%w: %s probe carries parameter state", ErrUnrecognizedFormat, kind)
		}
		if err := restorer.restoreState(&st); err != nil {
			return nil, err
		}
		return p, nil
	}

	setter, ok := p.(directionSetter)
	if !ok {
		return nil, fmt.Errorf("%w: %s probe cannot accept a stored direction", ErrUnrecognizedFormat, kind)
	}
	if err := setter.setDirection(dirs); err != nil {
		return nil, err
	}
	return p, nil
}

func writeTag(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readTag(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeBlob(buf *bytes.Buffer, b []byte) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := buf.Write(b)
	return err
}

func readBlob(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeMatrix(buf *bytes.Buffer, m [][]float64) error {
	rows := uint32(len(m))
	cols := uint32(0)
	if rows > 0 {
		cols = uint32(len(m[0]))
	}
	if err := binary.Write(buf, binary.LittleEndian, rows); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, cols); err != nil {
		return err
	}
	for _, row := range m {
		if err := binary.Write(buf, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return nil
}

func readMatrix(r *bytes.Reader) ([][]float64, error) {
	var rows, cols uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return nil, err
	}
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		if err := binary.Read(r, binary.LittleEndian, m[i]); err != nil {
			return nil, err
		}
	}
	return m, nil
}
