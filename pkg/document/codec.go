package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Jtensminger/deep-systems-analysis/pkg/errors"
)

// =============================================================================
// Tagged unions
// =============================================================================

type complexFields struct {
	Adaptable  bool `json:"adaptable"`
	Evolveable bool `json:"evolveable"`
}

// MarshalJSON encodes c as a single-key object.
func (c Complexity) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case Atomic, Multiset:
		return json.Marshal(map[string]struct{}{string(c.Kind): {}})
	case Complex:
		return json.Marshal(map[string]complexFields{string(Complex): {c.Adaptable, c.Evolveable}})
	}
	return nil, fmt.Errorf("unknown complexity %q", c.Kind)
}

// UnmarshalJSON accepts the single-key object form and, for unit variants,
// a bare string.
func (c *Complexity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch ComplexityKind(name) {
		case Atomic, Multiset:
			*c = Complexity{Kind: ComplexityKind(name)}
			return nil
		case Complex:
			*c = Complexity{Kind: Complex}
			return nil
		}
		return fmt.Errorf("unknown complexity %q", name)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("complexity: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("complexity must have exactly one variant, got %d", len(obj))
	}
	for k, v := range obj {
		switch ComplexityKind(k) {
		case Atomic, Multiset:
			*c = Complexity{Kind: ComplexityKind(k)}
		case Complex:
			var f complexFields
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("complexity: %w", err)
			}
			*c = Complexity{Kind: Complex, Adaptable: f.Adaptable, Evolveable: f.Evolveable}
		default:
			return fmt.Errorf("unknown complexity %q", k)
		}
	}
	return nil
}

type usabilityField struct {
	Usability Usability `json:"usability"`
}

// MarshalJSON encodes t as {"Inflow": {"usability": ...}}.
func (t InteractionType) MarshalJSON() ([]byte, error) {
	if t.Direction != Inflow && t.Direction != Outflow {
		return nil, fmt.Errorf("unknown interaction direction %q", t.Direction)
	}
	return json.Marshal(map[string]usabilityField{string(t.Direction): {t.Usability}})
}

// UnmarshalJSON decodes the single-key object form.
func (t *InteractionType) UnmarshalJSON(data []byte) error {
	var obj map[string]usabilityField
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("interaction type: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("interaction type must have exactly one variant, got %d", len(obj))
	}
	for k, v := range obj {
		switch Direction(k) {
		case Inflow, Outflow:
			*t = InteractionType{Direction: Direction(k), Usability: v.Usability}
		default:
			return fmt.Errorf("unknown interaction direction %q", k)
		}
	}
	return nil
}

// =============================================================================
// Read / Write
// =============================================================================

// Read decodes and validates a document.
func Read(r io.Reader) (*WorldModel, error) {
	dec := json.NewDecoder(r)
	var wm WorldModel
	if err := dec.Decode(&wm); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDocumentParse, err, "decode")
	}
	if err := Validate(&wm); err != nil {
		return nil, err
	}
	return &wm, nil
}

// Parse decodes and validates a document held in memory.
func Parse(data []byte) (*WorldModel, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes wm as indented JSON.
func Write(w io.Writer, wm *WorldModel) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(wm); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode")
	}
	return nil
}

// Marshal returns the indented JSON encoding of wm.
func Marshal(wm *WorldModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, wm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFile reads and validates the document at path.
func ReadFile(path string) (*WorldModel, error) {
	if err := errors.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile writes wm to path, replacing any existing file.
func WriteFile(path string, wm *WorldModel) error {
	if err := errors.ValidateDocumentPath(path); err != nil {
		return err
	}
	data, err := Marshal(wm)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	return nil
}
