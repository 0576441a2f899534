// Package dataset defines the in-memory JSON schema for subjective-rating
// datasets (spec section 6), validates it against an embedded JSON Schema
// the way the teacher's pkg/validation.ModelValidator validates PCA model
// JSON, adapts it into an opinion tensor.Tensor (C1), and emits an
// aggregated result back into the same schema shape (C5).
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/qualab/subjqual/pkg/qerrors"
)

// RatingValue is a single subject's opinion score. It accepts either a
// bare JSON number or an object carrying a "value" key, reduced to a
// plain float64 before any model sees it (spec section 4.1).
type RatingValue struct {
	Value float64
}

// UnmarshalJSON implements json.Unmarshaler, accepting `4` or `{"value":4}`.
func (r *RatingValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty rating value")
	}
	if trimmed[0] == '{' {
		var wrapped struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return fmt.Errorf("rating object: %w", err)
		}
		r.Value = wrapped.Value
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("rating number: %w", err)
	}
	r.Value = v
	return nil
}

// MarshalJSON implements json.Marshaler, always emitting a bare number.
func (r RatingValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value)
}

// RatingMap is the per-stimulus opinion map ("os" in JSON), keyed by
// subject. A JSON array implies positional subject ids "0".."N-1"; a JSON
// object names subjects explicitly. Keys preserves the order subjects were
// first encountered in this particular map, since Go map iteration order
// is not stable enough to assign deterministic subject indices from.
type RatingMap struct {
	Keys   []string
	Values map[string]RatingValue
}

// UnmarshalJSON implements json.Unmarshaler for both the array and object
// forms described in spec section 6.
func (m *RatingMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	m.Values = make(map[string]RatingValue)
	m.Keys = nil

	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var arr []RatingValue
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return fmt.Errorf("os array: %w", err)
		}
		for i, v := range arr {
			key := fmt.Sprintf("%d", i)
			m.Keys = append(m.Keys, key)
			m.Values[key] = v
		}
		return nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("os object: %w", err)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			return fmt.Errorf("os object: expected '{'")
		}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("os object key: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return fmt.Errorf("os object: non-string key")
			}
			var v RatingValue
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("os object value for %q: %w", key, err)
			}
			m.Keys = append(m.Keys, key)
			m.Values[key] = v
		}
		return nil
	default:
		return fmt.Errorf("os must be an array or object")
	}
}

// MarshalJSON implements json.Marshaler, re-emitting as an object keyed by
// the original subject keys in their recorded order.
func (m RatingMap) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBufferString("{")
	for i, key := range m.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(m.Values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RefVideo is a pristine source video, pass-through metadata only: it
// never carries ratings and contributes no rows to the opinion tensor.
type RefVideo struct {
	ContentID int    `json:"content_id"`
	Path      string `json:"path,omitempty"`
}

// DisVideo is one distorted stimulus: a (content, distortion) pair rated
// by a panel of subjects.
type DisVideo struct {
	ContentID int    `json:"content_id"`
	AssetID   int    `json:"asset_id"`
	RefPath   string `json:"ref_path,omitempty"`
	Path      string `json:"path,omitempty"`

	// RefStimulusID, when present, names the index (into DisVideos) of
	// the hidden-reference stimulus used for DMOS difference scoring
	// (spec section 4.1's reference map rho).
	RefStimulusID *int `json:"ref_stimulus_id,omitempty"`

	OS RatingMap `json:"os"`
}

// Dataset is the input record consumed by Build (spec section 6).
type Dataset struct {
	DatasetName string `json:"dataset_name,omitempty"`
	YUVFmt      string `json:"yuv_fmt,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`

	RefVideos []RefVideo `json:"ref_videos,omitempty"`
	DisVideos []DisVideo `json:"dis_videos"`

	ResamplingType string `json:"resampling_type,omitempty"`
	QualityWidth   int    `json:"quality_width,omitempty"`
	QualityHeight  int    `json:"quality_height,omitempty"`
}

// Parse validates raw JSON against the embedded schema and decodes it
// into a Dataset. Schema validation runs before the decode's own
// structural checks ever matter, so malformed input always surfaces as a
// SchemaError.
func Parse(data []byte) (*Dataset, error) {
	if err := Validate(data); err != nil {
		return nil, qerrors.NewSchemaError("dataset failed schema validation", err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, qerrors.NewSchemaError("dataset JSON decode failed", err)
	}
	return &ds, nil
}
