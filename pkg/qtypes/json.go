// Copyright 2026 qualab. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package qtypes

import (
	"encoding/json"
	"math"
)

// JSONFloat64 is a float64 that marshals NaN and Inf as JSON null, lifted
// from the teacher's pkg/types.JSONFloat64 so degenerate results (a
// stimulus with zero surviving ratings after subject rejection, say)
// still serialize instead of failing encoding/json outright.
type JSONFloat64 float64

// MarshalJSON implements json.Marshaler.
func (f JSONFloat64) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null unmarshals as NaN.
func (f *JSONFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = JSONFloat64(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = JSONFloat64(v)
	return nil
}

// Float64 returns the underlying float64 value.
func (f JSONFloat64) Float64() float64 { return float64(f) }

// IsNaN reports whether f is NaN.
func (f JSONFloat64) IsNaN() bool { return math.IsNaN(float64(f)) }
