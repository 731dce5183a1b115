package cohesion

import (
	"encoding/json"
	"math"
)

// Diagnostic is one named intermediate quantity behind a metric value.
type Diagnostic struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Diagnostics is an ordered list of diagnostics. The first entry is always
// "methods", the number of qualifying methods.
type Diagnostics []Diagnostic

// Get returns the diagnostic with the given name.
func (d Diagnostics) Get(name string) (float64, bool) {
	for _, x := range d {
		if x.Name == name {
			return x.Value, true
		}
	}
	return 0, false
}

func diag(methods int, rest ...Diagnostic) Diagnostics {
	return append(Diagnostics{{Name: "methods", Value: float64(methods)}}, rest...)
}

func d(name string, v int) Diagnostic {
	return Diagnostic{Name: name, Value: float64(v)}
}

// Result is the outcome of one metric on one class. Value may be NaN for
// the degenerate inputs where a metric is undefined.
type Result struct {
	Value       float64     `json:"value" yaml:"value"`
	Diagnostics Diagnostics `json:"diagnostics" yaml:"diagnostics"`
}

// Defined reports whether the value is a number.
func (r Result) Defined() bool {
	return !math.IsNaN(r.Value)
}

// MarshalJSON encodes NaN as null since JSON has no literal for it.
func (r Result) MarshalJSON() ([]byte, error) {
	var v *float64
	if r.Defined() {
		v = &r.Value
	}
	return json.Marshal(struct {
		Value       *float64    `json:"value"`
		Diagnostics Diagnostics `json:"diagnostics"`
	}{v, r.Diagnostics})
}

// UnmarshalJSON reverses MarshalJSON, turning a null value back into NaN.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value       *float64    `json:"value"`
		Diagnostics Diagnostics `json:"diagnostics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Value = math.NaN()
	if raw.Value != nil {
		r.Value = *raw.Value
	}
	r.Diagnostics = raw.Diagnostics
	return nil
}
