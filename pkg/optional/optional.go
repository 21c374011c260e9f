// Package optional provides JSON fields that distinguish between a value,
// an explicit null, and an absent key. A plain *float64 collapses the last
// two, which is not good enough for the price-override contract: an omitted
// field keeps the stored value while a null clears it.
package optional

import "encoding/json"

// Float64 is a tri-state JSON number field.
//
// Present reports whether the key appeared in the payload at all.
// Valid reports whether it carried a non-null value.
type Float64 struct {
	Present bool
	Valid   bool
	Value   float64
}

// Of returns a present, non-null Float64.
func Of(v float64) Float64 {
	return Float64{Present: true, Valid: true, Value: v}
}

// Null returns a present but explicitly null Float64.
func Null() Float64 {
	return Float64{Present: true}
}

// UnmarshalJSON is only invoked by encoding/json when the key exists,
// so Present is always true here; absent keys keep the zero value.
func (f *Float64) UnmarshalJSON(data []byte) error {
	f.Present = true
	if string(data) == "null" {
		f.Valid = false
		f.Value = 0
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

func (f Float64) MarshalJSON() ([]byte, error) {
	if !f.Present || !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the value as *float64, nil when null or absent.
func (f Float64) Ptr() *float64 {
	if !f.Present || !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}
