package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Label group keys requested from the extraction capability.
const (
	LabelDistrict        = "district"
	LabelGridReference   = "Grid reference"
	LabelDate            = "Date"
	LabelAltitude        = "Altitude"
	LabelCollectorName   = "collector_name"
	LabelCollectorNumber = "collector_number"
	LabelName            = "name"
	LabelDescription     = "description"
	LabelPlantID         = "plant_id"
)

// Extracted metadata group keys.
const (
	MetaHabitat               = "Habitat"
	MetaGeographicInformation = "Geographic_information"
	MetaFloweringState        = "Flowering state"
	MetaPhenotype             = "Phenotype"
)

// LabelKeys lists the label fields in prompt order.
var LabelKeys = []string{
	LabelDistrict,
	LabelGridReference,
	LabelDate,
	LabelAltitude,
	LabelCollectorName,
	LabelCollectorNumber,
	LabelName,
	LabelDescription,
	LabelPlantID,
}

// MetadataKeys lists the extracted metadata fields in prompt order.
var MetadataKeys = []string{
	MetaHabitat,
	MetaGeographicInformation,
	MetaFloweringState,
	MetaPhenotype,
}

// Fields holds one group of transcribed values. An empty string means the
// field was not present on the label.
type Fields map[string]string

// UnmarshalJSON accepts string values, null and bare scalars. Models
// occasionally return numbers for altitude or collector numbers.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Fields, len(raw))
	for key, value := range raw {
		trimmed := bytes.TrimSpace(value)
		switch {
		case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
			out[key] = ""
		case trimmed[0] == '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			out[key] = s
		case trimmed[0] == '{' || trimmed[0] == '[':
			return fmt.Errorf("field %q: expected a string value", key)
		default:
			out[key] = string(trimmed)
		}
	}
	*f = out
	return nil
}

// fieldOrder is the position of every known key in prompt order, label
// keys first.
var fieldOrder = func() map[string]int {
	order := make(map[string]int, len(LabelKeys)+len(MetadataKeys))
	for i, key := range append(append([]string{}, LabelKeys...), MetadataKeys...) {
		order[key] = i
	}
	return order
}()

// MarshalJSON writes known keys in prompt order followed by any other keys
// in name order.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iKnown := fieldOrder[keys[i]]
		oj, jKnown := fieldOrder[keys[j]]
		switch {
		case iKnown && jKnown:
			return oi < oj
		case iKnown != jKnown:
			return iKnown
		default:
			return keys[i] < keys[j]
		}
	})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(key); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(f[key]); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Filled counts the fields with a non-empty value.
func (f Fields) Filled() int {
	n := 0
	for _, v := range f {
		if v != "" {
			n++
		}
	}
	return n
}

// Record is the structured transcription of one label image.
type Record struct {
	Label     Fields `json:"label"`
	Metadata  Fields `json:"extracted_metadata"`
	ImagePath string `json:"image_path,omitempty"`
}

// PlantID returns the identifier field of the label group as transcribed.
// Surrounding whitespace is kept so that sanitizing maps it to underscores
// like any other non-word character.
func (r *Record) PlantID() string {
	if r == nil || r.Label == nil {
		return ""
	}
	return r.Label[LabelPlantID]
}

// SetPlantID stores the identifier in the label group.
func (r *Record) SetPlantID(id string) {
	if r.Label == nil {
		r.Label = Fields{}
	}
	r.Label[LabelPlantID] = id
}
