package domain

import (
	"fmt"
	"math"
	"strconv"
)

// MissingValue is the literal text the Palmer penguins dataset uses for an
// absent measurement or label.
const MissingValue = "NA"

// ColumnCount is the number of positional columns in a specimen row.
const ColumnCount = 9

// Column names in positional order. Column 0 is the specimen identifier.
var Columns = [ColumnCount]string{
	"id",
	"species",
	"island",
	"bill_length_mm",
	"bill_depth_mm",
	"flipper_length_mm",
	"body_mass_g",
	"sex",
	"year",
}

// Measurement is a numeric field that may be absent.
type Measurement struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// ParseMeasurement parses raw text into a Measurement. MissingValue yields an
// invalid Measurement and no error.
func ParseMeasurement(raw string) (Measurement, error) {
	if raw == MissingValue {
		return Measurement{}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Measurement{}, fmt.Errorf("parse measurement %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Measurement{}, fmt.Errorf("parse measurement %q: not a finite number", raw)
	}
	return Measurement{Value: v, Valid: true}, nil
}

// Known returns a valid Measurement holding v.
func Known(v float64) Measurement {
	return Measurement{Value: v, Valid: true}
}

// String renders the measurement the way it appears in the source data.
func (m Measurement) String() string {
	if !m.Valid {
		return MissingValue
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// Label is a categorical text field that may be absent. Present values are
// kept verbatim, so "male" and "Male" are different labels.
type Label struct {
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

// ParseLabel converts raw text into a Label.
func ParseLabel(raw string) Label {
	if raw == MissingValue {
		return Label{}
	}
	return Label{Value: raw, Valid: true}
}

// Text returns a valid Label holding s.
func Text(s string) Label {
	return Label{Value: s, Valid: true}
}

// String renders the label the way it appears in the source data.
func (l Label) String() string {
	if !l.Valid {
		return MissingValue
	}
	return l.Value
}

// Record is one penguin specimen row.
type Record struct {
	ID              string      `json:"id"`
	Species         Label       `json:"species"`
	Island          Label       `json:"island"`
	BillLengthMM    Measurement `json:"bill_length_mm"`
	BillDepthMM     Measurement `json:"bill_depth_mm"`
	FlipperLengthMM Measurement `json:"flipper_length_mm"`
	BodyMassG       Measurement `json:"body_mass_g"`
	Sex             Label       `json:"sex"`
	Year            string      `json:"year"`
}

// Collection maps specimen identifiers to records and remembers the order in
// which identifiers were first inserted.
type Collection struct {
	order []string
	byID  map[string]Record
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{byID: make(map[string]Record)}
}

// CollectionOf builds a collection from records in order. Later records with a
// repeated identifier replace earlier ones.
func CollectionOf(records ...Record) *Collection {
	c := NewCollection()
	for _, r := range records {
		c.Put(r)
	}
	return c
}

// Put stores r under r.ID. If the identifier is already present the record is
// replaced in place, keeping its original position, and Put reports true.
func (c *Collection) Put(r Record) (replaced bool) {
	if _, ok := c.byID[r.ID]; ok {
		c.byID[r.ID] = r
		return true
	}
	c.order = append(c.order, r.ID)
	c.byID[r.ID] = r
	return false
}

// Get returns the record stored under id.
func (c *Collection) Get(id string) (Record, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Has reports whether id is present.
func (c *Collection) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Len returns the number of distinct identifiers.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// IDs returns identifiers in insertion order.
func (c *Collection) IDs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Records returns the records in insertion order.
func (c *Collection) Records() []Record {
	if c == nil {
		return nil
	}
	out := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
