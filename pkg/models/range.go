package models

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Bound is one end of a Range. A nil Bound leaves that end open.
type Bound interface {
	BoundValue() any
	Included() bool
}

type BoundIncluded struct {
	Value any
}

func (bi BoundIncluded) BoundValue() any { return bi.Value }
func (bi BoundIncluded) Included() bool  { return true }

func (bi BoundIncluded) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(cbor.Tag{Number: uint64(BoundIncludedTag), Content: bi.Value})
}

func (bi *BoundIncluded) UnmarshalCBOR(data []byte) error {
	v, err := unmarshalTagged(data, BoundIncludedTag)
	if err != nil {
		return err
	}
	bi.Value = v
	return nil
}

type BoundExcluded struct {
	Value any
}

func (be BoundExcluded) BoundValue() any { return be.Value }
func (be BoundExcluded) Included() bool  { return false }

func (be BoundExcluded) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(cbor.Tag{Number: uint64(BoundExcludedTag), Content: be.Value})
}

func (be *BoundExcluded) UnmarshalCBOR(data []byte) error {
	v, err := unmarshalTagged(data, BoundExcludedTag)
	if err != nil {
		return err
	}
	be.Value = v
	return nil
}

// Included returns an inclusive bound at v.
func Included(v any) Bound { return BoundIncluded{Value: v} }

// Excluded returns an exclusive bound at v.
func Excluded(v any) Bound { return BoundExcluded{Value: v} }

// Range is the id part of a record range such as person:1..=5.
type Range struct {
	Begin Bound
	End   Bound
}

// GetJoinString returns the operator between the two ends: "..", ">..", "..=" or ">..=".
func (r Range) GetJoinString() string {
	joinStr := ""

	if r.Begin != nil && !r.Begin.Included() {
		joinStr += ">"
	}
	joinStr += ".."
	if r.End != nil && r.End.Included() {
		joinStr += "="
	}

	return joinStr
}

func (r Range) String() string {
	beginStr := ""
	endStr := ""
	if r.Begin != nil {
		beginStr = formatID(r.Begin.BoundValue())
	}
	if r.End != nil {
		endStr = formatID(r.End.BoundValue())
	}
	return fmt.Sprintf("%s%s%s", beginStr, r.GetJoinString(), endStr)
}

// Contains reports whether id falls inside the range, using cmp to order ids.
func (r Range) Contains(id any, cmp func(a, b any) int) bool {
	if r.Begin != nil {
		c := cmp(id, r.Begin.BoundValue())
		if c < 0 || (c == 0 && !r.Begin.Included()) {
			return false
		}
	}
	if r.End != nil {
		c := cmp(id, r.End.BoundValue())
		if c > 0 || (c == 0 && !r.End.Included()) {
			return false
		}
	}
	return true
}

func boundOrNone(b Bound) any {
	if b == nil {
		return None
	}
	return b
}

func (r Range) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(cbor.Tag{
		Number:  uint64(RangeTag),
		Content: []interface{}{boundOrNone(r.Begin), boundOrNone(r.End)},
	})
}

func (r *Range) UnmarshalCBOR(data []byte) error {
	content, err := unmarshalTagged(data, RangeTag)
	if err != nil {
		return err
	}
	ends, ok := content.([]any)
	if !ok || len(ends) != 2 {
		return fmt.Errorf("range content must be a 2 element array, got %T", content)
	}

	toBound := func(v any) (Bound, error) {
		switch b := v.(type) {
		case nil, CustomNil:
			return nil, nil
		case BoundIncluded:
			return b, nil
		case BoundExcluded:
			return b, nil
		}
		return nil, fmt.Errorf("unexpected range bound %T", v)
	}

	if r.Begin, err = toBound(ends[0]); err != nil {
		return err
	}
	r.End, err = toBound(ends[1])
	return err
}

// RecordRange selects the records of Table whose ids fall inside the range.
// It is sent as a RecordID whose id is a Range.
type RecordRange struct {
	Table string
	Range
}

// NewRecordRange builds a range over table. Either bound may be nil.
func NewRecordRange(table string, begin, end Bound) RecordRange {
	return RecordRange{Table: table, Range: Range{Begin: begin, End: end}}
}

func (rr RecordRange) RecordID() RecordID {
	return RecordID{Table: rr.Table, ID: rr.Range}
}

func (rr RecordRange) String() string {
	return rr.RecordID().String()
}

func (rr RecordRange) MarshalCBOR() ([]byte, error) {
	return rr.RecordID().MarshalCBOR()
}

func (rr *RecordRange) UnmarshalCBOR(data []byte) error {
	var id RecordID
	if err := id.UnmarshalCBOR(data); err != nil {
		return err
	}
	rng, ok := id.ID.(Range)
	if !ok {
		return fmt.Errorf("record %s is not a range", id.String())
	}
	rr.Table = id.Table
	rr.Range = rng
	return nil
}

func unmarshalTagged(data []byte, want CustomCBORTag) (any, error) {
	dec := getCborDecoder()

	var tag cbor.RawTag
	if err := dec.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	if tag.Number != uint64(want) {
		return nil, fmt.Errorf("unexpected tag number: got %d, want %d", tag.Number, want)
	}

	var v any
	if err := dec.Unmarshal(tag.Content, &v); err != nil {
		return nil, err
	}
	return v, nil
}
