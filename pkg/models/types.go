package models

import (
	"github.com/fxamacker/cbor/v2"
)

// Table names a whole table as a statement target. It travels as CBOR tag 7.
type Table string

func (t Table) String() string {
	return string(t)
}

// CustomNil is SurrealDB's NONE: the absence of a value, distinct from NULL.
type CustomNil struct {
}

func (c CustomNil) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(cbor.Tag{
		Number:  uint64(NoneTag),
		Content: nil,
	})
}

func (c *CustomNil) UnmarshalCBOR(data []byte) error {
	*c = CustomNil{}
	return nil
}

func (c CustomNil) String() string {
	return "NONE"
}

var None = CustomNil{}

// IsNone reports whether v is NONE or a Go nil.
func IsNone(v any) bool {
	switch v.(type) {
	case nil, CustomNil, *CustomNil:
		return true
	}
	return false
}
