package models

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// RecordID identifies a single record, or a range of records when ID is a Range.
type RecordID struct {
	Table string
	ID    any
}

type RecordIDType interface {
	~int | ~int64 | ~string | []any | map[string]any
}

// ParseRecordID splits "table:id" at the first colon. The id part is kept as a string.
func ParseRecordID(idStr string) (*RecordID, error) {
	table, id, found := strings.Cut(idStr, ":")
	if !found || table == "" || id == "" {
		return nil, fmt.Errorf("invalid id string %q. Expected format is 'tablename:identifier'", idStr)
	}
	return &RecordID{Table: table, ID: id}, nil
}

func NewRecordID(tableName string, id any) RecordID {
	return RecordID{Table: tableName, ID: id}
}

// IsRange reports whether the id selects a range of records rather than one.
func (r RecordID) IsRange() bool {
	switch r.ID.(type) {
	case Range, *Range:
		return true
	}
	return false
}

func (r RecordID) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(cbor.Tag{
		Number:  uint64(RecordIDTag),
		Content: []interface{}{r.Table, r.ID},
	})
}

func (r *RecordID) UnmarshalCBOR(data []byte) error {
	dec := getCborDecoder()

	var tag cbor.RawTag
	if err := dec.Unmarshal(data, &tag); err != nil {
		return err
	}
	if tag.Number != uint64(RecordIDTag) {
		return fmt.Errorf("unexpected tag number for RecordID: got %d, want %d", tag.Number, RecordIDTag)
	}

	var parts []cbor.RawMessage
	if err := dec.Unmarshal(tag.Content, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("RecordID must have 2 parts, got %d", len(parts))
	}

	var table string
	if err := dec.Unmarshal(parts[0], &table); err != nil {
		return fmt.Errorf("RecordID table: %w", err)
	}
	var id any
	if err := dec.Unmarshal(parts[1], &id); err != nil {
		return fmt.Errorf("RecordID id: %w", err)
	}

	r.Table = table
	r.ID = id
	return nil
}

func (r *RecordID) SurrealString() string {
	return fmt.Sprintf("r'%s'", r.String())
}
