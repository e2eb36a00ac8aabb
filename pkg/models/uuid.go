package models

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofrs/uuid"
)

// UUID identifies live queries and records. It travels as CBOR tag 37.
type UUID struct {
	uuid.UUID
}

// NewUUID returns a random (version 4) UUID.
func NewUUID() (UUID, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return UUID{}, err
	}
	return UUID{UUID: u}, nil
}

// ParseUUID parses the canonical textual form of a UUID.
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.FromString(s)
	if err != nil {
		return UUID{}, err
	}
	return UUID{UUID: u}, nil
}

// MarshalCBOR implements cbor.Marshaler interface for UUID
func (u UUID) MarshalCBOR() ([]byte, error) {
	return getCborEncoder().Marshal(cbor.Tag{
		Number:  uint64(BinaryUUIDTag),
		Content: u.Bytes(),
	})
}

// UnmarshalCBOR implements cbor.Unmarshaler interface for UUID
func (u *UUID) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return err
	}

	if tag.Number != uint64(BinaryUUIDTag) {
		return fmt.Errorf("unexpected tag number for UUID: got %d, want %d", tag.Number, BinaryUUIDTag)
	}

	bytes, ok := tag.Content.([]byte)
	if !ok {
		return fmt.Errorf("UUID tag content must be byte string, got %T", tag.Content)
	}

	if len(bytes) != uuid.Size {
		return fmt.Errorf("UUID must be exactly %d bytes, got %d", uuid.Size, len(bytes))
	}

	parsed, err := uuid.FromBytes(bytes)
	if err != nil {
		return fmt.Errorf("failed to parse UUID bytes: %w", err)
	}

	u.UUID = parsed
	return nil
}
