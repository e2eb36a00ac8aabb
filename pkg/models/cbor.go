package models

import (
	"io"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/surrealkit/surrealdb.go/internal/codec"
)

type CustomCBORTag uint64

var (
	NoneTag          CustomCBORTag = 6
	TableNameTag     CustomCBORTag = 7
	RecordIDTag      CustomCBORTag = 8
	BinaryUUIDTag    CustomCBORTag = 37
	RangeTag         CustomCBORTag = 49
	BoundIncludedTag CustomCBORTag = 50
	BoundExcludedTag CustomCBORTag = 51
)

func registerCborTags() cbor.TagSet {
	customTags := map[CustomCBORTag]interface{}{
		NoneTag:          CustomNil{},
		TableNameTag:     Table(""),
		RecordIDTag:      RecordID{},
		BinaryUUIDTag:    UUID{},
		RangeTag:         Range{},
		BoundIncludedTag: BoundIncluded{},
		BoundExcludedTag: BoundExcluded{},
	}

	tags := cbor.NewTagSet()
	for tag, customType := range customTags {
		err := tags.Add(
			cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
			reflect.TypeOf(customType),
			uint64(tag),
		)
		if err != nil {
			panic(err)
		}
	}

	return tags
}

var (
	modesOnce sync.Once
	encMode   cbor.EncMode
	decMode   cbor.DecMode
)

func initModes() {
	tags := registerCborTags()

	// Deterministic map order makes encoded ids usable as storage keys.
	em, err := cbor.EncOptions{
		Sort:    cbor.SortCoreDeterministic,
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncModeWithTags(tags)
	if err != nil {
		panic(err)
	}

	dm, err := cbor.DecOptions{
		TimeTagToAny:   cbor.TimeTagToTime,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSignedOrFail,
	}.DecModeWithTags(tags)
	if err != nil {
		panic(err)
	}

	encMode, decMode = em, dm
}

func getCborEncoder() cbor.EncMode {
	modesOnce.Do(initModes)
	return encMode
}

func getCborDecoder() cbor.DecMode {
	modesOnce.Do(initModes)
	return decMode
}

type CborMarshaler struct {
}

func (c CborMarshaler) Marshal(v interface{}) ([]byte, error) {
	return getCborEncoder().Marshal(v)
}

func (c CborMarshaler) NewEncoder(w io.Writer) codec.Encoder {
	return getCborEncoder().NewEncoder(w)
}

type CborUnmarshaler struct {
}

func (c CborUnmarshaler) Unmarshal(data []byte, dst interface{}) error {
	return getCborDecoder().Unmarshal(data, dst)
}

func (c CborUnmarshaler) NewDecoder(r io.Reader) codec.Decoder {
	return getCborDecoder().NewDecoder(r)
}

// CborCodec is the wire codec shared by every transport and the embedded
// engine's storage layer. Integers decode as int64 and maps as map[string]any.
type CborCodec struct {
	CborMarshaler
	CborUnmarshaler
}

var _ codec.Codec = CborCodec{}

