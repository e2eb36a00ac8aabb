package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CborTestSuite struct {
	suite.Suite
	codec CborCodec
}

func TestCborTestSuite(t *testing.T) {
	suite.Run(t, new(CborTestSuite))
}

func (s *CborTestSuite) roundTrip(v any) any {
	data, err := s.codec.Marshal(v)
	s.Require().NoError(err)

	var out any
	s.Require().NoError(s.codec.Unmarshal(data, &out))
	return out
}

func (s *CborTestSuite) TestRecordIDDecodesIntoAny() {
	out := s.roundTrip(NewRecordID("person", "tobie"))
	s.Equal(RecordID{Table: "person", ID: "tobie"}, out)
}

func (s *CborTestSuite) TestRecordIDIntegerIDIsInt64() {
	out := s.roundTrip(NewRecordID("person", 42))
	s.Equal(RecordID{Table: "person", ID: int64(42)}, out)
}

func (s *CborTestSuite) TestRecordIDTypedDecode() {
	data, err := s.codec.Marshal(NewRecordID("person", []any{"a", int64(1)}))
	s.Require().NoError(err)

	var id RecordID
	s.Require().NoError(s.codec.Unmarshal(data, &id))
	s.Equal("person", id.Table)
	s.Equal([]any{"a", int64(1)}, id.ID)
}

func (s *CborTestSuite) TestTableTag() {
	out := s.roundTrip(Table("person"))
	s.Equal(Table("person"), out)
}

func (s *CborTestSuite) TestNone() {
	out := s.roundTrip(None)
	s.Equal(None, out)
	s.True(IsNone(out))
}

func (s *CborTestSuite) TestUUID() {
	u, err := NewUUID()
	s.Require().NoError(err)

	out := s.roundTrip(u)
	s.Equal(u, out)

	parsed, err := ParseUUID(u.String())
	s.Require().NoError(err)
	s.Equal(u, parsed)
}

func (s *CborTestSuite) TestRecordRange() {
	rr := NewRecordRange("person", Included(int64(1)), Excluded(int64(5)))
	out := s.roundTrip(rr)

	id, ok := out.(RecordID)
	s.Require().True(ok, "got %T", out)
	s.True(id.IsRange())
	s.Equal(rr.RecordID(), id)

	data, err := s.codec.Marshal(rr)
	s.Require().NoError(err)
	var typed RecordRange
	s.Require().NoError(s.codec.Unmarshal(data, &typed))
	s.Equal(rr, typed)
}

func (s *CborTestSuite) TestOpenRange() {
	rr := NewRecordRange("person", nil, Included("m"))
	out := s.roundTrip(rr)
	s.Equal(rr.RecordID(), out)
}

func (s *CborTestSuite) TestMapsDecodeWithStringKeys() {
	out := s.roundTrip(map[string]any{"name": "tobie", "tags": []any{"a"}})
	s.Equal(map[string]any{"name": "tobie", "tags": []any{"a"}}, out)
}

func (s *CborTestSuite) TestTime() {
	now := time.Date(2024, 3, 1, 12, 30, 0, 123, time.UTC)
	out := s.roundTrip(now)
	got, ok := out.(time.Time)
	s.Require().True(ok, "got %T", out)
	s.True(now.Equal(got))
}

func TestParseRecordID(t *testing.T) {
	id, err := ParseRecordID("person:tobie")
	require.NoError(t, err)
	assert.Equal(t, &RecordID{Table: "person", ID: "tobie"}, id)

	id, err = ParseRecordID("event:2024:01")
	require.NoError(t, err)
	assert.Equal(t, "2024:01", id.ID)

	_, err = ParseRecordID("person")
	assert.Error(t, err)
}

func TestRangeContains(t *testing.T) {
	cmp := func(a, b any) int { return a.(int) - b.(int) }

	r := Range{Begin: Included(1), End: Excluded(5)}
	assert.True(t, r.Contains(1, cmp))
	assert.True(t, r.Contains(4, cmp))
	assert.False(t, r.Contains(5, cmp))
	assert.False(t, r.Contains(0, cmp))

	open := Range{Begin: Excluded(1)}
	assert.False(t, open.Contains(1, cmp))
	assert.True(t, open.Contains(1000, cmp))
}
