package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := NewRecord()
	rec.Set(10, BytesFromText("alice"))
	rec.Set(11, BytesFromInt64(PropertyTypeInteger, -42, 4))
	rec.Version = 7

	encoded := rec.Encode(true, false)
	decoded, err := DecodeRecord(encoded, true, false)
	require.NoError(t, err)

	assert.Equal(t, VersionId(7), decoded.Version)
	assert.Equal(t, "alice", string(decoded.Get(10).Data))
	assert.Equal(t, rec.Get(11).Data, decoded.Get(11).Data)
}

func TestRecordEncodeDecodeEdgeWithSrcDst(t *testing.T) {
	rec := NewRecord()
	rec.SetSrcDst(RecordID{ClassID: 3, PositionID: 1}, RecordID{ClassID: 3, PositionID: 2})
	rec.Set(20, BytesFromText("knows"))
	rec.Version = 1

	encoded := rec.Encode(true, true)
	decoded, err := DecodeRecord(encoded, true, true)
	require.NoError(t, err)

	assert.Equal(t, RecordID{ClassID: 3, PositionID: 1}, decoded.Src)
	assert.Equal(t, RecordID{ClassID: 3, PositionID: 2}, decoded.Dst)
	assert.Equal(t, "knows", string(decoded.Get(20).Data))
}

func TestRecordLargePropertyValue(t *testing.T) {
	big := make([]byte, 500)
	for i := range big {
		big[i] = byte(i)
	}
	rec := NewRecord()
	rec.Set(5, BytesFromBlob(big))

	encoded := rec.Encode(false, false)
	decoded, err := DecodeRecord(encoded, false, false)
	require.NoError(t, err)
	assert.Equal(t, big, decoded.Get(5).Data)
}

func TestRecordGetMissingPropertyReturnsEmpty(t *testing.T) {
	rec := NewRecord()
	assert.True(t, rec.Get(99).Empty())
}

func TestRecordIDStringRoundTrip(t *testing.T) {
	rid := RecordID{ClassID: 12, PositionID: 345}
	s := rid.String()
	assert.Equal(t, "12:345", s)

	parsed, err := ParseRecordID(s)
	require.NoError(t, err)
	assert.Equal(t, rid, parsed)
}

func TestParseRecordIDMalformed(t *testing.T) {
	_, err := ParseRecordID("not-a-record-id")
	assert.Error(t, err)
}
