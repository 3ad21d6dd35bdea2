package convert

import (
	"testing"

	"github.com/nogdb/nogdb/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToIntRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		bytes    storage.Bytes
		expected int64
	}{
		{"positive byte width", storage.BytesFromInt64(storage.PropertyTypeTinyInt, 42, 1), 42},
		{"negative byte width", storage.BytesFromInt64(storage.PropertyTypeTinyInt, -1, 1), -1},
		{"negative word width", storage.BytesFromInt64(storage.PropertyTypeInteger, -12345, 4), -12345},
		{"bigint width", storage.BytesFromInt64(storage.PropertyTypeBigInt, -9000000000, 8), -9000000000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToInt(tc.bytes)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestToIntMissingProperty(t *testing.T) {
	_, err := ToInt(storage.Bytes{})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNoExistProperty)
}

func TestToTextMissingPropertyReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", ToText(storage.Bytes{}))
}

func TestToReal(t *testing.T) {
	got, err := ToReal(storage.BytesFromFloat64(3.5))
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)
}

func TestToBlob(t *testing.T) {
	b := storage.BytesFromBlob([]byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, ToBlob(b))
}
