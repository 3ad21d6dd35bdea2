package convert

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nogdb/nogdb/pkg/storage"
)

// Bytes-accessor errors mirror record.cpp's getTinyInt/getSmallInt/...
// family: every typed numeric accessor fails on an empty (absent) property,
// rather than silently returning a zero value. ToText and ToBlob do not
// fail; they return an empty value.
var errNoExistProperty = storage.ErrNoExistProperty

func requireNonEmpty(b storage.Bytes) error {
	if b.Empty() {
		return fmt.Errorf("%w", errNoExistProperty)
	}
	return nil
}

func uintFromBytes(data []byte) uint64 {
	var full [8]byte
	copy(full[8-len(data):], data)
	return binary.BigEndian.Uint64(full[:])
}

// ToIntU decodes an unsigned integer property value (tinyint_u, smallint_u,
// integer_u, bigint_u widths are all accepted).
func ToIntU(b storage.Bytes) (uint64, error) {
	if err := requireNonEmpty(b); err != nil {
		return 0, err
	}
	return uintFromBytes(b.Data), nil
}

// ToInt decodes a signed integer property value, sign-extending from the
// value's actual stored width.
func ToInt(b storage.Bytes) (int64, error) {
	if err := requireNonEmpty(b); err != nil {
		return 0, err
	}
	width := len(b.Data)
	u := uintFromBytes(b.Data)
	shift := uint(64 - width*8)
	return int64(u<<shift) >> shift, nil
}

// ToBigIntU decodes a 64-bit unsigned integer property value.
func ToBigIntU(b storage.Bytes) (uint64, error) {
	return ToIntU(b)
}

// ToBigInt decodes a 64-bit signed integer property value.
func ToBigInt(b storage.Bytes) (int64, error) {
	return ToInt(b)
}

// ToReal decodes an IEEE-754 double property value.
func ToReal(b storage.Bytes) (float64, error) {
	if err := requireNonEmpty(b); err != nil {
		return 0, err
	}
	if len(b.Data) != 8 {
		return 0, fmt.Errorf("%w: real property must be 8 bytes, got %d", storage.ErrInternal, len(b.Data))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b.Data)), nil
}

// ToText decodes a text property value. Unlike the numeric accessors, a
// missing property decodes to the empty string rather than an error,
// matching record.cpp's getText.
func ToText(b storage.Bytes) string {
	return string(b.Data)
}

// ToBlob returns the raw bytes of a blob property value.
func ToBlob(b storage.Bytes) []byte {
	return append([]byte(nil), b.Data...)
}
