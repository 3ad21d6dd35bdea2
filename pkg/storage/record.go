package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nogdb/nogdb/pkg/pool"
)

// recordHeaderVersionSize is the width of the optional leading version
// prefix stamped on every stored record.
const recordHeaderVersionSize = 8

// recordHeaderEdgeSize is the width of the optional source+destination
// RecordID prefix stamped on edge records: two 6-byte (2-byte class id +
// 4-byte position id) endpoints.
const recordHeaderEdgeSize = 12

// Bytes is a single property's raw wire value plus its declared type, the
// unit the record codec encodes/decodes and pkg/convert interprets.
type Bytes struct {
	Type PropertyType
	Data []byte
}

// Empty reports whether the property carries no value (absent from the
// record).
func (b Bytes) Empty() bool {
	return len(b.Data) == 0
}

// Record is a decoded set of property-id -> value pairs, split between
// pseudo ("basic") properties and user-defined ones exactly as the original
// engine's Record::isBasicInfo split does.
type Record struct {
	Properties      map[PropertyId]Bytes
	BasicProperties map[PropertyId]Bytes
	Version         VersionId
	Src, Dst        RecordID
	Depth           uint32
	hasSrcDst       bool
}

// NewRecord returns an empty record ready to accept properties.
func NewRecord() *Record {
	return &Record{
		Properties:      make(map[PropertyId]Bytes),
		BasicProperties: make(map[PropertyId]Bytes),
	}
}

func isBasicProperty(id PropertyId) bool {
	return id < InitNumProperties
}

// Set stores a property value, routing pseudo-properties into
// BasicProperties automatically.
func (r *Record) Set(id PropertyId, v Bytes) {
	if isBasicProperty(id) {
		r.BasicProperties[id] = v
		return
	}
	r.Properties[id] = v
}

// Get returns the value stored for id, or an empty Bytes if absent —
// mirroring Record::get, which never errors on a missing property.
func (r *Record) Get(id PropertyId) Bytes {
	if isBasicProperty(id) {
		if v, ok := r.BasicProperties[id]; ok {
			return v
		}
		return Bytes{}
	}
	if v, ok := r.Properties[id]; ok {
		return v
	}
	return Bytes{}
}

// Unset removes a property.
func (r *Record) Unset(id PropertyId) {
	if isBasicProperty(id) {
		delete(r.BasicProperties, id)
		return
	}
	delete(r.Properties, id)
}

// SetSrcDst marks this as an edge record carrying the given endpoints.
func (r *Record) SetSrcDst(src, dst RecordID) {
	r.Src, r.Dst = src, dst
	r.hasSrcDst = true
}

// Size returns the number of user-defined properties set.
func (r *Record) Size() int {
	return len(r.Properties)
}

// Empty reports whether the record has no user-defined properties.
func (r *Record) Empty() bool {
	return len(r.Properties) == 0
}

// --- wire encoding ---
//
// Each property block is: a 2-byte property id, a 1-byte type tag, then a
// size-prefixed value. Values shorter than 128 bytes use a 1-byte size
// header holding size<<1 (low bit clear); values of 128 bytes or more use a
// 4-byte little-endian header whose low bit is set and whose remaining bits
// hold the size, i.e. (size<<1)|1. The flag bit is therefore always in the
// first size byte, which is how the decoder tells the two forms apart.
//
// The whole blob is optionally preceded by an 8-byte version and, for edge
// classes, a further 12-byte (6-byte src + 6-byte dst RecordID) prefix.

func putPropertyBlock(buf []byte, id PropertyId, v Bytes) []byte {
	var idBuf [2]byte
	binary.BigEndian.PutUint16(idBuf[:], uint16(id))
	buf = append(buf, idBuf[:]...)
	buf = append(buf, byte(v.Type))
	size := uint32(len(v.Data))
	if size < 128 {
		buf = append(buf, byte(size<<1))
	} else {
		var sizeBuf [4]byte
		binary.LittleEndian.PutUint32(sizeBuf[:], (size<<1)|1)
		buf = append(buf, sizeBuf[:]...)
	}
	buf = append(buf, v.Data...)
	return buf
}

func readPropertyBlock(buf []byte) (id PropertyId, v Bytes, consumed int, err error) {
	if len(buf) < 4 {
		return 0, Bytes{}, 0, fmt.Errorf("%w: truncated property block header", ErrInternal)
	}
	id = PropertyId(binary.BigEndian.Uint16(buf[0:2]))
	typ := PropertyType(buf[2])
	offset := 3
	first := buf[offset]
	var size uint32
	if first&0x01 == 0 {
		// 1-byte header: low bit clear, size held in the upper seven bits.
		size = uint32(first >> 1)
		offset++
	} else {
		if len(buf) < offset+4 {
			return 0, Bytes{}, 0, fmt.Errorf("%w: truncated property block size", ErrInternal)
		}
		raw := binary.LittleEndian.Uint32(buf[offset : offset+4])
		size = raw >> 1
		offset += 4
	}
	if len(buf) < offset+int(size) {
		return 0, Bytes{}, 0, fmt.Errorf("%w: truncated property block value", ErrInternal)
	}
	data := make([]byte, size)
	copy(data, buf[offset:offset+int(size)])
	return id, Bytes{Type: typ, Data: data}, offset + int(size), nil
}

func putRecordID(buf []byte, id RecordID) []byte {
	var b [6]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(id.ClassID))
	binary.BigEndian.PutUint32(b[2:6], uint32(id.PositionID))
	return append(buf, b[:]...)
}

func readRecordID(buf []byte) RecordID {
	return RecordID{
		ClassID:    ClassId(binary.BigEndian.Uint16(buf[0:2])),
		PositionID: PositionId(binary.BigEndian.Uint32(buf[2:6])),
	}
}

// propertyBlockSize returns the encoded width of id/v's block without
// building it, so Encode can size its blob up front.
func propertyBlockSize(v Bytes) int {
	n := 3 // property id (2 bytes) + type tag (1 byte)
	if len(v.Data) < 128 {
		n++
	} else {
		n += 4
	}
	return n + len(v.Data)
}

// Encode serializes the record into its on-disk form: optional version
// prefix, optional edge src/dst prefix, then the property-block list.
// withVersion/withSrcDst let the caller omit either prefix, e.g. for
// encoding a fresh record that has not yet been assigned a version.
//
// The record is assembled into a single capacity-sized Blob computed from
// the properties up front, so the write never reallocates; each
// property's own block is built in a pkg/pool scratch buffer (reused
// across properties) and then appended into the blob.
func (r *Record) Encode(withVersion, withSrcDst bool) []byte {
	capacity := 0
	if withVersion {
		capacity += recordHeaderVersionSize
	}
	if withSrcDst {
		capacity += recordHeaderEdgeSize
	}
	for _, v := range r.Properties {
		capacity += propertyBlockSize(v)
	}

	blob := NewBlob(uint32(capacity))
	if withVersion {
		var vb [recordHeaderVersionSize]byte
		binary.BigEndian.PutUint64(vb[:], uint64(r.Version))
		blob.Append(vb[:])
	}
	if withSrcDst {
		var eb [recordHeaderEdgeSize]byte
		srcDst := putRecordID(putRecordID(eb[:0], r.Src), r.Dst)
		blob.Append(srcDst)
	}
	scratch := pool.GetByteBuffer()
	for id, v := range r.Properties {
		scratch = scratch[:0]
		scratch = putPropertyBlock(scratch, id, v)
		blob.Append(scratch)
	}
	pool.PutByteBuffer(scratch)
	return blob.Bytes()
}

// DecodeRecord parses the on-disk form produced by Encode. withVersion and
// withSrcDst must match how the record was encoded (determined by the
// owning class's type and the caller's storage convention). The fixed-
// width version and src/dst prefixes are read through a Blob built over
// buf; the variable-width property blocks that follow are framed by their
// own size headers and read directly.
func DecodeRecord(buf []byte, withVersion, withSrcDst bool) (*Record, error) {
	r := NewRecord()
	blob := BlobFrom(buf, uint32(len(buf)))
	offset := uint32(0)
	if withVersion {
		if uint32(len(buf)) < offset+recordHeaderVersionSize {
			return nil, fmt.Errorf("%w: truncated record version prefix", ErrInternal)
		}
		vb, next := blob.Retrieve(offset, recordHeaderVersionSize)
		r.Version = VersionId(binary.BigEndian.Uint64(vb))
		offset = next
	}
	if withSrcDst {
		if uint32(len(buf)) < offset+recordHeaderEdgeSize {
			return nil, fmt.Errorf("%w: truncated record src/dst prefix", ErrInternal)
		}
		srcDst, next := blob.Retrieve(offset, recordHeaderEdgeSize)
		r.Src = readRecordID(srcDst[0:6])
		r.Dst = readRecordID(srcDst[6:12])
		r.hasSrcDst = true
		offset = next
	}
	for int(offset) < len(buf) {
		id, v, n, err := readPropertyBlock(buf[offset:])
		if err != nil {
			return nil, err
		}
		r.Set(id, v)
		offset += uint32(n)
	}
	return r, nil
}

// PatchVersion rewrites the leading version prefix of an already-encoded
// record in place, leaving everything after it untouched. Used when only
// the version stamp changes and re-encoding the whole record (in
// particular re-walking every property) would be wasted work.
func PatchVersion(encoded []byte, version VersionId) []byte {
	b := BlobFrom(encoded, uint32(len(encoded)))
	var vb [recordHeaderVersionSize]byte
	binary.BigEndian.PutUint64(vb[:], uint64(version))
	b.Overwrite(vb[:], 0)
	return b.Bytes()
}

// PatchSrcDst rewrites the src/dst prefix of an already-encoded edge
// record in place, without touching its version or property blocks. The
// encoded buffer must have been produced with withVersion=true,
// withSrcDst=true.
func PatchSrcDst(encoded []byte, src, dst RecordID) []byte {
	b := BlobFrom(encoded, uint32(len(encoded)))
	var eb [recordHeaderEdgeSize]byte
	srcDst := putRecordID(putRecordID(eb[:0], src), dst)
	b.Update(srcDst, recordHeaderVersionSize)
	return b.Bytes()
}

// bytesFromUint64 encodes an unsigned integer value of the given byte width
// in big-endian order, the shared tail of the ToXxx helpers below.
func bytesFromUint64(v uint64, width int) []byte {
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], v)
	return append([]byte(nil), full[8-width:]...)
}

// BytesFromInt64 encodes a signed integer property value.
func BytesFromInt64(typ PropertyType, v int64, width int) Bytes {
	return Bytes{Type: typ, Data: bytesFromUint64(uint64(v), width)}
}

// BytesFromUint64 encodes an unsigned integer property value.
func BytesFromUint64(typ PropertyType, v uint64, width int) Bytes {
	return Bytes{Type: typ, Data: bytesFromUint64(v, width)}
}

// BytesFromFloat64 encodes a real property value as an IEEE-754 double.
func BytesFromFloat64(v float64) Bytes {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return Bytes{Type: PropertyTypeReal, Data: b[:]}
}

// BytesFromText encodes a text property value.
func BytesFromText(v string) Bytes {
	return Bytes{Type: PropertyTypeText, Data: []byte(v)}
}

// BytesFromBlob encodes an opaque blob property value.
func BytesFromBlob(v []byte) Bytes {
	return Bytes{Type: PropertyTypeBlob, Data: append([]byte(nil), v...)}
}
