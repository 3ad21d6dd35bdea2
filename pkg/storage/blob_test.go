package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobAppendAndRetrieve(t *testing.T) {
	b := NewBlob(16)
	end := b.Append([]byte("hello"))
	assert.Equal(t, uint32(5), end)

	end = b.Append([]byte("world"))
	assert.Equal(t, uint32(10), end)
	assert.Equal(t, uint32(10), b.Size())

	got, end := b.Retrieve(0, 10)
	assert.Equal(t, []byte("helloworld"), got)
	assert.Equal(t, uint32(10), end)
}

func TestBlobFrom(t *testing.T) {
	b := BlobFrom([]byte("abc"), 8)
	assert.Equal(t, uint32(8), b.Capacity())
	assert.Equal(t, uint32(8), b.Size())
	got, _ := b.Retrieve(0, 3)
	assert.Equal(t, []byte("abc"), got)
}

func TestBlobAppendPastCapacityPanics(t *testing.T) {
	b := NewBlob(4)
	assert.Panics(t, func() {
		b.Append([]byte("toolong"))
	})
}

func TestBlobRetrievePastCapacityPanics(t *testing.T) {
	b := NewBlob(4)
	assert.Panics(t, func() {
		b.Retrieve(0, 8)
	})
}

func TestBlobConcat(t *testing.T) {
	a := BlobFrom([]byte("ab"), 2)
	b := BlobFrom([]byte("cd"), 2)
	c := a.Concat(b)
	require.Equal(t, uint32(4), c.Capacity())
	got, _ := c.Retrieve(0, 4)
	assert.Equal(t, []byte("abcd"), got)
}

func TestBlobOverwriteWithinSize(t *testing.T) {
	b := NewBlob(8)
	b.Append([]byte("aaaaaaaa"))
	b.Overwrite([]byte("BB"), 2)
	got, _ := b.Retrieve(0, 8)
	assert.Equal(t, []byte("aaBBaaaa"), got)
	assert.Equal(t, uint32(8), b.Size())
}

func TestBlobOverwritePastSizePanics(t *testing.T) {
	b := NewBlob(8)
	b.Append([]byte("aaaa"))
	assert.Panics(t, func() {
		b.Overwrite([]byte("BB"), 3)
	})
}

func TestBlobUpdateGrowsSize(t *testing.T) {
	b := NewBlob(8)
	b.Append([]byte("aaaa"))
	b.Update([]byte("BBBB"), 4)
	assert.Equal(t, uint32(8), b.Size())
	got, _ := b.Retrieve(0, 8)
	assert.Equal(t, []byte("aaaaBBBB"), got)
}

func TestBlobUpdatePastCapacityPanics(t *testing.T) {
	b := NewBlob(4)
	b.Append([]byte("aaaa"))
	assert.Panics(t, func() {
		b.Update([]byte("BB"), 3)
	})
}
