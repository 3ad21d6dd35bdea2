package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	o := Options{Path: "/tmp/db"}.WithDefaults()
	assert.Equal(t, uint64(defaultMaxDBs), o.MaxDBs)
	assert.Equal(t, uint64(defaultMapSize), o.MapSize)
	assert.Equal(t, uint(defaultMaxReaders), o.MaxReaders)
}

func TestValidateEmptyPath(t *testing.T) {
	o := Options{}.WithDefaults()
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path must not be empty")
}

func TestValidateMapSizeTooSmall(t *testing.T) {
	o := Options{Path: "/tmp/db", MapSize: 100}.WithDefaults()
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map size")
}

func TestValidateOK(t *testing.T) {
	o := Options{Path: "/tmp/db"}.WithDefaults()
	assert.NoError(t, o.Validate())
}
