// Package pool reduces allocation pressure on NogDB's hot encode path:
// every record encode builds its property blocks in a scratch byte buffer,
// and without pooling that buffer is allocated afresh for each record
// written.
package pool

import "sync"

// PoolConfig configures pooling behavior.
type PoolConfig struct {
	// Enabled controls whether pooling is active.
	Enabled bool
	// MaxSize limits the largest buffer capacity kept in the pool; bigger
	// buffers are dropped rather than retained, to bound worst-case memory.
	MaxSize int
}

var globalConfig = PoolConfig{Enabled: true, MaxSize: 1 << 20} // 1MiB

// IsEnabled reports whether pooling is currently active.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// Configure sets the global pool configuration. Should be called before any
// database is opened.
func Configure(cfg PoolConfig) {
	globalConfig = cfg
	initPools()
}

func initPools() {
	byteBufferPool = sync.Pool{
		New: func() any {
			return make([]byte, 0, 256)
		},
	}
}

var byteBufferPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 256)
	},
}

// GetByteBuffer returns a zero-length scratch buffer, reused from the pool
// when pooling is enabled.
func GetByteBuffer() []byte {
	if !globalConfig.Enabled {
		return make([]byte, 0, 256)
	}
	return byteBufferPool.Get().([]byte)[:0]
}

// PutByteBuffer returns buf to the pool, unless it has grown past MaxSize.
func PutByteBuffer(buf []byte) {
	if !globalConfig.Enabled {
		return
	}
	if cap(buf) > globalConfig.MaxSize {
		return
	}
	byteBufferPool.Put(buf[:0]) //nolint:staticcheck // intentional: reuse the backing array
}
