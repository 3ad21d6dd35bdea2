package pool

import "testing"

func TestConfigure(t *testing.T) {
	origConfig := globalConfig
	defer Configure(origConfig)

	t.Run("enable pooling", func(t *testing.T) {
		Configure(PoolConfig{Enabled: true, MaxSize: 500})
		if !IsEnabled() {
			t.Error("IsEnabled() = false, want true")
		}
		if globalConfig.MaxSize != 500 {
			t.Errorf("MaxSize = %d, want 500", globalConfig.MaxSize)
		}
	})

	t.Run("disable pooling", func(t *testing.T) {
		Configure(PoolConfig{Enabled: false, MaxSize: 1000})
		if IsEnabled() {
			t.Error("IsEnabled() = true, want false")
		}
	})
}

func TestByteBufferPool(t *testing.T) {
	Configure(PoolConfig{Enabled: true, MaxSize: 1024})

	t.Run("get returns zero-length buffer", func(t *testing.T) {
		buf := GetByteBuffer()
		if len(buf) != 0 {
			t.Errorf("len = %d, want 0", len(buf))
		}
	})

	t.Run("put then get returns zero-length buffer", func(t *testing.T) {
		buf := GetByteBuffer()
		buf = append(buf, []byte("hello")...)
		PutByteBuffer(buf)

		buf2 := GetByteBuffer()
		if len(buf2) != 0 {
			t.Errorf("len = %d, want 0", len(buf2))
		}
	})

	t.Run("oversized buffer is dropped, not pooled", func(t *testing.T) {
		big := make([]byte, 0, 4096)
		PutByteBuffer(big) // should not panic; simply discarded
		if cap(GetByteBuffer()) == cap(big) {
			t.Error("oversized buffer came back from the pool")
		}
	})

	t.Run("disabled pooling always allocates fresh", func(t *testing.T) {
		Configure(PoolConfig{Enabled: false, MaxSize: 1024})
		defer Configure(PoolConfig{Enabled: true, MaxSize: 1024})

		PutByteBuffer(make([]byte, 0, 512))
		buf := GetByteBuffer()
		if cap(buf) == 0 {
			t.Error("expected a usable buffer even when pooling disabled")
		}
		if cap(buf) != 256 {
			t.Errorf("cap = %d, want a fresh 256-byte buffer", cap(buf))
		}
	})
}
