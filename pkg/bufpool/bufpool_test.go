package bufpool

import (
	"sync"
	"testing"
)

func TestGet_ReturnsEmptyBuffer(t *testing.T) {
	buf := Get()
	defer Put(buf)
	if buf == nil {
		t.Fatal("Get() returned nil")
	}
	if buf.Len() != 0 {
		t.Errorf("buffer len = %d, want 0", buf.Len())
	}
}

func TestPut_ResetsBuffer(t *testing.T) {
	buf := Get()
	buf.WriteString("stale report fragment")
	Put(buf)

	buf2 := Get()
	defer Put(buf2)
	if buf2.Len() != 0 {
		t.Error("buffer from pool not empty after Put")
	}
}

func TestPut_NilSafe(t *testing.T) {
	Put(nil)
	PutBuilder(nil)
}

func TestPut_DropsOversizedBuffers(t *testing.T) {
	buf := Get()
	buf.Grow(maxPooledSize + 1)
	// Must not panic; the buffer is simply not pooled.
	Put(buf)
}

func TestGetSized_GrowsCapacity(t *testing.T) {
	buf := GetSized(8192)
	defer Put(buf)
	if buf.Cap() < 8192 {
		t.Errorf("capacity = %d, want >= 8192", buf.Cap())
	}
	if buf.Len() != 0 {
		t.Errorf("buffer len = %d, want 0", buf.Len())
	}
}

func TestBuilderPool_RoundTrip(t *testing.T) {
	sb := GetBuilder()
	sb.WriteString("Critical")
	if sb.String() != "Critical" {
		t.Errorf("builder content = %q", sb.String())
	}
	PutBuilder(sb)

	sb2 := GetBuilder()
	defer PutBuilder(sb2)
	if sb2.Len() != 0 {
		t.Error("builder from pool not empty after PutBuilder")
	}
}

func TestGetSlice(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"zero", 0, 0},
		{"under minimum", 10, 64},
		{"rounds up", 100, 128},
		{"exact tier", 4096, 4096},
		{"copy buffer", 32 * 1024, 32 * 1024},
		{"past pool ceiling", 128 * 1024, 128 * 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := GetSlice(tt.size)
			defer PutSlice(buf)
			if tt.size == 0 {
				if buf != nil {
					t.Error("GetSlice(0) != nil")
				}
				return
			}
			if len(buf) != tt.size {
				t.Errorf("len = %d, want %d", len(buf), tt.size)
			}
			if cap(buf) < tt.wantCap {
				t.Errorf("cap = %d, want >= %d", cap(buf), tt.wantCap)
			}
		})
	}
}

func TestPools_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := GetSized(512)
				buf.WriteString("finding row")
				Put(buf)

				s := GetSlice(1024)
				s[0] = byte(j)
				PutSlice(s)
			}
		}()
	}
	wg.Wait()
}
