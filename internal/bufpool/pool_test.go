package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapacityClass(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero floors to 64", 0, 64},
		{"small floors to 64", 10, 64},
		{"exact power stays", 128, 128},
		{"rounds up", 100, 128},
		{"rounds up large", 65537, 131072},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, capacityClass(tt.in))
		})
	}
}

func TestAcquireAllocates(t *testing.T) {
	p := New(4, 16384)

	lease := p.Acquire(1000)
	assert.GreaterOrEqual(t, cap(lease.Bytes()), 1000)
	assert.Equal(t, 0, len(lease.Bytes()))
}

func TestReleaseReturnsToPool(t *testing.T) {
	p := New(4, 16384)

	lease := p.Acquire(1024)
	lease.SetBytes(append(lease.Bytes(), []byte("leftover data")...))
	lease.Release()

	assert.Equal(t, 1, p.Len(1024))

	// The recycled buffer comes back empty.
	again := p.Acquire(1024)
	assert.Equal(t, 0, len(again.Bytes()))
	assert.Equal(t, 0, p.Len(1024))
}

func TestReleaseDropsOversized(t *testing.T) {
	p := New(4, 1024)

	lease := p.Acquire(8192)
	lease.Release()

	assert.Equal(t, 0, p.Len(8192))
}

func TestPoolBounded(t *testing.T) {
	p := New(2, 16384)

	leases := []*Lease{p.Acquire(512), p.Acquire(512), p.Acquire(512)}
	for _, l := range leases {
		l.Release()
	}

	assert.Equal(t, 2, p.Len(512))
}

func TestDoubleReleaseIsNoop(t *testing.T) {
	p := New(4, 16384)

	lease := p.Acquire(512)
	lease.Release()
	lease.Release()

	assert.Equal(t, 1, p.Len(512))
}
