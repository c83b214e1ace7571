package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortAllocator(t *testing.T) {
	alwaysFree := func(port int) bool { return true }

	t.Run("Should hand out distinct ports", func(t *testing.T) {
		a := CreatePortAllocator(6080, 6082, alwaysFree)
		p1, err := a.Acquire()
		assert.Nil(t, err)
		p2, err := a.Acquire()
		assert.Nil(t, err)
		assert.NotEqual(t, p1, p2)
		assert.Equal(t, 2, a.InUse())
	})

	t.Run("Should reuse a released port", func(t *testing.T) {
		a := CreatePortAllocator(6080, 6080, alwaysFree)
		p1, err := a.Acquire()
		assert.Nil(t, err)
		a.Release(p1)
		p2, err := a.Acquire()
		assert.Nil(t, err)
		assert.Equal(t, p1, p2)
	})

	t.Run("Should fail when the range is exhausted", func(t *testing.T) {
		a := CreatePortAllocator(6080, 6081, alwaysFree)
		_, err := a.Acquire()
		assert.Nil(t, err)
		_, err = a.Acquire()
		assert.Nil(t, err)
		_, err = a.Acquire()
		assert.ErrorIs(t, err, ErrNoPortsAvailable)
	})

	t.Run("Should skip ports the probe reports as bound", func(t *testing.T) {
		a := CreatePortAllocator(6080, 6082, func(port int) bool {
			return port != 6080
		})
		p, err := a.Acquire()
		assert.Nil(t, err)
		assert.Equal(t, 6081, p)
	})

	t.Run("Should fail when the probe rejects everything", func(t *testing.T) {
		a := CreatePortAllocator(6080, 6082, func(port int) bool { return false })
		_, err := a.Acquire()
		assert.ErrorIs(t, err, ErrNoPortsAvailable)
		assert.Equal(t, 0, a.InUse())
	})
}
