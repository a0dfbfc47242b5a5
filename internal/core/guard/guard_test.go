package guard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGetCopy(t *testing.T) {
	m := Of(42)
	assert.Equal(t, 42, m.GetCopy())

	m.Set(7)
	assert.Equal(t, 7, m.GetCopy())
}

func TestAcquireBlocksConcurrentAccess(t *testing.T) {
	m := Of(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := m.Acquire()
			*g.Get()++
			g.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.GetCopy())
}

func TestReleaseTwicePanics(t *testing.T) {
	m := Of(1)
	g := m.Acquire()
	g.Release()
	assert.Panics(t, func() {
		g.Release()
	})
}

func TestCheatBypassesLock(t *testing.T) {
	m := Of("hello")
	p := m.Cheat()
	*p = "world"
	assert.Equal(t, "world", m.GetCopy())
}
