package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiter_CapsPerIP(t *testing.T) {
	l := newIPLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := l.allow("10.0.0.1")
		assert.True(t, ok, "request %d should pass", i+1)
	}
	ok, resetAt := l.allow("10.0.0.1")
	assert.False(t, ok)
	assert.True(t, resetAt.After(time.Now()))

	// Another IP has its own window.
	ok, _ = l.allow("10.0.0.2")
	assert.True(t, ok)
}

func TestIPLimiter_WindowResets(t *testing.T) {
	l := newIPLimiter(1, 10*time.Millisecond)

	ok, _ := l.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1")
	assert.False(t, ok)

	time.Sleep(15 * time.Millisecond)
	ok, _ = l.allow("10.0.0.1")
	assert.True(t, ok)
}
