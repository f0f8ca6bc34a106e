package write

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSkipCompression(t *testing.T) {
	t.Parallel()

	skip := DefaultSkipCompression(64)

	assert.True(t, skip("photo.PNG", 4096))
	assert.True(t, skip("bundle.zip", 1<<20))
	assert.True(t, skip("tiny.txt", 10))
	assert.False(t, skip("notes.txt", 4096))
	assert.False(t, skip("Makefile", 4096))
}

func TestDefaultSkipCompressionNoMinSize(t *testing.T) {
	t.Parallel()

	skip := DefaultSkipCompression(0)
	assert.False(t, skip("empty.txt", 0))
	assert.True(t, skip("a.jpg", 0))
}

func TestShouldSkip(t *testing.T) {
	t.Parallel()

	never := func(string, int64) bool { return false }
	big := func(_ string, size int64) bool { return size > 100 }

	assert.False(t, ShouldSkip("a", 1000, nil))
	assert.False(t, ShouldSkip("a", 1000, []SkipCompressionFunc{never, nil}))
	assert.True(t, ShouldSkip("a", 1000, []SkipCompressionFunc{nil, never, big}))
	assert.False(t, ShouldSkip("a", 10, []SkipCompressionFunc{never, big}))
}
