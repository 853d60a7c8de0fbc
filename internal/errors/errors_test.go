package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderAttachesMetadata(t *testing.T) {
	t.Parallel()

	base := errors.New("truncated data chunk")
	ee := New(base).
		Component("recording").
		Category(CategoryUnexpectedEOF).
		Priority(PriorityHigh).
		Context("want_bytes", 4096).
		Build()

	require.Equal(t, CategoryUnexpectedEOF, ee.Category)
	assert.Equal(t, PriorityHigh, ee.Priority)
	assert.Equal(t, 4096, ee.GetContext()["want_bytes"])
	assert.ErrorIs(t, ee, base)
}

func TestPriorityFallsBackToMediumOnInvalidValue(t *testing.T) {
	t.Parallel()

	ee := Newf("bad input").Priority("urgent!!").Build()
	assert.Equal(t, PriorityMedium, ee.Priority)
}

func TestIsCategoryWalksWrapChain(t *testing.T) {
	t.Parallel()

	inner := New(errors.New("disk full")).Category(CategoryResource).Build()
	outer := errors.New("open recording: " + inner.Error())
	wrapped := errors.Join(inner, outer)

	assert.True(t, IsCategory(wrapped, CategoryResource))
	assert.False(t, IsCategory(wrapped, CategoryNotFound))
}

func TestGetContextReturnsIndependentCopy(t *testing.T) {
	t.Parallel()

	ee := New(errors.New("x")).Context("a", 1).Build()
	cp := ee.GetContext()
	cp["a"] = 2
	assert.Equal(t, 1, ee.GetContext()["a"])
}
