package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/reflow/pkg/entity"
)

type countingRequester struct {
	requests int
}

func (c *countingRequester) RequestFrame() {
	c.requests++
}

var (
	h1 = entity.Handle{Slot: 0, Generation: 1}
	h2 = entity.Handle{Slot: 1, Generation: 1}
)

func TestRequestDedup(t *testing.T) {
	r := &countingRequester{}
	q := New(r)

	q.Request(h1, Layout)
	q.Request(h1, Layout)
	q.Request(h1, Paint)
	q.Request(h2, Layout)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 4, r.requests, "every request notifies the requester")

	jobs := q.Drain()
	assert.Equal(t, []Job{
		{Handle: h1, Kind: Layout},
		{Handle: h1, Kind: Paint},
		{Handle: h2, Kind: Layout},
	}, jobs)
	assert.Zero(t, q.Len())

	q.Request(h1, Layout)
	assert.True(t, q.Contains(h1, Layout), "a drained job can be requested again")
}

func TestRequestAnimation(t *testing.T) {
	t.Run("layout companion", func(t *testing.T) {
		q := New(nil)
		q.RequestAnimation(h1, CompanionLayout)
		assert.Equal(t, []Job{
			{Handle: h1, Kind: Animation},
			{Handle: h1, Kind: Layout},
		}, q.Drain())
	})

	t.Run("no companion", func(t *testing.T) {
		q := New(nil)
		q.RequestAnimation(h1, CompanionNone)
		assert.Equal(t, []Job{{Handle: h1, Kind: Animation}}, q.Drain())
	})

	t.Run("dedups both halves", func(t *testing.T) {
		r := &countingRequester{}
		q := New(r)
		q.Request(h1, Paint)
		q.RequestAnimation(h1, CompanionPaint)
		q.RequestAnimation(h1, CompanionPaint)
		assert.Equal(t, 2, q.Len())
		assert.Equal(t, 3, r.requests)
	})
}

func TestAnimationResidency(t *testing.T) {
	q := New(nil)
	q.RequestAnimation(h1, CompanionPaint)
	q.Request(h2, Reconcile)
	q.RequestAnimation(h2, CompanionNone)

	surface := q.DrainNonAnimation()
	assert.Equal(t, []Job{
		{Handle: h1, Kind: Paint},
		{Handle: h2, Kind: Reconcile},
	}, surface)
	require.Equal(t, 2, q.Len())
	assert.True(t, q.Contains(h1, Animation))
	assert.True(t, q.Contains(h2, Animation))

	// A second partial drain leaves the animation jobs in place.
	assert.Empty(t, q.DrainNonAnimation())
	assert.Equal(t, 2, q.Len())

	all := q.Drain()
	assert.Equal(t, []Job{
		{Handle: h1, Kind: Animation},
		{Handle: h2, Kind: Animation},
	}, all)
	assert.Zero(t, q.Len())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "layout entity(0@1)", Job{Handle: h1, Kind: Layout}.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
	assert.Equal(t, "paint", CompanionPaint.String())
}
