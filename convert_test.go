package uap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvention_ToTime(t *testing.T) {
	frames := []Segment{{0, 10}, {4, 5}, {20, 21}}

	t.Run("exclusive end", func(t *testing.T) {
		conv := Convention{Stride: 1}
		got, err := conv.ToTime(frames, 25)
		require.NoError(t, err)
		assert.Equal(t, []Segment{{0, 0.4}, {0.16, 0.2}, {0.8, 0.84}}, got)
	})

	t.Run("inclusive end with stride", func(t *testing.T) {
		conv := Convention{Stride: 16, InclusiveEnd: true}
		got, err := conv.ToTime([]Segment{{0, 0}}, 16)
		require.NoError(t, err)
		assert.Equal(t, []Segment{{0, 1}}, got)
	})

	t.Run("offset", func(t *testing.T) {
		conv := Convention{Stride: 1, Offset: 1}
		got, err := conv.ToTime([]Segment{{0, 1}}, 2)
		require.NoError(t, err)
		assert.Equal(t, []Segment{{0.5, 1}}, got)
	})

	t.Run("invalid fps", func(t *testing.T) {
		_, err := ActivityNet.ToTime(frames, 0)
		assert.True(t, errors.Is(err, ErrInvalidFPS))
	})
}

func TestConvention_ToTimePreservesLength(t *testing.T) {
	for n := 0; n < 20; n++ {
		frames := make([]Segment, n)
		for i := range frames {
			frames[i] = Segment{float64(i), float64(i + 3)}
		}
		for _, conv := range []Convention{ActivityNet, Thumos14, Charades} {
			got, err := conv.ToTime(frames, 29.97)
			require.NoError(t, err)
			assert.Len(t, got, n)
		}
	}
}

func TestConventionFor(t *testing.T) {
	conv, err := ConventionFor("Charades")
	require.NoError(t, err)
	assert.Equal(t, Charades, conv)

	_, err = ConventionFor("Kinetics")
	assert.ErrorIs(t, err, ErrUnknownConvention)
}
