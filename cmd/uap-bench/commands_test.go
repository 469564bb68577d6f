package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-uap/internal/bench"
)

func TestParsePartitions(t *testing.T) {
	got, err := parsePartitions("3, 1,3,2")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	for _, bad := range []string{"", "0", "5", "1,x", " , "} {
		_, err := parsePartitions(bad)
		assert.ErrorIs(t, err, bench.ErrInvalidPartition, "input %q", bad)
	}
}
