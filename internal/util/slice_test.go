package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsString_Valid(t *testing.T) {
	// GIVEN
	list := []string{
		"one",
		"two",
		"three",
	}

	// WHEN
	result := ContainsString(list, "two")

	// THEN
	assert.True(t, result)
}

func TestContainsString_Invalid(t *testing.T) {
	// GIVEN
	list := []string{
		"one",
		"two",
		"three",
	}

	// WHEN
	result := ContainsString(list, "zero")

	// THEN
	assert.False(t, result)
}

func TestMinMaxSum(t *testing.T) {
	values := []float64{3, 1, 2}

	assert.Equal(t, 1.0, Min(values))
	assert.Equal(t, 3.0, Max(values))
	assert.Equal(t, 6.0, Sum(values))
	assert.Equal(t, 0.0, Min(nil))
	assert.Equal(t, 0.0, Max(nil))
}

func TestIsStrictlyAscending(t *testing.T) {
	assert.True(t, IsStrictlyAscending([]int{680, 1360, 2040, 2720, 3400, 50000}))
	assert.True(t, IsStrictlyAscending([]int{}))
	assert.False(t, IsStrictlyAscending([]int{680, 680}))
	assert.False(t, IsStrictlyAscending([]int{1360, 680}))
}
