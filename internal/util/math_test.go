package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvg(t *testing.T) {
	assert.Equal(t, 2.0, Avg([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, Avg(nil))
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, 0, Coerce(-1, 0, 5))
	assert.Equal(t, 5, Coerce(9, 0, 5))
	assert.Equal(t, 3, Coerce(3, 0, 5))
	assert.Equal(t, 1.5, Coerce(1.5, 0.0, 2.0))
}
