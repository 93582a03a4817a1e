package vectorstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	v := []float64{3, 4}
	got := Normalize(v)
	assert.InDeltaSlice(t, []float64{0.6, 0.8}, got, 1e-12)
	assert.Equal(t, []float64{3, 4}, v, "input must not be modified")

	zero := Normalize([]float64{0, 0})
	assert.Equal(t, []float64{0, 0}, zero)

	n := 0.0
	for _, x := range Normalize([]float64{1, 2, 3}) {
		n += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(n), 1e-12)
}
