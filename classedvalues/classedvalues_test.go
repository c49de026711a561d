package classedvalues

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() *Values {
	return New([]Entry{
		{Class: 0, Value: 1.0},
		{Class: 20, Value: 2.0},
		{Class: 40, Value: 3.0},
		{Class: 65, Value: 4.0},
	})
}

func TestGetExact(t *testing.T) {
	v := sample()
	assert.Equal(t, 2.0, v.Get(20, -1))
	assert.Equal(t, -1.0, v.Get(21, -1))
}

func TestGetGreatestLTEExact(t *testing.T) {
	v := sample()
	assert.Equal(t, 1.0, v.GetGreatestLTE(0))
	assert.Equal(t, 2.0, v.GetGreatestLTE(20))
	assert.Equal(t, 2.0, v.GetGreatestLTE(39))
	assert.Equal(t, 3.0, v.GetGreatestLTE(40))
	assert.Equal(t, 4.0, v.GetGreatestLTE(100))
}

// TestGetGreatestLTEBelowSmallest documents the quirk: querying below the
// smallest class returns the value at index 0, not a default or zero.
func TestGetGreatestLTEBelowSmallest(t *testing.T) {
	v := New([]Entry{
		{Class: 10, Value: 5.0},
		{Class: 20, Value: 6.0},
	})
	assert.Equal(t, 5.0, v.GetGreatestLTE(0))
}

func TestEmptyValues(t *testing.T) {
	v := New(nil)
	assert.Equal(t, 0.0, v.GetGreatestLTE(5))
	assert.Equal(t, -1.0, v.Get(5, -1))
}
