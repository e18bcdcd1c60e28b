package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopoSort_Order(t *testing.T) {
	order, err := topoSort(4, func(i int) []int {
		switch i {
		case 0:
			return []int{2}
		case 2:
			return []int{3}
		default:
			return nil
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2, 0}, order)
}

func TestTopoSort_KeepsIndependentOrder(t *testing.T) {
	order, err := topoSort(3, func(int) []int { return nil })
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestTopoSort_Cycle(t *testing.T) {
	_, err := topoSort(2, func(i int) []int {
		if i == 0 {
			return []int{1}
		}

		return []int{0}
	})
	assert.ErrorIs(t, err, errCycle)
}

func TestTopoSort_SelfReference(t *testing.T) {
	order, err := topoSort(2, func(i int) []int { return []int{i} })
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, order)
}

func TestTopoSort_OutOfRange(t *testing.T) {
	_, err := topoSort(1, func(int) []int { return []int{3} })
	assert.Error(t, err)
}
