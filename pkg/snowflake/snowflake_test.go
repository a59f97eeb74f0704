package snowflake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDGenerator_NodeRange(t *testing.T) {
	for _, node := range []int64{0, 1, maxNode} {
		gen, err := NewIDGenerator(node)
		require.NoError(t, err, "node %d", node)
		require.NotNil(t, gen)
	}

	for _, node := range []int64{-1, maxNode + 1} {
		_, err := NewIDGenerator(node)
		assert.Error(t, err, "node %d", node)
	}
}

func TestNextID_UniqueAndOrdered(t *testing.T) {
	gen, err := NewIDGenerator(1)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	var prev int64
	for i := 0; i < 5000; i++ {
		id := gen.NextID()
		assert.Positive(t, id)
		assert.False(t, seen[id], "duplicate id %d", id)
		assert.Greater(t, id, prev, "ids must be strictly increasing")
		seen[id] = true
		prev = id
	}
}

func TestNextID_Concurrent(t *testing.T) {
	gen, err := NewIDGenerator(1)
	require.NoError(t, err)

	const workers = 10
	const perWorker = 200

	ids := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- gen.NextID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestDecompose(t *testing.T) {
	gen, err := NewIDGenerator(123)
	require.NoError(t, err)

	before := time.Now().Add(-time.Second)
	id := gen.NextID()
	after := time.Now().Add(time.Second)

	ts, nodeID, seq := Decompose(id)
	assert.Equal(t, int64(123), nodeID)
	assert.GreaterOrEqual(t, seq, int64(0))
	assert.LessOrEqual(t, seq, int64(seqMask))
	assert.True(t, ts.After(before) && ts.Before(after), "mint time %v outside [%v, %v]", ts, before, after)
}

func TestDecompose_DistinguishesNodes(t *testing.T) {
	gen1, err := NewIDGenerator(1)
	require.NoError(t, err)
	gen2, err := NewIDGenerator(2)
	require.NoError(t, err)

	_, node1, _ := Decompose(gen1.NextID())
	_, node2, _ := Decompose(gen2.NextID())
	assert.Equal(t, int64(1), node1)
	assert.Equal(t, int64(2), node2)
}
