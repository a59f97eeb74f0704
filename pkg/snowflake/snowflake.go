// Package snowflake mints time-ordered request and row IDs: a
// millisecond timestamp, a node number and a per-millisecond sequence
// packed into one int64.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

// epoch is 2024-01-01T00:00:00Z in milliseconds. IDs store time as an
// offset from here, which keeps them positive for roughly 69 years.
const epoch int64 = 1704067200000

const (
	nodeBits = 10
	seqBits  = 12

	maxNode = -1 ^ (-1 << nodeBits)
	seqMask = -1 ^ (-1 << seqBits)

	nodeShift = seqBits
	timeShift = nodeBits + seqBits
)

// IDGenerator mints IDs for one node. Safe for concurrent use.
type IDGenerator struct {
	mu     sync.Mutex
	lastMs int64
	nodeID int64
	seq    int64
}

// NewIDGenerator creates a generator for nodeID in [0, 1023].
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	if nodeID < 0 || nodeID > maxNode {
		return nil, errors.New("node ID out of range")
	}
	return &IDGenerator{nodeID: nodeID}, nil
}

// NextID mints the next ID. Within one millisecond the sequence counts
// up; when it wraps the generator spins until the clock moves.
func (g *IDGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now == g.lastMs {
		g.seq = (g.seq + 1) & seqMask
		if g.seq == 0 {
			for now <= g.lastMs {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.seq = 0
	}
	g.lastMs = now

	return ((now - epoch) << timeShift) | (g.nodeID << nodeShift) | g.seq
}

// Decompose splits an ID back into its mint time, node and sequence.
func Decompose(id int64) (ts time.Time, nodeID, seq int64) {
	ts = time.UnixMilli((id >> timeShift) + epoch)
	nodeID = (id >> nodeShift) & maxNode
	seq = id & seqMask
	return ts, nodeID, seq
}
