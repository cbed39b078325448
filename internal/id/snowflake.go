// internal/id/snowflake.go
package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	once    sync.Once
	initErr error
)

// Init initializes the Snowflake node with the given node ID.
// Only the first call has any effect.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	return initErr
}

// New generates a new int64 ID using the Snowflake algorithm.
// IDs are time-ordered, so sorting by ID follows insertion order on a single node.
// If Init was never called, node 0 is used.
func New() int64 {
	if err := Init(0); err != nil {
		panic(fmt.Sprintf("id: snowflake node unavailable: %v", err))
	}
	return node.Generate().Int64()
}
