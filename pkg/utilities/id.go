package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewSnowflakeID generates a snowflake ID string from the process-wide node.
// The node id comes from SNOWFLAKE_NODE (default 1). If node setup fails it
// falls back to a KSUID string so a unique ID is still returned.
func NewSnowflakeID() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
			nodeID = v
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			// out of range node id, fall back to node 1
			n, _ = snowflake.NewNode(1)
		}
		node = n
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
