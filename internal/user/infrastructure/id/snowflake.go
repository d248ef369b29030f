// Package id mints user identifiers.
package id

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator produces time-ordered 64-bit IDs.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a Generator for the given node. Node IDs must be
// unique per running instance.
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// NextID returns the next identifier.
func (g *Generator) NextID() int64 {
	return g.node.Generate().Int64()
}
