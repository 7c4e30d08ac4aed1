package bt

import "sync/atomic"

// NodeID identifies a node instance across every entity that evaluates it.
type NodeID uint32

var lastNodeID atomic.Uint32

// Node is a stateless, shared unit of evaluation. Everything that varies per
// entity lives in the Runtime's Memory.
type Node interface {
	ID() NodeID
	Name() string
	Children() []Node
	evaluate(c *Context, m *Memory) Result
}

// Optional lifecycle hooks, checked by Context.Tick and Context.Interrupt.
type (
	starter     interface{ start(c *Context, m *Memory) }
	ender       interface{ end(c *Context, m *Memory, st Status) }
	interrupter interface{ interrupted(c *Context, m *Memory) }
)

type base struct {
	id   NodeID
	name string
}

func newBase(name string) base {
	return base{id: NodeID(lastNodeID.Add(1)), name: name}
}

func (b *base) ID() NodeID       { return b.id }
func (b *base) Name() string     { return b.name }
func (b *base) Children() []Node { return nil }
