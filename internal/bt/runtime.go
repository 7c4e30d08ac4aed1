package bt

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"battlecore/internal/ecs"
)

var (
	ErrUnknownTree = errors.New("bt: unknown tree")
	ErrUnknownNode = errors.New("bt: unknown node type")
	ErrDuplicate   = errors.New("bt: duplicate name")
)

// Env is the world handle passed to every evaluation.
type Env interface {
	Store() *ecs.Store
	Now() float64
}

// AIState is the behavior component: which tree drives the entity, and its blackboard.
type AIState struct {
	Tree  string
	Board *Map
	Last  Status
	Evals uint64
}

var AIStateKey = ecs.NewKey[*AIState]("aiState")

// Memory is the per-(node, entity) state.
type Memory struct {
	Running bool
	// Index is the child a composite resumes at.
	Index int
	// Count is the repeater's completion counter.
	Count int
	// LastDone is when a cooldown's child last completed; Done reports whether it ever has.
	LastDone float64
	Done     bool
	// Vars is free-form per-entity scratch space for leaf actions.
	Vars Map
}

// Runtime owns trees, named leaves and all per-entity node memory.
type Runtime struct {
	log    *slog.Logger
	trees  map[string]*Tree
	leaves map[string]Node
	preds  map[string]Predicate
	mem    map[ecs.Entity]map[NodeID]*Memory
}

// Predicate is a named check used by tree gates and guards.
type Predicate func(c *Context) bool

func NewRuntime(log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runtime{
		log:    log,
		trees:  map[string]*Tree{},
		leaves: map[string]Node{},
		preds:  map[string]Predicate{},
		mem:    map[ecs.Entity]map[NodeID]*Memory{},
	}
}

// Attach drops an entity's node memory whenever the store destroys it.
func (rt *Runtime) Attach(s *ecs.Store) {
	s.OnDestroy(rt.Forget)
}

func (rt *Runtime) Logger() *slog.Logger { return rt.log }

// Register makes a tree evaluable by name.
func (rt *Runtime) Register(t *Tree) error {
	if t == nil || t.Root == nil {
		return fmt.Errorf("register tree: %w: empty tree", ErrUnknownNode)
	}
	if _, ok := rt.trees[t.Name]; ok {
		return fmt.Errorf("register tree %q: %w", t.Name, ErrDuplicate)
	}
	t.rt = rt
	rt.trees[t.Name] = t
	return nil
}

func (rt *Runtime) Tree(name string) (*Tree, error) {
	t, ok := rt.trees[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTree, name)
	}
	return t, nil
}

// TreeNames lists registered trees in sorted order.
func (rt *Runtime) TreeNames() []string {
	names := make([]string, 0, len(rt.trees))
	for n := range rt.trees {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterLeaf publishes an action or condition under its name for specs and Refs.
func (rt *Runtime) RegisterLeaf(n Node) error {
	if len(n.Children()) > 0 {
		return fmt.Errorf("register leaf %q: %w: leaves take no children", n.Name(), ErrUnknownNode)
	}
	if _, ok := rt.leaves[n.Name()]; ok {
		return fmt.Errorf("register leaf %q: %w", n.Name(), ErrDuplicate)
	}
	rt.leaves[n.Name()] = n
	return nil
}

func (rt *Runtime) Leaf(name string) (Node, bool) {
	n, ok := rt.leaves[name]
	return n, ok
}

// RegisterPredicate publishes a check for gates and guards built from specs.
func (rt *Runtime) RegisterPredicate(name string, p Predicate) error {
	if _, ok := rt.preds[name]; ok {
		return fmt.Errorf("register predicate %q: %w", name, ErrDuplicate)
	}
	rt.preds[name] = p
	return nil
}

func (rt *Runtime) Predicate(name string) (Predicate, bool) {
	p, ok := rt.preds[name]
	return p, ok
}

// Memory returns the entity's memory for n, creating it on first use.
func (rt *Runtime) Memory(n Node, e ecs.Entity) *Memory {
	return rt.memory(n.ID(), e)
}

// Running reports whether n is mid-session for e.
func (rt *Runtime) Running(n Node, e ecs.Entity) bool {
	m, ok := rt.lookup(n.ID(), e)
	return ok && m.Running
}

// ClearMemory drops n's memory for e without running any hooks.
func (rt *Runtime) ClearMemory(n Node, e ecs.Entity) {
	if byNode, ok := rt.mem[e]; ok {
		delete(byNode, n.ID())
		if len(byNode) == 0 {
			delete(rt.mem, e)
		}
	}
}

// Forget drops every piece of node memory held for e.
func (rt *Runtime) Forget(e ecs.Entity) {
	delete(rt.mem, e)
}

// Entities reports how many entities currently hold node memory.
func (rt *Runtime) Entities() int { return len(rt.mem) }

// Interrupt ends n's running session for e, and those of its running descendants,
// running their end hooks with Aborted.
func (rt *Runtime) Interrupt(n Node, e ecs.Entity, env Env) {
	c := rt.context(e, env)
	c.Interrupt(n)
}

// Shared returns e's blackboard, or nil when e has no aiState.
func (rt *Runtime) Shared(s *ecs.Store, e ecs.Entity) *Map {
	st, ok := AIStateKey.Get(s, e)
	if !ok || st == nil {
		return nil
	}
	if st.Board == nil {
		st.Board = NewMap()
	}
	return st.Board
}

func (rt *Runtime) memory(id NodeID, e ecs.Entity) *Memory {
	byNode, ok := rt.mem[e]
	if !ok {
		byNode = map[NodeID]*Memory{}
		rt.mem[e] = byNode
	}
	m, ok := byNode[id]
	if !ok {
		m = &Memory{}
		byNode[id] = m
	}
	return m
}

func (rt *Runtime) lookup(id NodeID, e ecs.Entity) (*Memory, bool) {
	m, ok := rt.mem[e][id]
	return m, ok
}

func (rt *Runtime) context(e ecs.Entity, env Env) *Context {
	c := &Context{Entity: e, Env: env, rt: rt}
	if env != nil {
		c.board = rt.Shared(env.Store(), e)
	}
	if c.board == nil {
		c.board = NewMap()
	}
	return c
}

// Context is one entity's view during one evaluation.
type Context struct {
	Entity ecs.Entity
	Env    Env
	rt     *Runtime
	board  *Map
	cur    *Memory
	// pending holds branches a reactive selector is about to preempt.
	pending []Node
}

func (c *Context) Now() float64 {
	if c.Env == nil {
		return 0
	}
	return c.Env.Now()
}

func (c *Context) Store() *ecs.Store { return c.Env.Store() }

// Board is the entity's shared blackboard.
func (c *Context) Board() *Map { return c.board }

func (c *Context) Logger() *slog.Logger { return c.rt.log }

// Memory is the entity's memory for n.
func (c *Context) Memory(n Node) *Memory { return c.rt.memory(n.ID(), c.Entity) }

// Vars is the scratch map of the node currently being evaluated.
func (c *Context) Vars() *Map {
	if c.cur == nil {
		return NewMap()
	}
	return &c.cur.Vars
}

// Tick evaluates n for this entity, maintaining its running session.
func (c *Context) Tick(n Node) Result {
	m := c.rt.memory(n.ID(), c.Entity)
	prev := c.cur
	c.cur = m
	defer func() { c.cur = prev }()
	if !m.Running {
		if s, ok := n.(starter); ok {
			s.start(c, m)
		}
	}
	res := n.evaluate(c, m)
	if res.Status == Running {
		m.Running = true
		return res
	}
	m.Running = false
	if e, ok := n.(ender); ok {
		e.end(c, m, res.Status)
	}
	return res
}

// preempt interrupts every branch a reactive selector is switching away from.
// Action start hooks call it first, so the old branch's end hooks always run
// before the new branch's start hooks.
func (c *Context) preempt() {
	pending := c.pending
	c.pending = nil
	for _, n := range pending {
		c.Interrupt(n)
	}
}

// Interrupt forces n and its running descendants back to idle.
func (c *Context) Interrupt(n Node) {
	m, ok := c.rt.lookup(n.ID(), c.Entity)
	if !ok || !m.Running {
		return
	}
	for _, ch := range n.Children() {
		c.Interrupt(ch)
	}
	prev := c.cur
	c.cur = m
	defer func() { c.cur = prev }()
	m.Running = false
	if h, ok := n.(interrupter); ok {
		h.interrupted(c, m)
	}
	if e, ok := n.(ender); ok {
		e.end(c, m, Aborted)
	}
}

// Tree binds a root node to a name. Gate, when set, must hold for the tree to act.
type Tree struct {
	Name string
	Root Node
	Gate Predicate
	rt   *Runtime
}

// Evaluate runs one tick of the tree for e. The bool is false when the gate is
// closed; any session left running is interrupted in that case.
func (t *Tree) Evaluate(e ecs.Entity, env Env) (Result, bool) {
	if t.rt == nil {
		panic(fmt.Sprintf("bt: tree %q evaluated before Register", t.Name))
	}
	c := t.rt.context(e, env)
	st, _ := AIStateKey.Get(env.Store(), e)
	if t.Gate != nil && !t.Gate(c) {
		c.Interrupt(t.Root)
		return Result{}, false
	}
	res := c.Tick(t.Root)
	if st != nil {
		st.Last = res.Status
		st.Evals++
	}
	return res, true
}
