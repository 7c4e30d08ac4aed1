package bt

type composite struct {
	base
	children []Node
}

func (n *composite) Children() []Node { return n.children }

// Selector returns the first child result that is not Failure. It resumes at the
// child that was Running on the previous tick. A Reactive selector instead
// restarts at the first child every tick and interrupts the child it preempts,
// before the new branch starts any action.
type Selector struct {
	composite
	Reactive bool
}

func NewSelector(name string, children ...Node) *Selector {
	return &Selector{composite: composite{base: newBase(name), children: children}}
}

// NewReactiveSelector builds a selector that re-checks higher priority children every tick.
func NewReactiveSelector(name string, children ...Node) *Selector {
	s := NewSelector(name, children...)
	s.Reactive = true
	return s
}

func (n *Selector) start(_ *Context, m *Memory) {
	m.Index = 0
}

func (n *Selector) evaluate(c *Context, m *Memory) Result {
	from, prev := m.Index, -1
	if n.Reactive {
		from = 0
		if m.Running {
			prev = m.Index
		}
	}
	for i := from; i < len(n.children); i++ {
		preempting := prev > i
		mark := len(c.pending)
		if preempting {
			c.pending = append(c.pending, n.children[prev])
		}
		r := c.Tick(n.children[i])
		if len(c.pending) > mark {
			c.pending = c.pending[:mark]
		}
		if r.Status == Failure {
			continue
		}
		if preempting {
			c.Interrupt(n.children[prev])
		}
		if r.Status == Running {
			m.Index = i
		} else {
			m.Index = 0
		}
		return r
	}
	m.Index = 0
	return Fail()
}

func (n *Selector) interrupted(_ *Context, m *Memory) {
	m.Index = 0
}

// Sequence requires every child to succeed in order. A Running child pauses the
// sequence at its index; the next tick resumes there.
type Sequence struct {
	composite
}

func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{composite{base: newBase(name), children: children}}
}

func (n *Sequence) start(_ *Context, m *Memory) {
	m.Index = 0
}

func (n *Sequence) evaluate(c *Context, m *Memory) Result {
	var last *Map
	for i := m.Index; i < len(n.children); i++ {
		r := c.Tick(n.children[i])
		switch r.Status {
		case Failure:
			m.Index = 0
			return r
		case Running:
			m.Index = i
			return r
		}
		last = r.Data
	}
	m.Index = 0
	return Succeed(last)
}

func (n *Sequence) interrupted(_ *Context, m *Memory) {
	m.Index = 0
}
