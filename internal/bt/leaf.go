package bt

// Action is a leaf that decides and acts. Start runs once when a session begins,
// End exactly once when it leaves Running, with Aborted on interruption.
type Action struct {
	base
	run     func(c *Context) Result
	onStart []func(c *Context)
	onEnd   []func(c *Context, st Status)
}

func NewAction(name string, run func(c *Context) Result) *Action {
	return &Action{base: newBase(name), run: run}
}

// OnStart appends a session start hook.
func (a *Action) OnStart(fn func(c *Context)) *Action {
	a.onStart = append(a.onStart, fn)
	return a
}

// OnEnd appends a session end hook.
func (a *Action) OnEnd(fn func(c *Context, st Status)) *Action {
	a.onEnd = append(a.onEnd, fn)
	return a
}

func (a *Action) start(c *Context, _ *Memory) {
	c.preempt()
	for _, fn := range a.onStart {
		fn(c)
	}
}

func (a *Action) end(c *Context, _ *Memory, st Status) {
	for _, fn := range a.onEnd {
		fn(c, st)
	}
}

func (a *Action) evaluate(c *Context, _ *Memory) Result {
	return a.run(c)
}

// Condition is a boolean leaf.
type Condition struct {
	base
	check func(c *Context) bool
}

func NewCondition(name string, check func(c *Context) bool) *Condition {
	return &Condition{base: newBase(name), check: check}
}

func (n *Condition) evaluate(c *Context, _ *Memory) Result {
	if n.check(c) {
		return Succeed(nil)
	}
	return Fail()
}

// Ref resolves a registered leaf by name when evaluated. Each Ref keeps its own
// session, so two Refs naming the same leaf never share start and end hooks.
type Ref struct {
	base
}

func NewRef(name string) *Ref {
	return &Ref{base: newBase(name)}
}

func (r *Ref) resolve(c *Context) (Node, bool) {
	leaf, ok := c.rt.Leaf(r.name)
	if !ok {
		c.rt.log.Warn("unknown leaf", "leaf", r.name, "entity", c.Entity)
	}
	return leaf, ok
}

func (r *Ref) start(c *Context, m *Memory) {
	if leaf, ok := c.rt.Leaf(r.name); ok {
		if s, ok := leaf.(starter); ok {
			s.start(c, m)
		}
	}
}

func (r *Ref) evaluate(c *Context, m *Memory) Result {
	leaf, ok := r.resolve(c)
	if !ok {
		return Fail()
	}
	return leaf.evaluate(c, m)
}

func (r *Ref) end(c *Context, m *Memory, st Status) {
	if leaf, ok := c.rt.Leaf(r.name); ok {
		if e, ok := leaf.(ender); ok {
			e.end(c, m, st)
		}
	}
}
