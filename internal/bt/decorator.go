package bt

type decorator struct {
	base
	child Node
}

func (d *decorator) Children() []Node { return []Node{d.child} }

// Inverter flips Success and Failure and passes Running through.
type Inverter struct{ decorator }

func NewInverter(child Node) *Inverter {
	return &Inverter{decorator{base: newBase("inverter"), child: child}}
}

func (n *Inverter) evaluate(c *Context, _ *Memory) Result {
	r := c.Tick(n.child)
	switch r.Status {
	case Success:
		return Result{Status: Failure, Data: r.Data}
	case Failure:
		return Result{Status: Success, Data: r.Data}
	}
	return r
}

// Succeeder reports Success whenever its child completes.
type Succeeder struct{ decorator }

func NewSucceeder(child Node) *Succeeder {
	return &Succeeder{decorator{base: newBase("succeeder"), child: child}}
}

func (n *Succeeder) evaluate(c *Context, _ *Memory) Result {
	r := c.Tick(n.child)
	if r.Status == Failure {
		r.Status = Success
	}
	return r
}

// Cooldown suppresses its child until Duration has passed since the child last
// completed. A running child is never suppressed.
type Cooldown struct {
	decorator
	Duration float64
	// FailOnCooldown returns Failure while cooling down; otherwise Running.
	FailOnCooldown bool
	// StampOnInterrupt counts a forced interruption of the child as a completion.
	StampOnInterrupt bool
}

func NewCooldown(d float64, failOnCooldown bool, child Node) *Cooldown {
	return &Cooldown{
		decorator:      decorator{base: newBase("cooldown"), child: child},
		Duration:       d,
		FailOnCooldown: failOnCooldown,
	}
}

// Remaining is how long e must still wait, zero when ready.
func (n *Cooldown) Remaining(c *Context) float64 {
	m := c.Memory(n)
	if !m.Done {
		return 0
	}
	left := m.LastDone + n.Duration - c.Now()
	if left < 0 {
		return 0
	}
	return left
}

func (n *Cooldown) evaluate(c *Context, m *Memory) Result {
	now := c.Now()
	if m.Done && now-m.LastDone < n.Duration && !c.rt.Running(n.child, c.Entity) {
		if n.FailOnCooldown {
			return Fail()
		}
		return Run(nil)
	}
	r := c.Tick(n.child)
	if r.Status != Running {
		m.Done = true
		m.LastDone = now
	}
	return r
}

func (n *Cooldown) interrupted(c *Context, m *Memory) {
	if n.StampOnInterrupt {
		m.Done = true
		m.LastDone = c.Now()
	}
}

// RepeatUntil is the terminal condition of a Repeater.
type RepeatUntil uint8

const (
	// RepeatTimes stops only after Times completions and then succeeds.
	RepeatTimes RepeatUntil = iota
	// UntilSuccess stops at the first child Success.
	UntilSuccess
	// UntilFailure stops at the first child Failure, reporting Success.
	UntilFailure
)

// Repeater re-runs its child, one completion per tick. Times of zero repeats
// without bound. When Times runs out before an Until condition is met the
// repeater fails.
type Repeater struct {
	decorator
	Times int
	Until RepeatUntil
}

func NewRepeater(times int, until RepeatUntil, child Node) *Repeater {
	return &Repeater{
		decorator: decorator{base: newBase("repeater"), child: child},
		Times:     times,
		Until:     until,
	}
}

func (n *Repeater) start(_ *Context, m *Memory) {
	m.Count = 0
}

func (n *Repeater) evaluate(c *Context, m *Memory) Result {
	r := c.Tick(n.child)
	if r.Status == Running {
		return r
	}
	m.Count++
	switch {
	case n.Until == UntilSuccess && r.Status == Success:
		return Succeed(r.Data)
	case n.Until == UntilFailure && r.Status == Failure:
		return Succeed(r.Data)
	}
	if n.Times > 0 && m.Count >= n.Times {
		if n.Until == RepeatTimes {
			return Succeed(r.Data)
		}
		return Fail()
	}
	return Run(r.Data)
}

// Guard runs its child only while Check holds, interrupting it otherwise.
type Guard struct {
	decorator
	Check Predicate
}

func NewGuard(name string, check Predicate, child Node) *Guard {
	return &Guard{decorator: decorator{base: newBase(name), child: child}, Check: check}
}

func (n *Guard) evaluate(c *Context, _ *Memory) Result {
	if !n.Check(c) {
		c.Interrupt(n.child)
		return Fail()
	}
	return c.Tick(n.child)
}
