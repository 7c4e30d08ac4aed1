package bt

// Status is the outcome of one node evaluation.
type Status uint8

const (
	Failure Status = iota
	Success
	Running
	// Aborted is only ever passed to end hooks, for sessions cut short by an interrupt.
	Aborted
)

func (s Status) String() string {
	switch s {
	case Failure:
		return "failure"
	case Success:
		return "success"
	case Running:
		return "running"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result carries a status and an optional payload for the parent or the tick driver.
type Result struct {
	Status Status
	Data   *Map
}

func Succeed(data *Map) Result { return Result{Status: Success, Data: data} }
func Fail() Result             { return Result{Status: Failure} }
func Run(data *Map) Result     { return Result{Status: Running, Data: data} }

func (r Result) Ok() bool { return r.Status == Success }
