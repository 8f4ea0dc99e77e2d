package dag

// State is the execution state of a node. Transitions only move forward:
// Idle, Waiting, Running, Finished.
type State int32

const (
	// Idle means the node has not been started.
	Idle State = iota
	// Waiting means the node was started and is queued on its executor.
	Waiting
	// Running means the node's body is executing.
	Running
	// Finished means the body returned and completion was propagated.
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Affinity selects the executor a node body runs on.
type Affinity int

const (
	// PoolAffinity runs the node on the shared worker pool.
	PoolAffinity Affinity = iota
	// SerialAffinity runs the node on the single serial executor.
	SerialAffinity
)

func (a Affinity) String() string {
	if a == SerialAffinity {
		return "serial"
	}
	return "pool"
}

// ParseAffinity maps a descriptor hint to an Affinity. The empty string
// means the pool.
func ParseAffinity(s string) (Affinity, bool) {
	switch s {
	case "", "pool":
		return PoolAffinity, true
	case "serial", "main", "ui":
		return SerialAffinity, true
	default:
		return PoolAffinity, false
	}
}
