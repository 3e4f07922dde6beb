package phase

// Kind identifies which stage of a round the machine is in.
type Kind string

const (
	KindIdle     Kind = "idle"
	KindSum      Kind = "sum"
	KindUpdate   Kind = "update"
	KindSum2     Kind = "sum2"
	KindUnmask   Kind = "unmask"
	KindError    Kind = "error"
	KindShutdown Kind = "shutdown"
)

// validTransitions enumerates the edges the machine is allowed to take.
// KindError is reachable from every collecting phase and always falls back
// to KindIdle; KindShutdown is reachable from anywhere and never leaves.
var validTransitions = map[Kind][]Kind{
	KindIdle:   {KindSum, KindShutdown},
	KindSum:    {KindUpdate, KindError, KindShutdown},
	KindUpdate: {KindSum2, KindError, KindShutdown},
	KindSum2:   {KindUnmask, KindError, KindShutdown},
	KindUnmask: {KindIdle, KindError, KindShutdown},
	KindError:  {KindIdle, KindShutdown},
}

func isValidTransition(from, to Kind) bool {
	for _, k := range validTransitions[from] {
		if k == to {
			return true
		}
	}
	return false
}
