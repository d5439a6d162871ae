package transfer

// Direction of a transfer.
type Direction int

const (
	Upload Direction = iota
	Download
)

func (d Direction) String() string {
	switch d {
	case Upload:
		return "upload"
	case Download:
		return "download"
	default:
		return "unknown"
	}
}

// State of a transfer. Completed and Failed are terminal.
type State int

const (
	Pending State = iota
	InProgress
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == Completed || s == Failed }

// Event is one notification for a transfer.
type Event struct {
	TransferID   string
	Key          string
	Bucket       string
	Direction    Direction
	State        State
	BytesCurrent int64

	// Changed is true when this event moved the transfer into State.
	Changed bool

	// BytesTotal is 0 when the size is not known yet.
	BytesTotal int64

	// Path is the written destination, set on a Completed download.
	Path string

	// Err is set on Failed.
	Err error
}

// Percent returns progress in [0, 100]; 0 when the total is unknown.
func (e Event) Percent() float64 {
	if e.BytesTotal <= 0 {
		return 0
	}
	p := float64(e.BytesCurrent) / float64(e.BytesTotal) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Observer receives transfer events. Events for one transfer arrive in order,
// on that transfer's goroutine; an observer shared by several transfers must
// be safe for concurrent use.
//
// Done is closed only after every observer has returned from the terminal
// event, so OnEvent must not call Wait or receive from Done on the same
// transfer; it would block forever.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Listener splits events into state, progress and error callbacks.
// Nil callbacks are skipped.
type Listener struct {
	OnStateChanged    func(id string, state State)
	OnProgressChanged func(id string, bytesCurrent, bytesTotal int64)
	OnError           func(id string, err error)
}

func (l Listener) OnEvent(e Event) {
	if e.State == Failed && l.OnError != nil {
		l.OnError(e.TransferID, e.Err)
	}
	if e.State == InProgress && l.OnProgressChanged != nil {
		l.OnProgressChanged(e.TransferID, e.BytesCurrent, e.BytesTotal)
	}
	if e.Changed && l.OnStateChanged != nil {
		l.OnStateChanged(e.TransferID, e.State)
	}
}
