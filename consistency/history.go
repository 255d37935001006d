// Package consistency implements a Wing-Gong-style backtracking checker
// for linearizability and sequential consistency over a recorded history
// of register operations, meant to be plugged into an actor model as an
// Always property via Tester.Check.
package consistency

// ClientID identifies the process that invoked an operation.
type ClientID int

// OpKind distinguishes the two register operations this tester
// understands: Put(v) and Get() -> v.
type OpKind int

const (
	Put OpKind = iota
	Get
)

func (k OpKind) String() string {
	if k == Put {
		return "Put"
	}
	return "Get"
}

// Op is one invocation of the sequential register spec.
type Op struct {
	Kind  OpKind
	Value int // argument for Put, return value for Get
}

// Record is one client's invocation/return pair. InvTime and RetTime are
// a logical clock (e.g. the depth or step count at which the event
// occurred), not wall time, so histories replay deterministically.
// Pending records (no return yet) are excluded from the serialization
// search entirely.
type Record struct {
	Client  ClientID
	Op      Op
	InvTime int
	RetTime int
	Pending bool
}

// History is the full recorded sequence of operations across all clients,
// in the order the ActorModel's record hooks observed them. It is a plain
// value so it composes cleanly into an ActorModelState's History field.
type History struct {
	Records []Record
}

// Invoke appends a new pending record and returns its index, to be
// completed later by Return.
func (h History) Invoke(client ClientID, op Op, invTime int) (History, int) {
	idx := len(h.Records)
	records := make([]Record, len(h.Records), len(h.Records)+1)
	copy(records, h.Records)
	records = append(records, Record{Client: client, Op: op, InvTime: invTime, Pending: true})
	h.Records = records
	return h, idx
}

// Return completes the pending record at idx with a return time and
// (for Get) the observed return value.
func (h History) Return(idx int, retTime int, retValue int) History {
	records := make([]Record, len(h.Records))
	copy(records, h.Records)
	r := records[idx]
	r.Pending = false
	r.RetTime = retTime
	if r.Op.Kind == Get {
		r.Op.Value = retValue
	}
	records[idx] = r
	h.Records = records
	return h
}
