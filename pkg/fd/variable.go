package fd

import "fmt"

// Event is a bitmask describing how a variable changed.
type Event uint8

const (
	// EventRemove fires on any change of an integer domain.
	EventRemove Event = 1 << iota
	// EventBound fires when the minimum or maximum of an integer domain moves.
	EventBound
	// EventInstantiate fires when an integer domain becomes a singleton.
	EventInstantiate
	// EventKernel fires when a set's kernel grows.
	EventKernel
	// EventEnvelope fires when a set's envelope shrinks.
	EventEnvelope
)

const (
	// EventAnyInt matches every integer event.
	EventAnyInt = EventRemove | EventBound | EventInstantiate
	// EventAnySet matches every set event.
	EventAnySet = EventKernel | EventEnvelope
)

// varRef identifies a variable inside a Store independent of its kind.
type varRef struct {
	set bool
	id  int
}

// Var is implemented by *IntVar and *SetVar.
type Var interface {
	Name() string
	ref() varRef
}

// IntVar is a handle on an integer variable. The domain lives in the Store
// that created it; an IntVar is only meaningful together with that Store.
// Boolean variables are IntVars over {0, 1}.
type IntVar struct {
	id   int
	name string
}

// ID returns the variable's index in its store.
func (v *IntVar) ID() int { return v.id }

// Name returns the variable's debug name.
func (v *IntVar) Name() string { return v.name }

func (v *IntVar) ref() varRef { return varRef{id: v.id} }

// String implements fmt.Stringer.
func (v *IntVar) String() string { return fmt.Sprintf("%s#%d", v.name, v.id) }

// SetVar is a handle on a set variable: an envelope, a kernel and an owned
// cardinality variable.
type SetVar struct {
	id   int
	name string
	card *IntVar
}

// ID returns the variable's index among the store's set variables.
func (v *SetVar) ID() int { return v.id }

// Name returns the variable's debug name.
func (v *SetVar) Name() string { return v.name }

// Card returns the cardinality variable paired with this set.
func (v *SetVar) Card() *IntVar { return v.card }

func (v *SetVar) ref() varRef { return varRef{set: true, id: v.id} }

// String implements fmt.Stringer.
func (v *SetVar) String() string { return fmt.Sprintf("%s#s%d", v.name, v.id) }
