package agent

import "errors"

var (
	ErrUnknownAction  = errors.New("action is not pending")
	ErrActionInFlight = errors.New("another action is being resolved")
)

// actionGate tracks tool invocations awaiting human confirmation. An action
// id lives in at most one of pending or confirming; resolving removes it
// from both. Only one action may be in flight at a time.
type actionGate struct {
	pending    map[string]struct{}
	order      []string
	confirming string
}

func newActionGate() *actionGate {
	return &actionGate{pending: map[string]struct{}{}}
}

func (g *actionGate) Register(id string) {
	if g == nil || id == "" {
		return
	}
	if _, ok := g.pending[id]; ok {
		return
	}
	g.pending[id] = struct{}{}
	g.order = append(g.order, id)
}

func (g *actionGate) Resolve(id string) {
	if g == nil || id == "" {
		return
	}
	if _, ok := g.pending[id]; !ok {
		return
	}
	delete(g.pending, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Begin moves id from pending to confirming.
func (g *actionGate) Begin(id string) error {
	if g == nil {
		return ErrUnknownAction
	}
	if g.confirming != "" {
		return ErrActionInFlight
	}
	if _, ok := g.pending[id]; !ok {
		return ErrUnknownAction
	}
	g.Resolve(id)
	g.confirming = id
	return nil
}

// End clears the confirming slot. Guaranteed-cleanup counterpart of Begin;
// callers defer it regardless of how the confirm or reject request went.
func (g *actionGate) End(id string) {
	if g == nil {
		return
	}
	if g.confirming == id {
		g.confirming = ""
	}
}

func (g *actionGate) HasPending() bool {
	return g != nil && len(g.pending) > 0
}

// Pending returns pending action ids in registration order.
func (g *actionGate) Pending() []string {
	if g == nil || len(g.order) == 0 {
		return nil
	}
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *actionGate) Clear() {
	if g == nil {
		return
	}
	g.pending = map[string]struct{}{}
	g.order = nil
	g.confirming = ""
}
