package agent

import (
	"errors"
	"testing"
)

func TestGateRegistrationOrder(t *testing.T) {
	g := newActionGate()
	g.Register("a")
	g.Register("b")
	g.Register("a") // duplicate

	pending := g.Pending()
	if len(pending) != 2 || pending[0] != "a" || pending[1] != "b" {
		t.Fatalf("unexpected pending order %v", pending)
	}
}

func TestGateBeginEnd(t *testing.T) {
	g := newActionGate()
	g.Register("a")
	g.Register("b")

	if err := g.Begin("a"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.Begin("b"); !errors.Is(err, ErrActionInFlight) {
		t.Fatalf("expected ErrActionInFlight, got %v", err)
	}
	g.End("a")
	if err := g.Begin("b"); err != nil {
		t.Fatalf("begin after end: %v", err)
	}
	if err := g.Begin("a"); !errors.Is(err, ErrActionInFlight) {
		t.Fatalf("resolved id must not be pending again")
	}
	g.End("b")
	if err := g.Begin("a"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction for already-resolved id, got %v", err)
	}
}

func TestGateResolveUnknownIsNoop(t *testing.T) {
	g := newActionGate()
	g.Register("a")
	g.Resolve("ghost")
	if !g.HasPending() {
		t.Fatalf("resolving an unknown id must not drop pending actions")
	}
}

func TestGateClear(t *testing.T) {
	g := newActionGate()
	g.Register("a")
	if err := g.Begin("a"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	g.Clear()
	if g.HasPending() || g.confirming != "" {
		t.Fatalf("clear must reset all state")
	}
}
