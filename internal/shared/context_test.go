package shared

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	if got := TraceID(ctx); got != "-" {
		t.Errorf("empty context trace id = %q, want -", got)
	}
	if got := AgentID(ctx); got != "" {
		t.Errorf("empty context agent id = %q, want empty", got)
	}

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithAgentID(ctx, "agent-1")
	ctx = WithCycleID(ctx, "cycle-1")

	if got := TraceID(ctx); got != "trace-1" {
		t.Errorf("trace id = %q", got)
	}
	if got := AgentID(ctx); got != "agent-1" {
		t.Errorf("agent id = %q", got)
	}
	if got := CycleID(ctx); got != "cycle-1" {
		t.Errorf("cycle id = %q", got)
	}
}

func TestNewIDsAreUnique(t *testing.T) {
	if NewTraceID() == NewTraceID() {
		t.Error("trace ids collided")
	}
	if NewCycleID() == NewCycleID() {
		t.Error("cycle ids collided")
	}
}
