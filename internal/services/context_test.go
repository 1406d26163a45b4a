package services_test

import (
	"context"
	"testing"

	"docket/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSubmissionID(ctx, "sub-1")
	ctx = services.WithActor(ctx, "alice")
	ctx = services.WithOperation(ctx, "submit")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.SubmissionIDFromContext(ctx); !ok || id != "sub-1" {
		t.Fatalf("unexpected submission id: %v %v", id, ok)
	}
	if actor, ok := services.ActorFromContext(ctx); !ok || actor != "alice" {
		t.Fatalf("unexpected actor: %v %v", actor, ok)
	}
	if op, ok := services.OperationFromContext(ctx); !ok || op != "submit" {
		t.Fatalf("unexpected operation: %v %v", op, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := services.WithOperation(context.Background(), "")
	if _, ok := services.OperationFromContext(ctx); ok {
		t.Fatal("expected no operation value")
	}
}
