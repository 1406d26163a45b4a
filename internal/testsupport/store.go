package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"docket/internal/config"
	"docket/internal/logging"
	"docket/internal/queue"
	"docket/internal/submission"
)

// MustOpenStore opens a queue.Store for tests.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	return store
}

// NewSubmission builds a pending-team-lead submission for owner and team.
func NewSubmission(owner, team, name string) *submission.Submission {
	now := time.Now().UTC()
	return &submission.Submission{
		ID:          uuid.NewString(),
		Artifact:    submission.Artifact{OwnerID: owner, Name: name, Size: 1, WorkingPath: "/work/" + owner + "/" + name},
		SubmitterID: owner,
		Team:        team,
		Status:      submission.StatusPendingTeamLead,
		CreatedAt:   now,
		History: []submission.HistoryEntry{
			{Status: submission.StatusPendingTeamLead, Actor: owner, At: now},
		},
		ArtifactInWorkingArea: true,
	}
}

// MustEnqueue enqueues a fresh submission and returns it.
func MustEnqueue(t testing.TB, store *queue.Store, owner, team, name string) *submission.Submission {
	t.Helper()
	sub := NewSubmission(owner, team, name)
	if err := store.Enqueue(context.Background(), sub); err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return sub
}
