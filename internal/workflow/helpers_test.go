package workflow_test

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"docket/internal/config"
	"docket/internal/logging"
	"docket/internal/notifications"
	"docket/internal/submission"
	"docket/internal/testsupport"
	"docket/internal/workflow"
)

var (
	alice = submission.Principal{ID: "alice", Role: submission.RoleUser, Teams: []string{"design"}}
	bob   = submission.Principal{ID: "bob", Role: submission.RoleTeamLead, Teams: []string{"design"}}
	dana  = submission.Principal{ID: "dana", Role: submission.RoleTeamLead, Teams: []string{"structures"}}
	carol = submission.Principal{ID: "carol", Role: submission.RoleAdmin}
)

var epoch = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) has(event notifications.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, event)
}

type harness struct {
	t     *testing.T
	cfg   *config.Config
	base  string
	mgr   *workflow.Manager
	notes *recordingNotifier
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	notes := &recordingNotifier{}

	var (
		mu   sync.Mutex
		tick int
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return epoch.Add(time.Duration(tick) * time.Second)
	}

	mgr, err := workflow.NewManager(context.Background(), cfg, logging.NewNop(),
		workflow.WithNotifier(notes), workflow.WithClock(clock))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })
	return &harness{t: t, cfg: cfg, base: testsupport.BaseDir(cfg), mgr: mgr, notes: notes}
}

// working writes an artifact into owner's working area.
func (h *harness) working(owner, name string) string {
	h.t.Helper()
	return testsupport.WorkingFile(h.t, h.base, owner, name, 2048)
}

func (h *harness) submit(p submission.Principal, path, description string) string {
	h.t.Helper()
	res, err := h.mgr.Submit(context.Background(), p, workflow.SubmitRequest{Path: path, Description: description, Tags: []string{"cad"}})
	if err != nil {
		h.t.Fatalf("Submit: %v", err)
	}
	if !res.OK {
		h.t.Fatalf("Submit refused: %s", res.Reason)
	}
	return res.SubmissionID
}

func (h *harness) teamLead(p submission.Principal, id string, d workflow.Decision, reason string) workflow.Result {
	h.t.Helper()
	res, err := h.mgr.DecideTeamLead(context.Background(), p, id, d, reason)
	if err != nil {
		h.t.Fatalf("DecideTeamLead: %v", err)
	}
	return res
}

func (h *harness) admin(id string, d workflow.Decision, reason string) workflow.Result {
	h.t.Helper()
	res, err := h.mgr.DecideAdmin(context.Background(), carol, id, d, reason)
	if err != nil {
		h.t.Fatalf("DecideAdmin: %v", err)
	}
	return res
}

// toAdmin submits name for alice and passes team lead review.
func (h *harness) toAdmin(name string) (string, string) {
	h.t.Helper()
	path := h.working("alice", name)
	id := h.submit(alice, path, "rev3")
	if res := h.teamLead(bob, id, workflow.DecisionApprove, ""); !res.OK {
		h.t.Fatalf("team lead approve refused: %s", res.Reason)
	}
	return id, path
}

func (h *harness) projectPath(parts ...string) string {
	return filepath.Join(append([]string{h.cfg.Paths.ProjectsDir}, parts...)...)
}
