package placement

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCandidateNames(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := candidateNames("report.final.txt", 2, at)
	want := []string{"report.final.txt", "report.final_1.txt", "report.final_2.txt", "report.final_20260102T030405.txt"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d = %q, want %q", i, got[i], want[i])
		}
	}
	if names := candidateNames("Makefile", 0, at); names[1] != "Makefile_20260102T030405" {
		t.Fatalf("unexpected names for extensionless file: %v", names)
	}
}

func TestNextFreeNameSkipsOrphanSidecar(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, sidecarName("a.txt")), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	name, err := nextFreeName(dir, "a.txt", 3, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if name != "a_1.txt" {
		t.Fatalf("expected a_1.txt, got %s", name)
	}
}

func TestIsUnavailable(t *testing.T) {
	if !isUnavailable(os.ErrNotExist) || !isUnavailable(errProbeTimeout) {
		t.Fatal("expected missing and timed-out roots to count as unavailable")
	}
	if isUnavailable(errors.New("other")) {
		t.Fatal("unexpected classification")
	}
}
