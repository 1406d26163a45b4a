package textutil_test

import (
	"testing"

	"docket/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":        "report.pdf",
		"  a/b\\c:d*e.txt ": "a-b-c-d-e.txt",
		"what?<>|.doc":      "what.doc",
		"..":                "",
	}
	for input, want := range cases {
		if got := textutil.SanitizeFileName(input); got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeSegmentFallback(t *testing.T) {
	if got := textutil.SanitizeSegment(" ../ ", "unknown"); got != "-" {
		t.Fatalf("unexpected segment %q", got)
	}
	if got := textutil.SanitizeSegment("...", "unknown"); got != "unknown" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := textutil.SanitizeSegment("Design Ops", "unknown"); got != "Design Ops" {
		t.Fatalf("unexpected segment %q", got)
	}
}

func TestContainsFold(t *testing.T) {
	if !textutil.ContainsFold("STRASSE", "Hauptstraße plan") {
		t.Fatal("expected folded match for sharp s")
	}
	if !textutil.ContainsFold("", "anything") {
		t.Fatal("empty needle should match")
	}
	if textutil.ContainsFold("budget", "roadmap", "notes") {
		t.Fatal("unexpected match")
	}
	if !textutil.EqualFold(" Design ", "design") {
		t.Fatal("expected equal fold")
	}
}
