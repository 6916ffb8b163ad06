package guide

import (
	"strings"
	"testing"
)

func TestBuildPersonalizesFirstQuestion(t *testing.T) {
	steps := Build(Metadata{Title: "Gene X Study.", HasAbstract: true})
	if len(steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(steps))
	}
	if !strings.Contains(steps[0].Prompt, `"Gene X Study"`) {
		t.Fatalf("first prompt should quote the title, got %q", steps[0].Prompt)
	}
	for _, step := range steps {
		if step.Title == "" || step.Prompt == "" {
			t.Fatalf("empty step %+v", step)
		}
	}
}

func TestBuildWithoutTitle(t *testing.T) {
	steps := Build(Metadata{})
	if !strings.Contains(steps[0].Prompt, "this paper") {
		t.Fatalf("expected generic title, got %q", steps[0].Prompt)
	}
	if !strings.Contains(steps[0].Prompt, "abstract may be missing") {
		t.Fatalf("expected abstract hint, got %q", steps[0].Prompt)
	}
}
