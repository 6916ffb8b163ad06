// Package guide suggests opening questions for a chat about one paper.
package guide

import (
	"fmt"
	"strings"
)

// Step is one suggested question. Prompt is what gets sent to the chat
// endpoint when the user picks it.
type Step struct {
	Title  string
	Prompt string
}

// Metadata carries just enough context for personalizing the questions.
type Metadata struct {
	Title       string
	HasAbstract bool
}

// Build returns starter questions that walk a reader from a quick skim to a
// critical read of a biomedical paper.
func Build(meta Metadata) []Step {
	displayTitle := strings.TrimSpace(meta.Title)
	if displayTitle == "" {
		displayTitle = "this paper"
	} else {
		displayTitle = fmt.Sprintf("%q", strings.TrimSuffix(displayTitle, "."))
	}

	steps := []Step{
		{
			Title:  "Main finding",
			Prompt: fmt.Sprintf("In two or three sentences, what is the main finding of %s?", displayTitle),
		},
		{
			Title:  "Study design",
			Prompt: "What study design was used, and who or what was studied (population, sample size, model system)?",
		},
		{
			Title:  "Methods",
			Prompt: "Which methods, assays or statistical analyses support the main result?",
		},
		{
			Title:  "Limitations",
			Prompt: "What limitations or potential sources of bias do the authors acknowledge, and are there others worth noting?",
		},
		{
			Title:  "Clinical relevance",
			Prompt: "What are the practical or clinical implications, and what follow-up work do the authors suggest?",
		},
	}
	if !meta.HasAbstract {
		steps[0].Prompt += " The abstract may be missing, so rely on the body text."
	}
	return steps
}
