package llm

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestPickHTTPClientHonorsCustomClient(t *testing.T) {
	custom := &http.Client{Timeout: 42 * time.Second}
	if got := pickHTTPClient(custom); got != custom {
		t.Fatalf("expected custom client to be returned")
	}
}

func TestPickHTTPClientUsesLongerTimeout(t *testing.T) {
	client := pickHTTPClient(nil)
	if client.Timeout != defaultLLMHTTPTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultLLMHTTPTimeout, client.Timeout)
	}
}

func TestNewRequiresOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New(Config{Provider: "openai"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "bard"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewOllamaUsesEnvironment(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://ollama:11434/")
	t.Setenv("OLLAMA_MODEL", "mistral")

	client, err := New(Config{Provider: "Ollama"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	oc, ok := client.(*ollamaClient)
	if !ok {
		t.Fatalf("expected ollama client, got %T", client)
	}
	if oc.host != "http://ollama:11434" || oc.model != "mistral" {
		t.Fatalf("unexpected client %+v", oc)
	}
	if oc.maxTokens != defaultMaxContextTokens {
		t.Fatalf("maxTokens = %d", oc.maxTokens)
	}
	if client.Name() != "Ollama (mistral)" {
		t.Fatalf("name = %q", client.Name())
	}
}

func TestSystemPromptCarriesPaper(t *testing.T) {
	prompt := SystemPrompt("Gene X Study", "Genes matter.")
	for _, want := range []string{"Title: Gene X Study", "Content: Genes matter.", "If the answer cannot be found in the paper, clearly state that."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestFitContentKeepsShortText(t *testing.T) {
	content := "Short paper text."
	if got := fitContent(content, "anything", 100, approxTokenizer{}); got != content {
		t.Fatalf("fitContent = %q", got)
	}
}

func TestFitContentPrefersQuestionSentences(t *testing.T) {
	content := strings.Join([]string{
		"We recruited patients from three hospitals.",
		"Blood pressure fell by ten points.",
		"Funding came from a national grant.",
		"Blood pressure stayed low at follow up.",
	}, " ")
	got := fitContent(content, "What happened to blood pressure?", 20, approxTokenizer{})
	want := "Blood pressure fell by ten points. Blood pressure stayed low at follow up."
	if got != want {
		t.Fatalf("fitContent = %q, want %q", got, want)
	}
}

func TestFitContentTruncatesToBudget(t *testing.T) {
	content := strings.Repeat("x", 400)
	got := fitContent(content, "", 10, approxTokenizer{})
	if len(got) != 10*approxCharsPerToken {
		t.Fatalf("len = %d", len(got))
	}
}

func TestApproxTokenizerCount(t *testing.T) {
	tok := approxTokenizer{}
	if got := tok.Count("abcde"); got != 2 {
		t.Fatalf("Count = %d", got)
	}
	if got := tok.Truncate("héllo world", 1); got != "héll" {
		t.Fatalf("Truncate = %q", got)
	}
}

func TestRankingText(t *testing.T) {
	if got := RankingText("T", "A"); got != "Title: T\nAbstract: A" {
		t.Fatalf("RankingText = %q", got)
	}
}
