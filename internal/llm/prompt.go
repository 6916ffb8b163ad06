package llm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// SystemPrompt grounds the assistant in one paper.
func SystemPrompt(title, content string) string {
	return fmt.Sprintf(`You are a helpful AI assistant that helps users understand research papers. 
You have access to the following paper:

Title: %s

Content: %s

Your task is to help the user understand this paper by answering their questions accurately based on the paper's content.
If the answer cannot be found in the paper, clearly state that. Always maintain scientific accuracy and cite specific sections
when possible. If you're making an inference or connection not explicitly stated in the paper, make that clear.`, title, content)
}

// fitContent returns content unchanged when it fits maxTokens. Longer papers
// keep the sentences that mention the question's keywords, in order, and are
// then truncated to the budget.
func fitContent(content, question string, maxTokens int, tok Tokenizer) string {
	content = strings.TrimSpace(content)
	if content == "" || maxTokens <= 0 || tok.Count(content) <= maxTokens {
		return content
	}
	if focused := questionSentences(content, question); focused != "" {
		content = focused
	}
	return tok.Truncate(content, maxTokens)
}

func questionSentences(content, question string) string {
	keywords := questionKeywords(question)
	if len(keywords) == 0 {
		return ""
	}
	var matches []string
	for _, sentence := range roughSentenceSplit(content) {
		lower := strings.ToLower(sentence)
		for keyword := range keywords {
			if strings.Contains(lower, keyword) {
				matches = append(matches, sentence)
				break
			}
		}
	}
	return strings.Join(matches, " ")
}

func questionKeywords(question string) map[string]struct{} {
	question = strings.ToLower(whitespaceRe.ReplaceAllString(question, " "))
	tokens := strings.FieldsFunc(question, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	stopwords := map[string]struct{}{
		"what": {}, "why": {}, "how": {}, "the": {}, "does": {}, "paper": {},
		"study": {}, "authors": {}, "this": {}, "that": {}, "with": {}, "was": {},
		"were": {}, "for": {}, "are": {}, "and": {}, "which": {}, "did": {},
	}
	keywords := map[string]struct{}{}
	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		keywords[token] = struct{}{}
	}
	return keywords
}

func roughSentenceSplit(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// RankingText is the text embedded for a paper when ranking search results.
func RankingText(title, abstract string) string {
	return "Title: " + title + "\nAbstract: " + abstract
}
