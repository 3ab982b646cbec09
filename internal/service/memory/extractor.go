package memory

import (
	"context"
	"strings"
	"unicode"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
)

const (
	maxHeuristicTopics = 10
	maxKeyEntities     = 10
	maxQuestions       = 3
	summarySnippetLen  = 100
	adHocTopicMinLen   = 5
)

// topicGroups maps well-known persona themes to their trigger keywords.
// Order matters: it decides which topic comes first in the extracted list.
var topicGroups = []struct {
	name     string
	keywords []string
}{
	{"ocean", []string{"ocean", "sea", "beach", "wave", "shell", "tide"}},
	{"vampire", []string{"vampire", "dracula", "blood", "immortal", "castle"}},
	{"poetry", []string{"poem", "poetry", "verse", "rhyme"}},
	{"game", []string{"game", "play", "puzzle", "quest"}},
}

var stopwords = map[string]struct{}{
	"about": {}, "what": {}, "tell": {}, "when": {}, "where": {},
	"which": {}, "there": {}, "their": {}, "would": {}, "could": {},
	"should": {},
}

// HeuristicExtractor derives metadata with lexical scanning only. It never
// fails and never calls out; it is also the mandatory fallback for the
// model-backed extractor.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

func (e *HeuristicExtractor) Extract(_ context.Context, messages []core.Message) (core.Metadata, error) {
	text := joinContent(messages)
	lower := strings.ToLower(text)

	return core.Metadata{
		Topics:      extractTopics(lower),
		Summary:     truncate(text, summarySnippetLen),
		KeyEntities: extractEntities(text),
		Sentiment:   "neutral",
		Questions:   extractQuestions(messages),
		WordCount:   len(strings.Fields(text)),
	}, nil
}

func joinContent(messages []core.Message) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(msg.Content)
	}
	return strings.TrimSpace(b.String())
}

// extractTopics scans for known keyword groups first, then promotes long
// non-stopword tokens as ad-hoc topics, capped overall.
func extractTopics(lower string) []string {
	var topics []string
	seen := map[string]struct{}{}

	add := func(topic string) bool {
		if _, ok := seen[topic]; ok {
			return len(topics) < maxHeuristicTopics
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
		return len(topics) < maxHeuristicTopics
	}

	for _, group := range topicGroups {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				if !add(group.name) {
					return topics
				}
				break
			}
		}
	}

	for _, token := range splitWords(lower) {
		if len(token) < adHocTopicMinLen || !isAlphabetic(token) {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if !add(token) {
			break
		}
	}

	return topics
}

// extractEntities keeps capitalized tokens that do not open a sentence,
// the closest a lexical pass gets to named-entity recognition.
func extractEntities(text string) []string {
	var entities []string
	seen := map[string]struct{}{}

	sentenceStart := true
	for _, token := range strings.Fields(text) {
		word := strings.TrimFunc(token, func(r rune) bool { return !unicode.IsLetter(r) })
		endsSentence := strings.ContainsAny(token, ".!?")

		if word == "" {
			sentenceStart = endsSentence || sentenceStart
			continue
		}

		first := []rune(word)[0]
		if !sentenceStart && unicode.IsUpper(first) && len(word) >= 3 {
			key := strings.ToLower(word)
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				entities = append(entities, word)
				if len(entities) >= maxKeyEntities {
					break
				}
			}
		}
		sentenceStart = endsSentence
	}

	return entities
}

// extractQuestions returns the up-to-3 most recent distinct questions asked
// by the user, lowercased.
func extractQuestions(messages []core.Message) []string {
	var all []string
	for _, msg := range messages {
		if msg.Role != core.RoleUser {
			continue
		}
		for _, sentence := range strings.Split(msg.Content, ". ") {
			if !strings.Contains(sentence, "?") {
				continue
			}
			q := strings.ToLower(strings.TrimSpace(sentence))
			if len(q) > 5 {
				all = append(all, q)
			}
		}
	}

	// Most recent first, dedup, then restore chronological order.
	var picked []string
	seen := map[string]struct{}{}
	for i := len(all) - 1; i >= 0 && len(picked) < maxQuestions; i-- {
		if _, ok := seen[all[i]]; ok {
			continue
		}
		seen[all[i]] = struct{}{}
		picked = append(picked, all[i])
	}

	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
