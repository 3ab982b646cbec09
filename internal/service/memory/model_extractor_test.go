package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
)

func TestParseMetadataResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ok      bool
		topics  []string
	}{
		{
			name:    "bare json object",
			content: `{"topics": ["ocean"], "summary": "s", "sentiment": "positive"}`,
			ok:      true,
			topics:  []string{"ocean"},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"topics\": [\"vampire\"]}\n```",
			ok:      true,
			topics:  []string{"vampire"},
		},
		{
			name:    "json wrapped in prose",
			content: `Sure! Here is the metadata: {"topics": ["poetry"], "summary": "a verse"} Hope that helps.`,
			ok:      true,
			topics:  []string{"poetry"},
		},
		{
			name:    "braces inside string values",
			content: `{"topics": [], "summary": "he wrote {unbalanced} notes"}`,
			ok:      true,
		},
		{
			name:    "no json at all",
			content: "I'd rather talk about the weather.",
			ok:      false,
		},
		{
			name:    "malformed object",
			content: `{"topics": [unquoted]}`,
			ok:      false,
		},
		{
			name:    "truncated object",
			content: `{"topics": ["ocean"`,
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, ok := parseMetadataResponse(tt.content)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if len(tt.topics) > 0 && !strings.EqualFold(md.Topics[0], tt.topics[0]) {
				t.Errorf("topics = %v, want %v", md.Topics, tt.topics)
			}
		})
	}
}

func TestModelExtractor_Extract(t *testing.T) {
	messages := []core.Message{
		{Role: core.RoleUser, Content: "tell me about the ocean"},
		{Role: core.RoleAssistant, Content: "the ocean is vast"},
	}

	t.Run("uses model response", func(t *testing.T) {
		ai := &mockAI{chat: func(_ context.Context, system string, _ []core.Message) (core.Message, error) {
			if system != extractorSystem {
				t.Errorf("system prompt = %q", system)
			}
			return core.Message{Content: `{"topics": ["ocean", "vastness"], "summary": "ocean talk", "sentiment": ""}`}, nil
		}}

		e := NewModelExtractor(ai, NewHeuristicExtractor(), time.Second)
		md, err := e.Extract(context.Background(), messages)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if md.Summary != "ocean talk" {
			t.Errorf("summary = %q", md.Summary)
		}
		if md.Sentiment != "neutral" {
			t.Errorf("empty sentiment must default to neutral, got %q", md.Sentiment)
		}
		if md.WordCount != 9 {
			t.Errorf("word count = %d, want 9", md.WordCount)
		}
	})

	t.Run("call failure falls back to heuristics", func(t *testing.T) {
		ai := &mockAI{chat: func(context.Context, string, []core.Message) (core.Message, error) {
			return core.Message{}, errors.New("timeout")
		}}

		e := NewModelExtractor(ai, NewHeuristicExtractor(), 50*time.Millisecond)
		md, err := e.Extract(context.Background(), messages)
		if err != nil {
			t.Fatalf("fallback must not surface an error: %v", err)
		}
		// Heuristic fallback still finds the keyword group.
		if len(md.Topics) == 0 || md.Topics[0] != "ocean" {
			t.Errorf("topics = %v, want heuristic ocean topic", md.Topics)
		}
	})

	t.Run("unparseable response yields empty metadata", func(t *testing.T) {
		ai := &mockAI{chat: func(context.Context, string, []core.Message) (core.Message, error) {
			return core.Message{Content: "no json here"}, nil
		}}

		e := NewModelExtractor(ai, NewHeuristicExtractor(), time.Second)
		md, err := e.Extract(context.Background(), messages)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !md.IsEmpty() {
			t.Errorf("metadata = %+v, want empty", md)
		}
		if md.Sentiment != "neutral" {
			t.Errorf("sentiment = %q, want neutral", md.Sentiment)
		}
	})

	t.Run("topic and summary caps", func(t *testing.T) {
		ai := &mockAI{chat: func(context.Context, string, []core.Message) (core.Message, error) {
			return core.Message{Content: `{"topics": ["a","b","c","d","e","f","g"], "summary": "` +
				strings.Repeat("x", 400) + `"}`}, nil
		}}

		e := NewModelExtractor(ai, NewHeuristicExtractor(), time.Second)
		md, err := e.Extract(context.Background(), messages)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(md.Topics) != maxModelTopics {
			t.Errorf("topics = %d, want %d", len(md.Topics), maxModelTopics)
		}
		if len(md.Summary) != maxSummaryLen {
			t.Errorf("summary length = %d, want %d", len(md.Summary), maxSummaryLen)
		}
	})

	t.Run("nil provider delegates to fallback", func(t *testing.T) {
		e := NewModelExtractor(nil, NewHeuristicExtractor(), time.Second)
		md, err := e.Extract(context.Background(), messages)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(md.Topics) == 0 {
			t.Error("expected heuristic topics")
		}
	})
}
