package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/retry"
)

const (
	maxModelTopics  = 5
	maxSummaryLen   = 300
	extractorSystem = "You are a metadata extraction system. Output only valid JSON."
)

// ModelExtractor asks the generation capability for structured metadata.
// Any call failure falls back to the heuristic extractor; a response that
// contains no parseable JSON yields empty metadata. Neither case surfaces
// an error, so a save can never fail on extraction.
type ModelExtractor struct {
	ai       core.AIProvider
	fallback core.Extractor
	retrier  *retry.Retrier
	timeout  time.Duration
}

func NewModelExtractor(ai core.AIProvider, fallback core.Extractor, timeout time.Duration) *ModelExtractor {
	return &ModelExtractor{
		ai:       ai,
		fallback: fallback,
		retrier:  retry.NewDefaultRetrier(),
		timeout:  timeout,
	}
}

func (e *ModelExtractor) Extract(ctx context.Context, messages []core.Message) (core.Metadata, error) {
	logger := log.FromCtx(ctx)

	if e.ai == nil {
		return e.fallback.Extract(ctx, messages)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var resp core.Message
	err := e.retrier.Do(callCtx, func() error {
		var chatErr error
		resp, chatErr = e.ai.Chat(callCtx, extractorSystem, []core.Message{
			{Role: core.RoleUser, Content: buildExtractionPrompt(messages)},
		})
		return chatErr
	})
	if err != nil {
		logger.Warn().Err(err).Msg("model extraction failed, falling back to heuristics")
		return e.fallback.Extract(ctx, messages)
	}

	md, ok := parseMetadataResponse(resp.Content)
	if !ok {
		logger.Warn().Msg("model extraction returned no parseable JSON")
		return core.Metadata{Sentiment: "neutral"}, nil
	}

	if len(md.Topics) > maxModelTopics {
		md.Topics = md.Topics[:maxModelTopics]
	}
	md.Summary = truncate(md.Summary, maxSummaryLen)
	if md.Sentiment == "" {
		md.Sentiment = "neutral"
	}
	md.WordCount = len(strings.Fields(joinContent(messages)))

	return md, nil
}

func buildExtractionPrompt(messages []core.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteByte('\n')
	}

	return fmt.Sprintf(`Extract the following metadata from the given conversation:
1. Top 5 most significant topics (as individual words or short phrases)
2. A concise summary (1-2 sentences maximum)
3. Key entities or names mentioned (as a list)
4. Sentiment (positive, negative, or neutral)
5. Any questions that were asked

Conversation:
%s
Respond with a JSON object only, no explanation or other text.
Use this format:
{
    "topics": ["topic1", "topic2", "topic3", "topic4", "topic5"],
    "summary": "Concise conversation summary",
    "key_entities": ["entity1", "entity2"],
    "sentiment": "positive/negative/neutral",
    "questions": ["question1", "question2"]
}`, b.String())
}

// parseMetadataResponse locates the first well-formed JSON object in the
// response, tolerating code fences and surrounding prose.
func parseMetadataResponse(content string) (core.Metadata, bool) {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")

	obj := firstJSONObject(content)
	if obj == "" {
		return core.Metadata{}, false
	}

	var md core.Metadata
	if err := json.Unmarshal([]byte(obj), &md); err != nil {
		return core.Metadata{}, false
	}
	return md, true
}

// firstJSONObject returns the first balanced {...} span, tracking string
// literals so braces inside values do not confuse the depth count.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
