package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/beesandtrees/ocean-breeze-chat/internal/config"
	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/internal/service/memory"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

// memoryCues mark a user turn as an explicit recall request. When one is
// present the related conversations found by the ranker are surfaced to the
// model as recollections instead of staying silent background context.
var memoryCues = []string{
	"remember when",
	"remember talking about",
	"we discussed",
	"we talked about",
	"previous conversation",
	"earlier you said",
	"you told me",
	"you mentioned",
	"you said",
}

type Chat struct {
	appCfg *config.AppConfig
	ai     core.AIProvider
	memory *memory.Service
}

func NewChat(appCfg *config.AppConfig, ai core.AIProvider, mem *memory.Service) *Chat {
	return &Chat{
		appCfg: appCfg,
		ai:     ai,
		memory: mem,
	}
}

// Run executes one exchange: assemble memory context, call the model and
// persist the completed exchange. The exchange is saved even when metadata
// extraction later fails, so a reply is never lost to enrichment errors.
func (c *Chat) Run(ctx context.Context, persona, userID, input string, onUpdate func(core.Message)) (string, error) {
	logger := log.FromCtx(ctx)

	var query string
	if isMemoryQuery(input) {
		query = input
	}

	memCtx := c.memory.BuildContext(ctx, persona, query)

	system := c.appCfg.SystemPrompt
	if memCtx.SystemContext != "" {
		system += "\n\n" + memCtx.SystemContext
	}
	if query != "" && len(memCtx.Relevant) > 0 {
		system += "\n\n" + recollections(memCtx.Relevant)
	}

	history := flattenImmediate(memCtx.Immediate)
	userMsg := core.Message{Role: core.RoleUser, Content: input, Timestamp: time.Now().Unix()}
	history = append(history, userMsg)

	responseMsg, err := c.ai.Chat(ctx, system, history)
	if err != nil {
		return "", fmt.Errorf("ai chat error: %w", err)
	}

	if onUpdate != nil {
		onUpdate(responseMsg)
	}

	if _, err := c.memory.SaveExchange(ctx, persona, userID, []core.Message{userMsg, responseMsg}); err != nil {
		logger.Error().Err(err).Str("persona", persona).Msg("failed to save exchange")
	}

	return responseMsg.Content, nil
}

// flattenImmediate turns the immediate tier into a flat chronological
// history. Records arrive newest-first, so they are walked backwards.
func flattenImmediate(immediate []core.ConversationRecord) []core.Message {
	var history []core.Message
	for i := len(immediate) - 1; i >= 0; i-- {
		for _, msg := range immediate[i].Messages {
			if msg.Role == core.RoleSystem {
				continue
			}
			history = append(history, msg)
		}
	}
	return history
}

// recollections renders ranked matches as lines the model can quote from.
func recollections(related []core.ScoredConversation) string {
	var sb strings.Builder
	sb.WriteString("The user is asking about a past conversation. You recall:\n")
	for _, sc := range related {
		summary := sc.Record.Metadata.Summary
		if summary == "" && len(sc.Record.Metadata.Topics) > 0 {
			summary = "a conversation about " + strings.Join(sc.Record.Metadata.Topics, ", ")
		}
		if summary == "" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func isMemoryQuery(input string) bool {
	lowered := strings.ToLower(input)
	for _, cue := range memoryCues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}
