package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

const (
	scoreExactTopic    = 10
	scoreExactEntity   = 8
	scorePartialTopic  = 6
	scorePartialEntity = 5
	scoreSummaryMatch  = 3

	minTermLen     = 4
	candidateLimit = 50
)

// Ranker matches query terms against stored metadata and returns a scored,
// deduplicated top-K. The optional AI provider can supply better keywords;
// plain tokenization is always the fallback.
type Ranker struct {
	repo core.ConversationRepository
	ai   core.AIProvider
}

func NewRanker(repo core.ConversationRepository, ai core.AIProvider) *Ranker {
	return &Ranker{repo: repo, ai: ai}
}

func (r *Ranker) FindRelated(ctx context.Context, query, persona string, limit int) ([]core.ScoredConversation, error) {
	if limit <= 0 {
		return []core.ScoredConversation{}, nil
	}

	terms := r.extractQueryTerms(ctx, query)
	if len(terms) == 0 {
		return []core.ScoredConversation{}, nil
	}

	candidates, err := r.candidates(ctx, terms, persona)
	if err != nil {
		return nil, err
	}

	scored := scoreCandidates(candidates, terms)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// candidates pulls potentially matching records from the store. The
// full-text index only matches whole tokens, so it is an additive first
// pass: the persona recency scan always runs alongside it, keeping
// substring-only matches scoreable. scoreCandidates dedupes by id.
func (r *Ranker) candidates(ctx context.Context, terms []string, persona string) ([]core.ConversationRecord, error) {
	indexed, err := r.repo.SearchText(ctx, strings.Join(terms, " "), persona, candidateLimit)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("text search failed, using recency scan only")
		indexed = nil
	}

	if persona == "" {
		return indexed, nil
	}

	scanned, err := r.repo.GetByPersona(ctx, persona, candidateLimit)
	if err != nil {
		if len(indexed) > 0 {
			log.FromCtx(ctx).Warn().Err(err).Msg("recency scan failed, using index matches only")
			return indexed, nil
		}
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return append(indexed, scanned...), nil
}

func scoreCandidates(candidates []core.ConversationRecord, terms []string) []core.ScoredConversation {
	// The index pass and the recency scan overlap, so dedupe by id.
	byID := map[int64]int{}
	scores := map[int64]int{}
	var order []core.ConversationRecord

	for _, record := range candidates {
		if _, ok := byID[record.ID]; ok {
			continue
		}
		byID[record.ID] = len(order)
		order = append(order, record)

		for _, term := range terms {
			scores[record.ID] += scoreTerm(record.Metadata, term)
		}
	}

	var scored []core.ScoredConversation
	for _, record := range order {
		if scores[record.ID] == 0 {
			continue
		}
		scored = append(scored, core.ScoredConversation{Record: record, Score: scores[record.ID]})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.CreatedAt > scored[j].Record.CreatedAt
	})
	return scored
}

// scoreTerm applies the match rules in specificity order; the first rule
// that fires wins for this term, rules never stack.
func scoreTerm(md core.Metadata, term string) int {
	for _, topic := range md.Topics {
		if strings.EqualFold(topic, term) {
			return scoreExactTopic
		}
	}
	for _, entity := range md.KeyEntities {
		if strings.EqualFold(entity, term) {
			return scoreExactEntity
		}
	}
	for _, topic := range md.Topics {
		if containsFold(topic, term) || containsFold(term, topic) {
			return scorePartialTopic
		}
	}
	for _, entity := range md.KeyEntities {
		if containsFold(entity, term) || containsFold(term, entity) {
			return scorePartialEntity
		}
	}
	if containsFold(md.Summary, term) {
		return scoreSummaryMatch
	}
	return 0
}

// extractQueryTerms tokenizes the query, keeping alphabetic tokens of
// useful length and dropping interrogative filler. When an AI provider is
// available it gets the first shot at producing keywords.
func (r *Ranker) extractQueryTerms(ctx context.Context, query string) []string {
	if r.ai != nil {
		if terms := r.modelTerms(ctx, query); len(terms) > 0 {
			return terms
		}
	}
	return tokenizeQuery(query)
}

func tokenizeQuery(query string) []string {
	var terms []string
	seen := map[string]struct{}{}

	for _, token := range strings.Fields(strings.ToLower(query)) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return r < 'a' || r > 'z'
		})
		if len(token) < minTermLen || !isAlphabetic(token) {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, token)
	}
	return terms
}

// modelTerms asks the generation capability for 2-4 search keywords as a
// JSON list. Anything other than a parseable list falls back to
// tokenization.
func (r *Ranker) modelTerms(ctx context.Context, query string) []string {
	prompt := fmt.Sprintf(
		`Extract 2-4 search keywords from this message. Respond with a JSON list of lowercase strings only, no other text: %q`,
		query,
	)

	resp, err := r.ai.Chat(ctx, "", []core.Message{{Role: core.RoleUser, Content: prompt}})
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("keyword extraction call failed")
		return nil
	}

	content := strings.ReplaceAll(resp.Content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")

	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start == -1 || end <= start {
		return nil
	}

	var keywords []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &keywords); err != nil {
		return nil
	}

	var terms []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			terms = append(terms, kw)
		}
	}
	return terms
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
