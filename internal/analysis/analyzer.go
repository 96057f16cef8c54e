// Package analysis turns raw feedback comments into structured judgments and
// folds batches of judgments into an aggregated report. The LLM sits behind
// the JudgmentProvider interface so the pipeline can be exercised without
// network access.
package analysis

import (
	"context"
	"strings"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

const (
	maxThemes   = 3
	maxIssues   = 3
	maxRequests = 3
)

// Analyzer judges single comments. Analyze never returns an error: a failed
// model call degrades to a neutral fallback judgment so one bad comment
// cannot sink a batch.
type Analyzer struct {
	provider JudgmentProvider
	logger   logger.Logger
}

func NewAnalyzer(provider JudgmentProvider, log logger.Logger) *Analyzer {
	return &Analyzer{provider: provider, logger: log}
}

// Analyze judges one comment record, normalizing whatever the model returned
// into the invariants downstream aggregation relies on.
func (a *Analyzer) Analyze(ctx context.Context, record models.CommentRecord) models.CommentJudgment {
	resp, err := a.provider.Judge(ctx, buildPrompt(record))
	if err != nil {
		a.logger.Warn("Comment analysis failed, using fallback judgment",
			logger.Error(err),
			logger.String("username", record.Username),
		)
		return FallbackJudgment()
	}

	return Normalize(models.CommentJudgment{
		Sentiment:       resp.Sentiment,
		Score:           resp.SentimentScore,
		Themes:          resp.Themes,
		Issues:          resp.Issues,
		IssuePriority:   resp.IssuePriority,
		FeatureRequests: resp.FeatureRequests,
	})
}

// FallbackJudgment is the judgment recorded when a comment could not be
// analyzed. It is tagged with the "error" theme so failures stay visible in
// the aggregated report.
func FallbackJudgment() models.CommentJudgment {
	return models.CommentJudgment{
		Sentiment:       models.SentimentNeutral,
		Score:           0.5,
		Themes:          []string{"error"},
		Issues:          []string{},
		IssuePriority:   "",
		FeatureRequests: []string{},
	}
}

// Normalize enforces the judgment invariants: a valid sentiment label, a
// score clamped to [0,1], deduplicated capped lists, lowercase issues, and a
// priority only when issues exist. Normalize is idempotent.
func Normalize(j models.CommentJudgment) models.CommentJudgment {
	out := j

	switch out.Sentiment {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		out.Sentiment = models.SentimentNeutral
	}

	if out.Score < 0 {
		out.Score = 0
	}
	if out.Score > 1 {
		out.Score = 1
	}

	out.Themes = dedupTrimmed(out.Themes, maxThemes, false)
	if len(out.Themes) == 0 {
		out.Themes = []string{"general"}
	}
	out.Issues = dedupTrimmed(out.Issues, maxIssues, true)
	out.FeatureRequests = dedupTrimmed(out.FeatureRequests, maxRequests, false)

	if len(out.Issues) == 0 {
		out.IssuePriority = ""
	} else {
		switch out.IssuePriority {
		case models.PriorityAlta, models.PriorityMedia, models.PriorityBaja:
		default:
			out.IssuePriority = models.PriorityMedia
		}
	}

	return out
}

// dedupTrimmed trims entries, drops blanks and duplicates, optionally
// lowercases, and caps the list. Order of first appearance is preserved.
func dedupTrimmed(items []string, limit int, lower bool) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s := strings.TrimSpace(item)
		if lower {
			s = strings.ToLower(s)
		}
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
