package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

type stubProvider struct {
	resp JudgmentResponse
	err  error
}

func (s *stubProvider) Judge(_ context.Context, _ string) (JudgmentResponse, error) {
	return s.resp, s.err
}

func TestAnalyzerNormalizesModelOutput(t *testing.T) {
	provider := &stubProvider{
		resp: JudgmentResponse{
			Sentiment:       "positive",
			SentimentScore:  1.4,
			Themes:          []string{" sabor ", "sabor", "textura", "precio", "empaque"},
			Issues:          []string{"Bolsa Rota"},
			IssuePriority:   "urgente",
			FeatureRequests: []string{"más sabores"},
		},
	}
	analyzer := NewAnalyzer(provider, logger.NewNop())

	j := analyzer.Analyze(context.Background(), models.CommentRecord{Comment: "Muy rico"})

	assert.Equal(t, models.SentimentPositive, j.Sentiment)
	assert.Equal(t, 1.0, j.Score)
	assert.Equal(t, []string{"sabor", "textura", "precio"}, j.Themes)
	assert.Equal(t, []string{"bolsa rota"}, j.Issues)
	assert.Equal(t, models.PriorityMedia, j.IssuePriority)
	assert.Equal(t, []string{"más sabores"}, j.FeatureRequests)
}

func TestAnalyzerFallsBackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("boom")}
	analyzer := NewAnalyzer(provider, logger.NewNop())

	j := analyzer.Analyze(context.Background(), models.CommentRecord{Comment: "Muy rico"})

	assert.Equal(t, FallbackJudgment(), j)
	assert.Equal(t, []string{"error"}, j.Themes)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   models.CommentJudgment
		want models.CommentJudgment
	}{
		{
			name: "invalid sentiment becomes neutral",
			in:   models.CommentJudgment{Sentiment: "mixed", Score: 0.7},
			want: models.CommentJudgment{
				Sentiment:       models.SentimentNeutral,
				Score:           0.7,
				Themes:          []string{"general"},
				Issues:          []string{},
				FeatureRequests: []string{},
			},
		},
		{
			name: "negative score clamped to zero",
			in:   models.CommentJudgment{Sentiment: models.SentimentNegative, Score: -0.2},
			want: models.CommentJudgment{
				Sentiment:       models.SentimentNegative,
				Score:           0,
				Themes:          []string{"general"},
				Issues:          []string{},
				FeatureRequests: []string{},
			},
		},
		{
			name: "priority cleared without issues",
			in: models.CommentJudgment{
				Sentiment:     models.SentimentPositive,
				Score:         0.9,
				Themes:        []string{"sabor"},
				IssuePriority: models.PriorityAlta,
			},
			want: models.CommentJudgment{
				Sentiment:       models.SentimentPositive,
				Score:           0.9,
				Themes:          []string{"sabor"},
				Issues:          []string{},
				IssuePriority:   "",
				FeatureRequests: []string{},
			},
		},
		{
			name: "valid priority kept with issues",
			in: models.CommentJudgment{
				Sentiment:     models.SentimentNegative,
				Score:         0.8,
				Themes:        []string{"empaque"},
				Issues:        []string{"bolsa rota"},
				IssuePriority: models.PriorityAlta,
			},
			want: models.CommentJudgment{
				Sentiment:       models.SentimentNegative,
				Score:           0.8,
				Themes:          []string{"empaque"},
				Issues:          []string{"bolsa rota"},
				IssuePriority:   models.PriorityAlta,
				FeatureRequests: []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	in := models.CommentJudgment{
		Sentiment:       "weird",
		Score:           2.5,
		Themes:          []string{"Sabor", "Sabor", "", "textura", "precio", "extra"},
		Issues:          []string{"MUY CARO", "muy caro"},
		IssuePriority:   "??",
		FeatureRequests: []string{"a", "b", "c", "d"},
	}

	once := Normalize(in)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestFallbackJudgmentIsNormalized(t *testing.T) {
	fb := FallbackJudgment()
	assert.Equal(t, fb, Normalize(fb))
}
