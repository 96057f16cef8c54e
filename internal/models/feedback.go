// Package models defines the data types shared across the feedback analysis
// pipeline.
package models

// AnonymousAuthor is the author handle used when an upload row carries no
// username column.
const AnonymousAuthor = "anonymous"

// Sentiment labels a judgment may carry.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Issue priority levels, in the wording the analysis prompt requests.
const (
	PriorityAlta  = "alta"
	PriorityMedia = "media"
	PriorityBaja  = "baja"
)

// CommentRecord is one normalized row of uploaded feedback. Records are
// created during file parsing and immutable afterward; downstream stages pair
// them with judgments by index.
type CommentRecord struct {
	// Comment is the trimmed feedback text. Ingestion guarantees its
	// rune-length is strictly between 5 and 1000.
	Comment string `json:"comment"`

	// Username is the author handle, AnonymousAuthor when absent.
	Username string `json:"username"`

	// Fields holds the grouping-key columns (channel, sku, date, anything
	// unmapped), keyed by resolved field name. Absent keys mean the cell was
	// missing or blank.
	Fields map[string]string `json:"fields,omitempty"`
}

// Field returns the value of a grouping field, or "" when absent.
func (r CommentRecord) Field(name string) string {
	return r.Fields[name]
}

// CommentJudgment is the structured analysis result for one CommentRecord.
// Produced by the analyzer, already normalized, consumed only by the
// aggregator.
type CommentJudgment struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"sentiment_score"`
	// Themes holds up to 3 deduplicated theme labels.
	Themes []string `json:"themes"`
	// Issues holds up to 3 lowercased issue labels.
	Issues []string `json:"issues,omitempty"`
	// IssuePriority is "" unless Issues is non-empty, in which case it is one
	// of the Priority constants.
	IssuePriority string `json:"issue_priority,omitempty"`
	// FeatureRequests holds up to 3 request labels.
	FeatureRequests []string `json:"feature_requests,omitempty"`
}

// SentimentScore is a sentiment label with its confidence score.
type SentimentScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Theme is a ranked theme with example comments.
type Theme struct {
	Name     string   `json:"name"`
	Examples []string `json:"examples"`
}

// Issue is a ranked issue with occurrence count and priority.
type Issue struct {
	Issue    string `json:"issue"`
	Count    int    `json:"count"`
	Priority string `json:"priority"`
}

// FeatureRequest is a ranked feature request with occurrence count.
type FeatureRequest struct {
	Request string `json:"request"`
	Count   int    `json:"count"`
}

// Highlight is a notable positive quote with its source context.
type Highlight struct {
	Quote   string `json:"quote"`
	SKU     string `json:"sku,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// FieldBreakdown summarizes the judgments bucketed under one grouping-field
// value.
type FieldBreakdown struct {
	TotalComments         int            `json:"total_comments"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	TopThemes             []string       `json:"top_themes"`
	TopIssues             []string       `json:"top_issues"`
}

// AggregatedReport is the final cross-comment summary. Constructed once per
// batch and never mutated afterward.
type AggregatedReport struct {
	OverallSentiment SentimentScore   `json:"overall_sentiment"`
	Themes           []Theme          `json:"themes"`
	TopIssues        []Issue          `json:"top_issues"`
	FeatureRequests  []FeatureRequest `json:"feature_requests"`
	Highlights       []Highlight      `json:"highlights"`
	// Breakdowns maps grouping field name -> field value -> breakdown.
	Breakdowns map[string]map[string]FieldBreakdown `json:"breakdowns"`
}
