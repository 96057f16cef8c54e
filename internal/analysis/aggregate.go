package analysis

import (
	"sort"
	"unicode/utf8"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

const (
	maxRankedThemes    = 10
	maxRankedIssues    = 10
	maxRankedRequests  = 10
	maxThemeExamples   = 3
	maxExampleRunes    = 100
	maxHighlights      = 5
	highlightScoreMin  = 0.8
	highlightRunesMin  = 20
	highlightRunesMax  = 150
	breakdownTopThemes = 5
	breakdownTopIssues = 3
)

// Aggregator folds per-comment judgments into a report. All methods are
// deterministic: same inputs in the same order produce the same report.
type Aggregator struct {
	logger logger.Logger
}

func NewAggregator(log logger.Logger) *Aggregator {
	return &Aggregator{logger: log}
}

// Aggregate builds the report for a batch. Judgments and records are paired
// by index; a length mismatch drops the unpaired tail rather than failing.
func (a *Aggregator) Aggregate(judgments []models.CommentJudgment, records []models.CommentRecord) models.AggregatedReport {
	if len(judgments) == 0 {
		return emptyReport()
	}
	if len(records) < len(judgments) {
		a.logger.Warn("More judgments than records, ignoring unpaired judgments",
			logger.Int("judgments", len(judgments)),
			logger.Int("records", len(records)),
		)
		judgments = judgments[:len(records)]
	}

	report := models.AggregatedReport{
		OverallSentiment: overallSentiment(judgments),
		Themes:           rankThemes(judgments, records),
		TopIssues:        rankIssues(judgments),
		FeatureRequests:  rankRequests(judgments),
		Highlights:       collectHighlights(judgments, records),
		Breakdowns:       buildBreakdowns(judgments, records),
	}

	a.logger.Info("Judgments aggregated",
		logger.Int("comments", len(judgments)),
		logger.String("overall_sentiment", report.OverallSentiment.Label),
		logger.Int("themes", len(report.Themes)),
		logger.Int("issues", len(report.TopIssues)),
	)
	return report
}

func emptyReport() models.AggregatedReport {
	return models.AggregatedReport{
		OverallSentiment: models.SentimentScore{Label: models.SentimentNeutral, Score: 0.5},
		Themes:           []models.Theme{},
		TopIssues:        []models.Issue{},
		FeatureRequests:  []models.FeatureRequest{},
		Highlights:       []models.Highlight{},
		Breakdowns:       map[string]map[string]models.FieldBreakdown{},
	}
}

// overallSentiment picks the mode label and averages scores. Tie handling
// follows the running maximum: a label only takes over when its count
// strictly exceeds the current leader's, so the first label to reach the
// winning count keeps it. The average skips zero scores; when every score is
// zero it falls back to 0.5.
func overallSentiment(judgments []models.CommentJudgment) models.SentimentScore {
	counts := make(map[string]int, 3)
	leader := ""
	leaderCount := 0

	sum := 0.0
	scored := 0
	for _, j := range judgments {
		counts[j.Sentiment]++
		if counts[j.Sentiment] > leaderCount {
			leaderCount = counts[j.Sentiment]
			leader = j.Sentiment
		}
		if j.Score > 0 {
			sum += j.Score
			scored++
		}
	}

	score := 0.5
	if scored > 0 {
		score = sum / float64(scored)
	}
	return models.SentimentScore{Label: leader, Score: score}
}

// counter tallies strings while remembering first-appearance order, which
// decides ties when ranking.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// ranked returns up to limit keys by descending count; equal counts keep
// first-appearance order.
func (c *counter) ranked(limit int) []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

func rankThemes(judgments []models.CommentJudgment, records []models.CommentRecord) []models.Theme {
	tally := newCounter()
	for _, j := range judgments {
		for _, theme := range j.Themes {
			tally.add(theme)
		}
	}

	ranked := tally.ranked(maxRankedThemes)
	themes := make([]models.Theme, 0, len(ranked))
	for _, name := range ranked {
		themes = append(themes, models.Theme{
			Name:     name,
			Examples: themeExamples(name, judgments, records),
		})
	}
	return themes
}

// themeExamples collects short verbatim comments mentioning the theme, in
// batch order.
func themeExamples(theme string, judgments []models.CommentJudgment, records []models.CommentRecord) []string {
	examples := make([]string, 0, maxThemeExamples)
	for i, j := range judgments {
		if !contains(j.Themes, theme) {
			continue
		}
		comment := records[i].Comment
		if utf8.RuneCountInString(comment) >= maxExampleRunes {
			continue
		}
		examples = append(examples, comment)
		if len(examples) == maxThemeExamples {
			break
		}
	}
	return examples
}

func rankIssues(judgments []models.CommentJudgment) []models.Issue {
	tally := newCounter()
	priorities := make(map[string]string)
	for _, j := range judgments {
		for _, issue := range j.Issues {
			tally.add(issue)
			// Last judgment with a priority wins.
			if j.IssuePriority != "" {
				priorities[issue] = j.IssuePriority
			}
		}
	}

	ranked := tally.ranked(maxRankedIssues)
	issues := make([]models.Issue, 0, len(ranked))
	for _, name := range ranked {
		priority := priorities[name]
		if priority == "" {
			priority = models.PriorityMedia
		}
		issues = append(issues, models.Issue{
			Issue:    name,
			Count:    tally.counts[name],
			Priority: priority,
		})
	}
	return issues
}

func rankRequests(judgments []models.CommentJudgment) []models.FeatureRequest {
	tally := newCounter()
	for _, j := range judgments {
		for _, req := range j.FeatureRequests {
			tally.add(req)
		}
	}

	ranked := tally.ranked(maxRankedRequests)
	requests := make([]models.FeatureRequest, 0, len(ranked))
	for _, name := range ranked {
		requests = append(requests, models.FeatureRequest{
			Request: name,
			Count:   tally.counts[name],
		})
	}
	return requests
}

// collectHighlights picks strongly positive quotes of readable length, in
// batch order.
func collectHighlights(judgments []models.CommentJudgment, records []models.CommentRecord) []models.Highlight {
	highlights := make([]models.Highlight, 0, maxHighlights)
	for i, j := range judgments {
		if j.Sentiment != models.SentimentPositive || j.Score <= highlightScoreMin {
			continue
		}
		n := utf8.RuneCountInString(records[i].Comment)
		if n <= highlightRunesMin || n >= highlightRunesMax {
			continue
		}
		highlights = append(highlights, models.Highlight{
			Quote:   records[i].Comment,
			SKU:     breakdownValue(records[i], "sku"),
			Channel: breakdownValue(records[i], "channel"),
		})
		if len(highlights) == maxHighlights {
			break
		}
	}
	return highlights
}

// buildBreakdowns slices the batch by every grouping field present on any
// record. Records without a value for a field land in the "unknown" bucket.
func buildBreakdowns(judgments []models.CommentJudgment, records []models.CommentRecord) map[string]map[string]models.FieldBreakdown {
	fields := groupingFields(records)
	breakdowns := make(map[string]map[string]models.FieldBreakdown, len(fields))

	for _, field := range fields {
		buckets := make(map[string]*fieldBucket)
		for i, j := range judgments {
			value := breakdownValue(records[i], field)
			bucket, ok := buckets[value]
			if !ok {
				bucket = newFieldBucket()
				buckets[value] = bucket
			}
			bucket.add(j)
		}

		byValue := make(map[string]models.FieldBreakdown, len(buckets))
		for value, bucket := range buckets {
			byValue[value] = bucket.breakdown()
		}
		breakdowns[field] = byValue
	}
	return breakdowns
}

// groupingFields returns the sorted union of field names across records.
func groupingFields(records []models.CommentRecord) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, rec := range records {
		for name := range rec.Fields {
			if !seen[name] {
				seen[name] = true
				fields = append(fields, name)
			}
		}
	}
	sort.Strings(fields)
	return fields
}

func breakdownValue(record models.CommentRecord, field string) string {
	if v := record.Field(field); v != "" {
		return v
	}
	return "unknown"
}

type fieldBucket struct {
	total      int
	sentiments map[string]int
	themes     *counter
	issues     *counter
}

func newFieldBucket() *fieldBucket {
	return &fieldBucket{
		sentiments: make(map[string]int, 3),
		themes:     newCounter(),
		issues:     newCounter(),
	}
}

func (b *fieldBucket) add(j models.CommentJudgment) {
	b.total++
	b.sentiments[j.Sentiment]++
	for _, theme := range j.Themes {
		b.themes.add(theme)
	}
	for _, issue := range j.Issues {
		b.issues.add(issue)
	}
}

func (b *fieldBucket) breakdown() models.FieldBreakdown {
	return models.FieldBreakdown{
		TotalComments:         b.total,
		SentimentDistribution: b.sentiments,
		TopThemes:             b.themes.ranked(breakdownTopThemes),
		TopIssues:             b.issues.ranked(breakdownTopIssues),
	}
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
