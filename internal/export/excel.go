// Package export renders aggregated reports as Excel workbooks.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/snacklabs/feedback-insights/internal/logger"
	"github.com/snacklabs/feedback-insights/internal/models"
)

// Excel sheet names are capped at 31 characters.
const maxSheetNameLen = 31

// Exporter builds a multi-sheet workbook from a job's report: a summary
// sheet, ranking sheets, highlights, and one sheet per grouping field.
type Exporter struct {
	logger logger.Logger
}

func NewExporter(log logger.Logger) *Exporter {
	return &Exporter{logger: log}
}

// Export renders the workbook and returns its bytes. Records and judgments
// are optional; when both are present and pair up, a Comments sheet with the
// per-comment detail is included.
func (e *Exporter) Export(meta models.JobMetadata, records []models.CommentRecord, judgments []models.CommentJudgment) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, fmt.Errorf("renaming summary sheet: %w", err)
	}
	if err := writeSummary(f, meta); err != nil {
		return nil, err
	}
	if err := writeThemes(f, meta.Report.Themes); err != nil {
		return nil, err
	}
	if err := writeIssues(f, meta.Report.TopIssues); err != nil {
		return nil, err
	}
	if err := writeRequests(f, meta.Report.FeatureRequests); err != nil {
		return nil, err
	}
	if err := writeHighlights(f, meta.Report.Highlights); err != nil {
		return nil, err
	}
	if err := writeBreakdowns(f, meta.Report.Breakdowns); err != nil {
		return nil, err
	}
	if len(records) > 0 && len(records) == len(judgments) {
		if err := writeComments(f, records, judgments); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}

	e.logger.Info("Report exported to Excel",
		logger.String("job_id", meta.JobID),
		logger.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, meta models.JobMetadata) error {
	rows := [][]any{
		{"Job ID", meta.JobID},
		{"Source file", meta.SourceFile},
		{"Model", meta.Model},
		{"Analyzed at", meta.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		{"Comments analyzed", meta.CommentCount},
		{"Overall sentiment", meta.Report.OverallSentiment.Label},
		{"Sentiment score", meta.Report.OverallSentiment.Score},
	}
	return writeRows(f, "Summary", rows)
}

func writeThemes(f *excelize.File, themes []models.Theme) error {
	if _, err := f.NewSheet("Themes"); err != nil {
		return fmt.Errorf("creating Themes sheet: %w", err)
	}
	rows := [][]any{{"Theme", "Examples"}}
	for _, theme := range themes {
		rows = append(rows, []any{theme.Name, strings.Join(theme.Examples, "\n")})
	}
	return writeRows(f, "Themes", rows)
}

func writeIssues(f *excelize.File, issues []models.Issue) error {
	if _, err := f.NewSheet("Issues"); err != nil {
		return fmt.Errorf("creating Issues sheet: %w", err)
	}
	rows := [][]any{{"Issue", "Count", "Priority"}}
	for _, issue := range issues {
		rows = append(rows, []any{issue.Issue, issue.Count, issue.Priority})
	}
	return writeRows(f, "Issues", rows)
}

func writeRequests(f *excelize.File, requests []models.FeatureRequest) error {
	if _, err := f.NewSheet("Feature Requests"); err != nil {
		return fmt.Errorf("creating Feature Requests sheet: %w", err)
	}
	rows := [][]any{{"Request", "Count"}}
	for _, req := range requests {
		rows = append(rows, []any{req.Request, req.Count})
	}
	return writeRows(f, "Feature Requests", rows)
}

func writeHighlights(f *excelize.File, highlights []models.Highlight) error {
	if _, err := f.NewSheet("Highlights"); err != nil {
		return fmt.Errorf("creating Highlights sheet: %w", err)
	}
	rows := [][]any{{"Quote", "SKU", "Channel"}}
	for _, h := range highlights {
		rows = append(rows, []any{h.Quote, h.SKU, h.Channel})
	}
	return writeRows(f, "Highlights", rows)
}

func writeBreakdowns(f *excelize.File, breakdowns map[string]map[string]models.FieldBreakdown) error {
	fields := make([]string, 0, len(breakdowns))
	for field := range breakdowns {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		sheet := sheetNameFor(field)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating %s sheet: %w", sheet, err)
		}

		byValue := breakdowns[field]
		values := make([]string, 0, len(byValue))
		for value := range byValue {
			values = append(values, value)
		}
		sort.Strings(values)

		rows := [][]any{{field, "Comments", "Positive", "Neutral", "Negative", "Top themes", "Top issues"}}
		for _, value := range values {
			b := byValue[value]
			rows = append(rows, []any{
				value,
				b.TotalComments,
				b.SentimentDistribution[models.SentimentPositive],
				b.SentimentDistribution[models.SentimentNeutral],
				b.SentimentDistribution[models.SentimentNegative],
				strings.Join(b.TopThemes, ", "),
				strings.Join(b.TopIssues, ", "),
			})
		}
		if err := writeRows(f, sheet, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeComments(f *excelize.File, records []models.CommentRecord, judgments []models.CommentJudgment) error {
	if _, err := f.NewSheet("Comments"); err != nil {
		return fmt.Errorf("creating Comments sheet: %w", err)
	}
	rows := [][]any{{"Comment", "Username", "Sentiment", "Score", "Themes", "Issues"}}
	for i, rec := range records {
		j := judgments[i]
		rows = append(rows, []any{
			rec.Comment,
			rec.Username,
			j.Sentiment,
			j.Score,
			strings.Join(j.Themes, ", "),
			strings.Join(j.Issues, ", "),
		})
	}
	return writeRows(f, "Comments", rows)
}

// sheetNameFor makes a breakdown field safe to use as a sheet name.
func sheetNameFor(field string) string {
	name := "By " + field
	for _, c := range `:\/?*[]` {
		name = strings.ReplaceAll(name, string(c), "_")
	}
	if len(name) > maxSheetNameLen {
		name = name[:maxSheetNameLen]
	}
	return name
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("resolving cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("writing cell %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
