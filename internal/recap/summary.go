package recap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"schoolattendance/internal/model"
)

// SummaryFallback is shown when no trend summary could be generated.
const SummaryFallback = "Analisis laporan tidak tersedia saat ini."

const summarySampleSize = 50

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TrendPrompt asks for a short analysis of the most recent records.
func TrendPrompt(history []model.AttendanceRecord, students []model.User) string {
	sample := history
	if len(sample) > summarySampleSize {
		sample = sample[:summarySampleSize]
	}
	raw, _ := json.Marshal(sample)
	return fmt.Sprintf(`Analyze the following attendance data for a school and provide a short summary in Indonesian (max 2 paragraphs).
Total Students: %d
Records: %s
Identify any trends or concerns.`, len(students), raw)
}

// Summarize returns a generated trend summary, or SummaryFallback when
// generation fails or comes back empty. The second value reports whether
// the text was generated.
func Summarize(ctx context.Context, gen Generator, history []model.AttendanceRecord, students []model.User) (string, bool) {
	text, err := gen.Generate(ctx, TrendPrompt(history, students))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		return SummaryFallback, false
	}
	return text, true
}
