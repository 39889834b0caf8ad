package notifier

import (
	"log/slog"

	"github.com/mkorchagin/vacradar/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes newly queued vacancies to the given logger as
// structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each vacancy via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each record with source, title, company and URL.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(records []model.VacancyRecord) error {
	for _, rec := range records {
		args := []any{"source", rec.Source, "title", rec.Title, "company", rec.Company, "url", rec.URL}
		if rec.PublishedAt != nil {
			args = append(args, "published_at", *rec.PublishedAt)
		}
		n.logger.Info("new vacancy", args...)
	}
	return nil
}
