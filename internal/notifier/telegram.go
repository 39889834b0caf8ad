// Package notifier reports newly queued vacancies to external channels.
package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mkorchagin/vacradar/internal/model"
)

// Ensure TelegramNotifier implements model.Notifier.
var _ model.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier sends vacancy alerts to a Telegram chat via the Bot API.
type TelegramNotifier struct {
	apiURL     string
	chatID     string
	httpClient *http.Client
	logger     *slog.Logger
}

const telegramAPIBase = "https://api.telegram.org"

// NewTelegramNotifier returns a notifier that posts each vacancy as a
// separate message to the given chat.
func NewTelegramNotifier(token, chatID string, httpClient *http.Client, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		apiURL:     telegramAPIBase + "/bot" + token + "/sendMessage",
		chatID:     chatID,
		httpClient: httpClient,
		logger:     logger,
	}
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Notify sends each record as a separate Telegram message.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (n *TelegramNotifier) Notify(records []model.VacancyRecord) error {
	if len(records) == 0 {
		return nil
	}

	failures := 0
	for i, rec := range records {
		if i > 0 {
			time.Sleep(500 * time.Millisecond)
		}

		if err := n.sendMessage(rec); err != nil {
			n.logger.Error("telegram notification failed",
				"source", rec.Source, "title", rec.Title, "error", err)
			failures++
		}
	}

	sent := len(records) - failures
	if failures == len(records) {
		return fmt.Errorf("all %d telegram notifications failed", failures)
	}
	n.logger.Info("telegram notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (n *TelegramNotifier) sendMessage(rec model.VacancyRecord) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:                n.chatID,
		Text:                  formatMessage(rec),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	resp, err := n.httpClient.Post(n.apiURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		n.logger.Warn("telegram rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := n.httpClient.Post(n.apiURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to telegram (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram returned %d on retry", resp2.StatusCode)
		}
		n.logger.Info("telegram message sent", "source", rec.Source, "title", rec.Title, "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned %d", resp.StatusCode)
	}
	n.logger.Info("telegram message sent", "source", rec.Source, "title", rec.Title)
	return nil
}

func formatMessage(rec model.VacancyRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", escapeHTML(rec.Title))
	if rec.Company != "" {
		fmt.Fprintf(&b, "%s", escapeHTML(rec.Company))
		if rec.Location != "" {
			fmt.Fprintf(&b, " · %s", escapeHTML(rec.Location))
		}
		b.WriteString("\n")
	}
	if s := rec.Analysis.Salary; s.Min > 0 || s.Max > 0 {
		b.WriteString(formatSalary(s) + "\n")
	}
	if rec.Analysis.Experience != model.ExperienceUnknown {
		fmt.Fprintf(&b, "Опыт: %s\n", rec.Analysis.Experience)
	}
	if len(rec.Analysis.Technologies) > 0 {
		fmt.Fprintf(&b, "Стек: %s\n", escapeHTML(strings.Join(rec.Analysis.Technologies, ", ")))
	}
	fmt.Fprintf(&b, "\nИсточник: %s\n%s", rec.Source, rec.URL)
	return b.String()
}

func formatSalary(s model.SalaryRange) string {
	switch {
	case s.Min > 0 && s.Max > 0:
		return fmt.Sprintf("%d–%d %s", s.Min, s.Max, s.Currency)
	case s.Min > 0:
		return fmt.Sprintf("от %d %s", s.Min, s.Currency)
	default:
		return fmt.Sprintf("до %d %s", s.Max, s.Currency)
	}
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// SendTestMessage sends a synthetic vacancy through the given notifier to
// verify delivery end to end.
func SendTestMessage(n model.Notifier) error {
	now := time.Now()
	testRec := model.VacancyRecord{
		ID:         "test-001",
		Source:     "test",
		ExternalID: "test-001",
		Title:      "Тестовое уведомление — интеграция работает",
		Company:    "vacradar",
		Location:   "Везде",
		URL:        "https://hh.ru",
		CreatedAt:  now,
		Analysis: model.StructuredAnalysis{
			Experience:   model.ExperienceUnknown,
			Employment:   model.EmploymentUnknown,
			Technologies: []string{"figma"},
			Salary:       model.SalaryRange{Min: 100000, Max: 150000, Currency: "RUB"},
		},
	}
	return n.Notify([]model.VacancyRecord{testRec})
}
