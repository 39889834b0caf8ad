// Package store persists vacancy records in SQLite, keyed for
// deduplication by (source, external_id).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mkorchagin/vacradar/internal/model"
)

// ErrNotFound is returned when no record matches the requested id.
var ErrNotFound = errors.New("vacancy not found")

const createVacanciesTable = `CREATE TABLE IF NOT EXISTS vacancies (
	id                 TEXT PRIMARY KEY,
	source             TEXT NOT NULL,
	external_id        TEXT NOT NULL,
	url                TEXT NOT NULL DEFAULT '',
	title              TEXT NOT NULL DEFAULT '',
	company            TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	published_at       TEXT,
	full_description   TEXT NOT NULL DEFAULT '',
	requirements       TEXT NOT NULL DEFAULT '',
	tasks              TEXT NOT NULL DEFAULT '',
	conditions         TEXT NOT NULL DEFAULT '',
	benefits           TEXT NOT NULL DEFAULT '',
	technologies       TEXT NOT NULL DEFAULT '[]',
	experience_level   TEXT NOT NULL DEFAULT 'unknown',
	employment_type    TEXT NOT NULL DEFAULT 'unknown',
	remote_work        INTEGER NOT NULL DEFAULT 0,
	salary_min         INTEGER NOT NULL DEFAULT 0,
	salary_max         INTEGER NOT NULL DEFAULT 0,
	salary_currency    TEXT NOT NULL DEFAULT 'RUB',
	specialization     TEXT NOT NULL DEFAULT 'other',
	relevance_score    REAL NOT NULL DEFAULT 0,
	analysis_stage     TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'pending',
	moderator          TEXT NOT NULL DEFAULT '',
	moderation_notes   TEXT NOT NULL DEFAULT '',
	moderated_at       TEXT,
	description_edited INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	UNIQUE (source, external_id)
)`

// SQLiteStore implements model.VacancyStore on a local SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	locks keyedMutex
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the vacancies table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(createVacanciesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vacancies table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// keyedMutex serializes writers per vacancy identity so two concurrent
// upserts of the same (source, external_id) cannot race past the
// read-merge-write sequence.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	if _, ok := k.locks[key]; !ok {
		k.locks[key] = &sync.Mutex{}
	}
	return k.locks[key]
}

// Upsert inserts rec as a new pending record or merges it into the existing
// record with the same (source, external_id). On merge, scraped content and
// analysis are refreshed while moderation state survives; a moderator-edited
// description is kept unless override is set. override additionally resets
// the record to pending.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *model.VacancyRecord, override bool) (string, bool, error) {
	key := rec.Source + "|" + rec.ExternalID
	lock := s.locks.get(key)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	existing, err := s.getByIdentity(ctx, rec.Source, rec.ExternalID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", false, err
	}

	if existing == nil {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		tech, err := json.Marshal(rec.Analysis.Technologies)
		if err != nil {
			return "", false, fmt.Errorf("encoding technologies: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `INSERT INTO vacancies (
			id, source, external_id, url, title, company, location, description, published_at,
			full_description, requirements, tasks, conditions, benefits, technologies,
			experience_level, employment_type, remote_work,
			salary_min, salary_max, salary_currency,
			specialization, relevance_score, analysis_stage,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, rec.Source, rec.ExternalID, rec.URL, rec.Title, rec.Company, rec.Location,
			rec.Description, formatNullableTime(rec.PublishedAt),
			rec.Analysis.FullDescription, rec.Analysis.Requirements, rec.Analysis.Tasks,
			rec.Analysis.Conditions, rec.Analysis.Benefits, string(tech),
			string(rec.Analysis.Experience), string(rec.Analysis.Employment), boolToInt(rec.Analysis.Remote),
			rec.Analysis.Salary.Min, rec.Analysis.Salary.Max, rec.Analysis.Salary.Currency,
			rec.Analysis.Specialization, rec.Analysis.RelevanceScore, rec.Analysis.Stage,
			string(model.StatusPending), formatTime(now), formatTime(now),
		)
		if err != nil {
			return "", false, fmt.Errorf("inserting vacancy %s/%s: %w", rec.Source, rec.ExternalID, err)
		}
		return id, true, nil
	}

	tech, err := json.Marshal(rec.Analysis.Technologies)
	if err != nil {
		return "", false, fmt.Errorf("encoding technologies: %w", err)
	}

	description := rec.Description
	descriptionEdited := existing.DescriptionEdited
	if existing.DescriptionEdited && !override {
		description = existing.Description
	}
	if override {
		descriptionEdited = false
	}

	if override {
		_, err = s.db.ExecContext(ctx, `UPDATE vacancies SET
			url = ?, title = ?, company = ?, location = ?, description = ?, published_at = ?,
			full_description = ?, requirements = ?, tasks = ?, conditions = ?, benefits = ?,
			technologies = ?, experience_level = ?, employment_type = ?, remote_work = ?,
			salary_min = ?, salary_max = ?, salary_currency = ?,
			specialization = ?, relevance_score = ?, analysis_stage = ?,
			status = ?, moderator = '', moderation_notes = '', moderated_at = NULL,
			description_edited = ?, updated_at = ?
			WHERE id = ?`,
			rec.URL, rec.Title, rec.Company, rec.Location, description, formatNullableTime(rec.PublishedAt),
			rec.Analysis.FullDescription, rec.Analysis.Requirements, rec.Analysis.Tasks,
			rec.Analysis.Conditions, rec.Analysis.Benefits,
			string(tech), string(rec.Analysis.Experience), string(rec.Analysis.Employment), boolToInt(rec.Analysis.Remote),
			rec.Analysis.Salary.Min, rec.Analysis.Salary.Max, rec.Analysis.Salary.Currency,
			rec.Analysis.Specialization, rec.Analysis.RelevanceScore, rec.Analysis.Stage,
			string(model.StatusPending), boolToInt(descriptionEdited), formatTime(now),
			existing.ID,
		)
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE vacancies SET
			url = ?, title = ?, company = ?, location = ?, description = ?, published_at = ?,
			full_description = ?, requirements = ?, tasks = ?, conditions = ?, benefits = ?,
			technologies = ?, experience_level = ?, employment_type = ?, remote_work = ?,
			salary_min = ?, salary_max = ?, salary_currency = ?,
			specialization = ?, relevance_score = ?, analysis_stage = ?,
			updated_at = ?
			WHERE id = ?`,
			rec.URL, rec.Title, rec.Company, rec.Location, description, formatNullableTime(rec.PublishedAt),
			rec.Analysis.FullDescription, rec.Analysis.Requirements, rec.Analysis.Tasks,
			rec.Analysis.Conditions, rec.Analysis.Benefits,
			string(tech), string(rec.Analysis.Experience), string(rec.Analysis.Employment), boolToInt(rec.Analysis.Remote),
			rec.Analysis.Salary.Min, rec.Analysis.Salary.Max, rec.Analysis.Salary.Currency,
			rec.Analysis.Specialization, rec.Analysis.RelevanceScore, rec.Analysis.Stage,
			formatTime(now),
			existing.ID,
		)
	}
	if err != nil {
		return "", false, fmt.Errorf("updating vacancy %s/%s: %w", rec.Source, rec.ExternalID, err)
	}
	return existing.ID, false, nil
}

const selectColumns = `id, source, external_id, url, title, company, location, description, published_at,
	full_description, requirements, tasks, conditions, benefits, technologies,
	experience_level, employment_type, remote_work, salary_min, salary_max, salary_currency,
	specialization, relevance_score, analysis_stage,
	status, moderator, moderation_notes, moderated_at, description_edited, created_at, updated_at`

func (s *SQLiteStore) getByIdentity(ctx context.Context, source, externalID string) (*model.VacancyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM vacancies WHERE source = ? AND external_id = ?",
		source, externalID)
	return scanRecord(row)
}

// GetByID fetches one record by surrogate id. Returns ErrNotFound when the
// id is unknown.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.VacancyRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM vacancies WHERE id = ?", id)
	return scanRecord(row)
}

// GetByStatus lists records in one moderation state, oldest first.
func (s *SQLiteStore) GetByStatus(ctx context.Context, status model.Status) ([]model.VacancyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM vacancies WHERE status = ? ORDER BY created_at",
		string(status))
	if err != nil {
		return nil, fmt.Errorf("querying vacancies by status %s: %w", status, err)
	}
	return collectRecords(rows)
}

// GetAll lists every record, newest first.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]model.VacancyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM vacancies ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying all vacancies: %w", err)
	}
	return collectRecords(rows)
}

// Search runs a case-insensitive substring match over title, company and
// description.
func (s *SQLiteStore) Search(ctx context.Context, query string) ([]model.VacancyRecord, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+` FROM vacancies
		WHERE title LIKE ? ESCAPE '\' OR company LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
		ORDER BY created_at DESC`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching vacancies for %q: %w", query, err)
	}
	return collectRecords(rows)
}

// SetModeration records a moderation decision on the given record.
func (s *SQLiteStore) SetModeration(ctx context.Context, id string, status model.Status, moderator, notes string) error {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx,
		"UPDATE vacancies SET status = ?, moderator = ?, moderation_notes = ?, moderated_at = ?, updated_at = ? WHERE id = ?",
		string(status), moderator, notes, now, now, id)
	if err != nil {
		return fmt.Errorf("moderating vacancy %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("moderating vacancy %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDescription stores a moderator-edited description and flags the
// record so re-ingestion keeps the edit.
func (s *SQLiteStore) UpdateDescription(ctx context.Context, id, description, moderator string) error {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx,
		"UPDATE vacancies SET description = ?, moderator = ?, description_edited = 1, updated_at = ? WHERE id = ?",
		description, moderator, now, id)
	if err != nil {
		return fmt.Errorf("updating description of vacancy %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating description of vacancy %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge deletes records created earlier than olderThan ago and reports how
// many were removed.
func (s *SQLiteStore) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().UTC().Add(-olderThan))
	res, err := s.db.ExecContext(ctx, "DELETE FROM vacancies WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging vacancies older than %v: %w", olderThan, err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.VacancyRecord, error) {
	var rec model.VacancyRecord
	var publishedAt, moderated sql.NullString
	var tech, createdRaw, updatedRaw string
	var remote, editedInt int
	err := row.Scan(
		&rec.ID, &rec.Source, &rec.ExternalID, &rec.URL, &rec.Title, &rec.Company,
		&rec.Location, &rec.Description, &publishedAt,
		&rec.Analysis.FullDescription, &rec.Analysis.Requirements, &rec.Analysis.Tasks,
		&rec.Analysis.Conditions, &rec.Analysis.Benefits, &tech,
		&rec.Analysis.Experience, &rec.Analysis.Employment, &remote,
		&rec.Analysis.Salary.Min, &rec.Analysis.Salary.Max, &rec.Analysis.Salary.Currency,
		&rec.Analysis.Specialization, &rec.Analysis.RelevanceScore, &rec.Analysis.Stage,
		&rec.Status, &rec.Moderator, &rec.ModerationNotes, &moderated, &editedInt,
		&createdRaw, &updatedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning vacancy row: %w", err)
	}

	if err := json.Unmarshal([]byte(tech), &rec.Analysis.Technologies); err != nil {
		return nil, fmt.Errorf("decoding technologies: %w", err)
	}
	rec.Analysis.Remote = remote != 0
	rec.DescriptionEdited = editedInt != 0
	rec.PublishedAt = parseNullableTime(publishedAt)
	rec.ModeratedAt = parseNullableTime(moderated)
	rec.CreatedAt = parseTime(createdRaw)
	rec.UpdatedAt = parseTime(updatedRaw)
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]model.VacancyRecord, error) {
	defer rows.Close()
	var records []model.VacancyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vacancy rows: %w", err)
	}
	return records, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(t.UTC())
}

func parseTime(raw string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
