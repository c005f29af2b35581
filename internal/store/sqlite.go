package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/regwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS circulars (
	id                  TEXT PRIMARY KEY,
	source              TEXT NOT NULL,
	title               TEXT NOT NULL,
	url                 TEXT NOT NULL UNIQUE,
	raw_text            TEXT,
	published_date      DATE,
	effective_date      DATE,
	status              TEXT NOT NULL DEFAULT 'scraped',
	summary             TEXT,
	compliance_required INTEGER,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS circular_impact (
	id                TEXT PRIMARY KEY,
	circular_id       TEXT NOT NULL REFERENCES circulars(id),
	entity_type       TEXT NOT NULL,
	industry_type     TEXT NOT NULL,
	impact_summary    TEXT,
	compliance_action TEXT,
	risk_level        TEXT NOT NULL DEFAULT 'low',
	due_date          DATE,
	immediate_action  INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS clients (
	id            TEXT PRIMARY KEY,
	firm_id       TEXT NOT NULL,
	client_name   TEXT NOT NULL,
	entity_type   TEXT,
	industry_type TEXT
);

CREATE TABLE IF NOT EXISTS profiles (
	id      TEXT PRIMARY KEY,
	firm_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS compliance_tasks (
	id          TEXT PRIMARY KEY,
	client_id   TEXT NOT NULL REFERENCES clients(id),
	firm_id     TEXT NOT NULL,
	circular_id TEXT REFERENCES circulars(id),
	task_title  TEXT NOT NULL,
	description TEXT,
	due_date    DATE,
	status      TEXT NOT NULL DEFAULT 'pending',
	risk_level  TEXT NOT NULL DEFAULT 'low',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT,
	type       TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scrape_logs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT,
	items_found INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_circulars_status ON circulars(status);
CREATE INDEX IF NOT EXISTS idx_circular_impact_circular_id ON circular_impact(circular_id);
CREATE INDEX IF NOT EXISTS idx_tasks_client_circular ON compliance_tasks(client_id, circular_id);
CREATE INDEX IF NOT EXISTS idx_profiles_firm_id ON profiles(firm_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for test seeding.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) UpsertCircular(ctx context.Context, c *model.Circular) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.CircularStatusScraped
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO circulars
		 (id, source, title, url, raw_text, published_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Source), c.Title, c.URL, nullStr(c.RawText), nullTime(c.PublishedDate),
		string(c.Status), now, now,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: upsert circular")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: upsert circular rows affected")
	}
	return n > 0, nil
}

const circularColumns = `id, source, title, url, raw_text, published_date, effective_date, status, summary, compliance_required, created_at, updated_at`

func (s *SQLiteStore) GetCircular(ctx context.Context, id string) (*model.Circular, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+circularColumns+` FROM circulars WHERE id = ?`, id)
	c, err := scanCircular(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: circular %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get circular %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCircularsByStatus(ctx context.Context, status model.CircularStatus, limit int) ([]model.Circular, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+circularColumns+` FROM circulars WHERE status = ? ORDER BY created_at LIMIT ?`,
		string(status), limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list circulars")
	}
	defer rows.Close()

	var out []model.Circular
	for rows.Next() {
		c, err := scanCircular(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan circular")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list circulars rows")
}

func (s *SQLiteStore) UpdateCircularStatus(ctx context.Context, id string, status model.CircularStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE circulars SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update circular status %s", id)
	}
	return checkRowsAffected(res, "circular", id)
}

func (s *SQLiteStore) CompleteCircularExtraction(ctx context.Context, id, summary string, effectiveDate *time.Time, complianceRequired bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE circulars SET summary = ?, effective_date = ?, compliance_required = ?, status = ?, updated_at = ? WHERE id = ?`,
		summary, nullTime(effectiveDate), complianceRequired, string(model.CircularStatusProcessed),
		time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete extraction %s", id)
	}
	return checkRowsAffected(res, "circular", id)
}

func (s *SQLiteStore) InsertImpact(ctx context.Context, imp *model.Impact) error {
	if imp.ID == "" {
		imp.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO circular_impact
		 (id, circular_id, entity_type, industry_type, impact_summary, compliance_action, risk_level, due_date, immediate_action, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		imp.ID, imp.CircularID, imp.EntityType, imp.IndustryType, imp.ImpactSummary,
		imp.ComplianceAction, string(imp.RiskLevel), nullTime(imp.DueDate), imp.ImmediateAction,
		time.Now().UTC())
	return eris.Wrap(err, "sqlite: insert impact")
}

func (s *SQLiteStore) ListImpactsByCircular(ctx context.Context, circularID string) ([]model.Impact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, circular_id, entity_type, industry_type, impact_summary, compliance_action, risk_level, due_date, immediate_action
		 FROM circular_impact WHERE circular_id = ? ORDER BY created_at`, circularID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list impacts")
	}
	defer rows.Close()

	var out []model.Impact
	for rows.Next() {
		var imp model.Impact
		var summary, action sql.NullString
		var due sql.NullTime
		var risk string
		if err := rows.Scan(&imp.ID, &imp.CircularID, &imp.EntityType, &imp.IndustryType,
			&summary, &action, &risk, &due, &imp.ImmediateAction); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan impact")
		}
		imp.ImpactSummary = summary.String
		imp.ComplianceAction = action.String
		imp.RiskLevel = model.RiskLevel(risk)
		if due.Valid {
			d := due.Time
			imp.DueDate = &d
		}
		out = append(out, imp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list impacts rows")
}

func (s *SQLiteStore) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, firm_id, client_name, COALESCE(entity_type, ''), COALESCE(industry_type, '') FROM clients`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clients")
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.FirmID, &c.Name, &c.EntityType, &c.IndustryType); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list clients rows")
}

func (s *SQLiteStore) ListProfilesByFirm(ctx context.Context, firmID string) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, firm_id FROM profiles WHERE firm_id = ?`, firmID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list profiles")
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.FirmID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list profiles rows")
}

func (s *SQLiteStore) TaskExists(ctx context.Context, clientID, circularID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM compliance_tasks WHERE client_id = ? AND circular_id = ?`,
		clientID, circularID).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: task exists")
	}
	return n > 0, nil
}

func (s *SQLiteStore) InsertTask(ctx context.Context, task *model.ComplianceTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO compliance_tasks
		 (id, client_id, firm_id, circular_id, task_title, description, due_date, status, risk_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.ClientID, task.FirmID, nullStr(task.CircularID), task.Title, task.Description,
		nullTime(task.DueDate), string(task.Status), string(task.RiskLevel), time.Now().UTC())
	return eris.Wrap(err, "sqlite: insert task")
}

func (s *SQLiteStore) InsertNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, title, message, type, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.Read, time.Now().UTC())
	return eris.Wrap(err, "sqlite: insert notification")
}

func (s *SQLiteStore) InsertScrapeLog(ctx context.Context, entry *model.ScrapeLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_logs (id, source, status, message, items_found, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Source), entry.Status, entry.Message, entry.ItemsFound, time.Now().UTC())
	return eris.Wrap(err, "sqlite: insert scrape log")
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCircular(row rowScanner) (*model.Circular, error) {
	var c model.Circular
	var source, status string
	var rawText, summary sql.NullString
	var published, effective sql.NullTime
	var required sql.NullBool

	err := row.Scan(&c.ID, &source, &c.Title, &c.URL, &rawText, &published, &effective,
		&status, &summary, &required, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Source = model.Source(source)
	c.Status = model.CircularStatus(status)
	c.RawText = rawText.String
	c.Summary = summary.String
	if published.Valid {
		d := published.Time
		c.PublishedDate = &d
	}
	if effective.Valid {
		d := effective.Time
		c.EffectiveDate = &d
	}
	if required.Valid {
		b := required.Bool
		c.ComplianceRequired = &b
	}
	return &c, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", entity, id)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
