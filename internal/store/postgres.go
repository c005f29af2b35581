package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/regwatch/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS circulars (
	id                  UUID PRIMARY KEY,
	source              TEXT NOT NULL,
	title               TEXT NOT NULL,
	url                 TEXT NOT NULL UNIQUE,
	raw_text            TEXT,
	published_date      DATE,
	effective_date      DATE,
	status              TEXT NOT NULL DEFAULT 'scraped',
	summary             TEXT,
	compliance_required BOOLEAN,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS circular_impact (
	id                UUID PRIMARY KEY,
	circular_id       UUID NOT NULL REFERENCES circulars(id),
	entity_type       TEXT NOT NULL,
	industry_type     TEXT NOT NULL,
	impact_summary    TEXT,
	compliance_action TEXT,
	risk_level        TEXT NOT NULL DEFAULT 'low',
	due_date          DATE,
	immediate_action  BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clients (
	id            UUID PRIMARY KEY,
	firm_id       UUID NOT NULL,
	client_name   TEXT NOT NULL,
	entity_type   TEXT,
	industry_type TEXT
);

CREATE TABLE IF NOT EXISTS profiles (
	id      UUID PRIMARY KEY,
	firm_id UUID NOT NULL
);

CREATE TABLE IF NOT EXISTS compliance_tasks (
	id          UUID PRIMARY KEY,
	client_id   UUID NOT NULL REFERENCES clients(id),
	firm_id     UUID NOT NULL,
	circular_id UUID REFERENCES circulars(id),
	task_title  TEXT NOT NULL,
	description TEXT,
	due_date    DATE,
	status      TEXT NOT NULL DEFAULT 'pending',
	risk_level  TEXT NOT NULL DEFAULT 'low',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notifications (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT,
	type       TEXT NOT NULL,
	read       BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scrape_logs (
	id          UUID PRIMARY KEY,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT,
	items_found INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_circulars_status ON circulars(status);
CREATE INDEX IF NOT EXISTS idx_circular_impact_circular_id ON circular_impact(circular_id);
CREATE INDEX IF NOT EXISTS idx_tasks_client_circular ON compliance_tasks(client_id, circular_id);
CREATE INDEX IF NOT EXISTS idx_profiles_firm_id ON profiles(firm_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertCircular(ctx context.Context, c *model.Circular) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.CircularStatusScraped
	}
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO circulars
		 (id, source, title, url, raw_text, published_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
		 ON CONFLICT (url) DO NOTHING`,
		c.ID, string(c.Source), c.Title, c.URL, c.RawText, c.PublishedDate,
		string(c.Status), now, now,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: upsert circular")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetCircular(ctx context.Context, id string) (*model.Circular, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+circularColumns+` FROM circulars WHERE id = $1`, id)
	c, err := scanPGCircular(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: circular %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get circular %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCircularsByStatus(ctx context.Context, status model.CircularStatus, limit int) ([]model.Circular, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+circularColumns+` FROM circulars WHERE status = $1 ORDER BY created_at LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list circulars")
	}
	defer rows.Close()

	var out []model.Circular
	for rows.Next() {
		c, err := scanPGCircular(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan circular")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list circulars rows")
}

func (s *PostgresStore) UpdateCircularStatus(ctx context.Context, id string, status model.CircularStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE circulars SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update circular status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: circular %s not found", id)
	}
	return nil
}

func (s *PostgresStore) CompleteCircularExtraction(ctx context.Context, id, summary string, effectiveDate *time.Time, complianceRequired bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE circulars SET summary = $1, effective_date = $2, compliance_required = $3, status = $4, updated_at = now() WHERE id = $5`,
		summary, effectiveDate, complianceRequired, string(model.CircularStatusProcessed), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete extraction %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: circular %s not found", id)
	}
	return nil
}

func (s *PostgresStore) InsertImpact(ctx context.Context, imp *model.Impact) error {
	if imp.ID == "" {
		imp.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO circular_impact
		 (id, circular_id, entity_type, industry_type, impact_summary, compliance_action, risk_level, due_date, immediate_action)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		imp.ID, imp.CircularID, imp.EntityType, imp.IndustryType, imp.ImpactSummary,
		imp.ComplianceAction, string(imp.RiskLevel), imp.DueDate, imp.ImmediateAction)
	return eris.Wrap(err, "postgres: insert impact")
}

func (s *PostgresStore) ListImpactsByCircular(ctx context.Context, circularID string) ([]model.Impact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, circular_id, entity_type, industry_type, COALESCE(impact_summary, ''), COALESCE(compliance_action, ''), risk_level, due_date, immediate_action
		 FROM circular_impact WHERE circular_id = $1 ORDER BY created_at`, circularID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list impacts")
	}
	defer rows.Close()

	var out []model.Impact
	for rows.Next() {
		var imp model.Impact
		var risk string
		if err := rows.Scan(&imp.ID, &imp.CircularID, &imp.EntityType, &imp.IndustryType,
			&imp.ImpactSummary, &imp.ComplianceAction, &risk, &imp.DueDate, &imp.ImmediateAction); err != nil {
			return nil, eris.Wrap(err, "postgres: scan impact")
		}
		imp.RiskLevel = model.RiskLevel(risk)
		out = append(out, imp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list impacts rows")
}

func (s *PostgresStore) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, firm_id, client_name, COALESCE(entity_type, ''), COALESCE(industry_type, '') FROM clients`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clients")
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.FirmID, &c.Name, &c.EntityType, &c.IndustryType); err != nil {
			return nil, eris.Wrap(err, "postgres: scan client")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list clients rows")
}

func (s *PostgresStore) ListProfilesByFirm(ctx context.Context, firmID string) ([]model.Profile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, firm_id FROM profiles WHERE firm_id = $1`, firmID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list profiles")
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.FirmID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list profiles rows")
}

func (s *PostgresStore) TaskExists(ctx context.Context, clientID, circularID string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM compliance_tasks WHERE client_id = $1 AND circular_id = $2`,
		clientID, circularID).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "postgres: task exists")
	}
	return n > 0, nil
}

func (s *PostgresStore) InsertTask(ctx context.Context, task *model.ComplianceTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO compliance_tasks
		 (id, client_id, firm_id, circular_id, task_title, description, due_date, status, risk_level)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)`,
		task.ID, task.ClientID, task.FirmID, task.CircularID, task.Title, task.Description,
		task.DueDate, string(task.Status), string(task.RiskLevel))
	return eris.Wrap(err, "postgres: insert task")
}

func (s *PostgresStore) InsertNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, title, message, type, read)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.Read)
	return eris.Wrap(err, "postgres: insert notification")
}

func (s *PostgresStore) InsertScrapeLog(ctx context.Context, entry *model.ScrapeLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_logs (id, source, status, message, items_found)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, string(entry.Source), entry.Status, entry.Message, entry.ItemsFound)
	return eris.Wrap(err, "postgres: insert scrape log")
}

func scanPGCircular(row pgx.Row) (*model.Circular, error) {
	var c model.Circular
	var source, status string
	var rawText, summary *string
	var published, effective *time.Time
	var required *bool

	err := row.Scan(&c.ID, &source, &c.Title, &c.URL, &rawText, &published, &effective,
		&status, &summary, &required, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Source = model.Source(source)
	c.Status = model.CircularStatus(status)
	if rawText != nil {
		c.RawText = *rawText
	}
	if summary != nil {
		c.Summary = *summary
	}
	c.PublishedDate = published
	c.EffectiveDate = effective
	c.ComplianceRequired = required
	return &c, nil
}
