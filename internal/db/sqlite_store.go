package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/soaringjerry/Readiness/internal/services"
)

type SQLiteStore struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DSN builds the go-sqlite3 connection string. Transactions start with
// BEGIN IMMEDIATE so lifecycle calls on the same file serialize on the write lock.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", filepath.ToSlash(path))
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			s.logErr("rollback", tx.Rollback())
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ---- catalog ----

func (s *SQLiteStore) LoadCatalog(ctx context.Context) (*services.Catalog, error) {
	return loadCatalog(ctx, s.db)
}

func loadCatalog(ctx context.Context, q queryer) (*services.Catalog, error) {
	var cats []services.Category
	rows, err := q.QueryContext(ctx, `SELECT id, name, description, weight, position FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for rows.Next() {
		var c services.Category
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.Weight, &c.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Description = desc.String
		cats = append(cats, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var qs []services.Question
	rows, err = q.QueryContext(ctx, `SELECT id, category_id, code, title, description, max_score, position FROM questions`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	for rows.Next() {
		var qu services.Question
		var desc sql.NullString
		if err := rows.Scan(&qu.ID, &qu.CategoryID, &qu.Code, &qu.Title, &desc, &qu.MaxScore, &qu.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan question: %w", err)
		}
		qu.Description = desc.String
		qs = append(qs, qu)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var opts []services.Option
	rows, err = q.QueryContext(ctx, `SELECT question_id, score, label FROM question_options ORDER BY question_id, score`)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o services.Option
		if err := rows.Scan(&o.QuestionID, &o.Score, &o.Label); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		opts = append(opts, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services.NewCatalog(cats, qs, opts), nil
}

func (s *SQLiteStore) EditCategories(ctx context.Context, fn func(cat *services.Catalog) ([]services.Category, error)) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		cat, err := loadCatalog(ctx, tx)
		if err != nil {
			return err
		}
		cats, err := fn(cat)
		if err != nil {
			return err
		}
		for _, c := range cats {
			res, err := tx.ExecContext(ctx,
				`UPDATE categories SET name = ?, description = ?, weight = ? WHERE id = ?`,
				c.Name, toNullString(c.Description), c.Weight, c.ID)
			if err != nil {
				return fmt.Errorf("update category %d: %w", c.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return services.NewNotFoundError(fmt.Sprintf("category %d not found", c.ID))
			}
		}
		return nil
	})
}

func insertOptions(ctx context.Context, tx *sql.Tx, questionID int64, opts []services.Option) error {
	for _, o := range opts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO question_options (question_id, score, label) VALUES (?, ?, ?)`,
			questionID, o.Score, o.Label); err != nil {
			return fmt.Errorf("insert option %d/%d: %w", questionID, o.Score, err)
		}
	}
	return nil
}

func (s *SQLiteStore) InsertQuestion(ctx context.Context, q *services.Question, opts []services.Option) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO questions (category_id, code, title, description, max_score, position) VALUES (?, ?, ?, ?, ?, ?)`,
			q.CategoryID, q.Code, q.Title, toNullString(q.Description), q.MaxScore, q.Position)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		q.ID = id
		return insertOptions(ctx, tx, id, opts)
	})
}

func (s *SQLiteStore) UpdateQuestion(ctx context.Context, q services.Question, opts []services.Option) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE questions SET category_id = ?, code = ?, title = ?, description = ?, max_score = ?, position = ? WHERE id = ?`,
			q.CategoryID, q.Code, q.Title, toNullString(q.Description), q.MaxScore, q.Position, q.ID)
		if err != nil {
			return fmt.Errorf("update question %d: %w", q.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return services.NewNotFoundError("question not found")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM question_options WHERE question_id = ?`, q.ID); err != nil {
			return fmt.Errorf("clear options %d: %w", q.ID, err)
		}
		return insertOptions(ctx, tx, q.ID, opts)
	})
}

// DeleteQuestion cascades to the question's options and stored results.
// DeleteQuestion removes a question with its options and any draft answers.
// Questions answered by a completed assessment are kept so stored totals keep
// matching their result rows.
func (s *SQLiteStore) DeleteQuestion(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var completed int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM assessment_results r JOIN assessments a ON a.id = r.assessment_id
			 WHERE r.question_id = ? AND a.status = 'completed'`, id).Scan(&completed); err != nil {
			return fmt.Errorf("count completed answers for question %d: %w", id, err)
		}
		if completed > 0 {
			return services.NewConflictError(fmt.Sprintf("question %d is answered by %d completed assessment(s)", id, completed))
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete question %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return services.NewNotFoundError("question not found")
		}
		return nil
	})
}

func (s *SQLiteStore) SetQuestionPositions(ctx context.Context, positions map[int64]int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for id, pos := range positions {
			if _, err := tx.ExecContext(ctx, `UPDATE questions SET position = ? WHERE id = ?`, pos, id); err != nil {
				return fmt.Errorf("set position %d: %w", id, err)
			}
		}
		return nil
	})
}

// ---- companies ----

func (s *SQLiteStore) InsertCompany(ctx context.Context, c *services.Company) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, industry, size, contact_person, contact_email, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, toNullString(c.Industry), toNullString(c.Size), toNullString(c.ContactPerson), toNullString(c.ContactEmail), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*services.Company, error) {
	return getCompany(ctx, s.db, id)
}

const companyColumns = `c.id, c.name, c.industry, c.size, c.contact_person, c.contact_email, c.created_at`

func scanCompany(sc interface{ Scan(...any) error }, extra ...any) (*services.Company, error) {
	var c services.Company
	var industry, size, person, email sql.NullString
	dest := append([]any{&c.ID, &c.Name, &industry, &size, &person, &email, &c.CreatedAt}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	c.Industry, c.Size, c.ContactPerson, c.ContactEmail = industry.String, size.String, person.String, email.String
	return &c, nil
}

func getCompany(ctx context.Context, q queryer, id string) (*services.Company, error) {
	c, err := scanCompany(q.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company %s: %w", id, err)
	}
	return c, nil
}

// ListCompanies returns companies newest first with their assessment counts.
func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]*services.Company, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+companyColumns+`, COUNT(a.id)
		FROM companies c LEFT JOIN assessments a ON a.company_id = c.id
		GROUP BY c.id ORDER BY c.created_at DESC, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()
	out := []*services.Company{}
	for rows.Next() {
		var count int
		c, err := scanCompany(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.AssessmentCount = count
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- assessments ----

const assessmentSelect = `SELECT a.id, a.company_id, c.name, a.assessor_name, a.created_at, a.updated_at,
	a.status, a.completion_percentage, a.total_score, a.maturity_level, a.notes
	FROM assessments a JOIN companies c ON c.id = a.company_id`

func scanAssessment(sc interface{ Scan(...any) error }) (*services.Assessment, error) {
	var a services.Assessment
	var assessor, notes sql.NullString
	var status string
	var total, level sql.NullInt64
	if err := sc.Scan(&a.ID, &a.CompanyID, &a.CompanyName, &assessor, &a.CreatedAt, &a.UpdatedAt,
		&status, &a.CompletionPercentage, &total, &level, &notes); err != nil {
		return nil, err
	}
	a.AssessorName = assessor.String
	a.Notes = notes.String
	a.Status = services.Status(status)
	a.TotalScore = fromNullInt(total)
	a.MaturityLevel = fromNullInt(level)
	return &a, nil
}

func getAssessment(ctx context.Context, q queryer, id string) (*services.Assessment, error) {
	a, err := scanAssessment(q.QueryRowContext(ctx, assessmentSelect+` WHERE a.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLiteStore) GetAssessment(ctx context.Context, id string) (*services.Assessment, error) {
	return getAssessment(ctx, s.db, id)
}

func (s *SQLiteStore) ListAssessments(ctx context.Context) ([]*services.Assessment, error) {
	rows, err := s.db.QueryContext(ctx, assessmentSelect+` ORDER BY a.created_at DESC, a.id`)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()
	out := []*services.Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListResults(ctx context.Context, assessmentID string) ([]services.AssessmentResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.assessment_id, r.question_id, r.score, r.comment
		FROM assessment_results r JOIN questions q ON q.id = r.question_id
		WHERE r.assessment_id = ? ORDER BY q.category_id, q.position, q.id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	out := []services.AssessmentResult{}
	for rows.Next() {
		var r services.AssessmentResult
		var comment sql.NullString
		if err := rows.Scan(&r.AssessmentID, &r.QuestionID, &r.Score, &comment); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Comment = comment.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListHistory(ctx context.Context, assessmentID string) ([]services.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, assessment_id, action, at, actor, answered, total, note
		FROM assessment_history WHERE assessment_id = ? ORDER BY id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	out := []services.HistoryEntry{}
	for rows.Next() {
		var h services.HistoryEntry
		var action string
		var actor, note sql.NullString
		if err := rows.Scan(&h.ID, &h.AssessmentID, &action, &h.At, &actor, &h.Answered, &h.Total, &note); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Action = services.HistoryAction(action)
		h.Actor, h.Note = actor.String, note.String
		out = append(out, h)
	}
	return out, rows.Err()
}

// InTx runs fn inside one SQLite transaction; any error rolls back every write.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx services.AssessmentTx) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&lifecycleTx{ctx: ctx, tx: tx})
	})
}

// lifecycleTx adapts *sql.Tx to services.AssessmentTx.
type lifecycleTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *lifecycleTx) Catalog() (*services.Catalog, error) { return loadCatalog(t.ctx, t.tx) }

func (t *lifecycleTx) GetCompany(id string) (*services.Company, error) {
	return getCompany(t.ctx, t.tx, id)
}

func (t *lifecycleTx) GetAssessment(id string) (*services.Assessment, error) {
	return getAssessment(t.ctx, t.tx, id)
}

func (t *lifecycleTx) InsertAssessment(a *services.Assessment) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO assessments (id, company_id, assessor_name, created_at, updated_at, status, completion_percentage, total_score, maturity_level, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CompanyID, toNullString(a.AssessorName), a.CreatedAt, a.UpdatedAt, string(a.Status),
		a.CompletionPercentage, toNullInt(a.TotalScore), toNullInt(a.MaturityLevel), toNullString(a.Notes))
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (t *lifecycleTx) UpdateAssessment(a *services.Assessment) error {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE assessments SET company_id = ?, assessor_name = ?, updated_at = ?, status = ?,
		completion_percentage = ?, total_score = ?, maturity_level = ?, notes = ? WHERE id = ?`,
		a.CompanyID, toNullString(a.AssessorName), a.UpdatedAt, string(a.Status),
		a.CompletionPercentage, toNullInt(a.TotalScore), toNullInt(a.MaturityLevel), toNullString(a.Notes), a.ID)
	if err != nil {
		return fmt.Errorf("update assessment %s: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.NewNotFoundError("assessment not found")
	}
	return nil
}

// DeleteAssessment relies on ON DELETE CASCADE for results and history.
func (t *lifecycleTx) DeleteAssessment(id string) error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM assessments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete assessment %s: %w", id, err)
	}
	return nil
}

func (t *lifecycleTx) ReplaceResults(assessmentID string, results []services.AssessmentResult) error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM assessment_results WHERE assessment_id = ?`, assessmentID); err != nil {
		return fmt.Errorf("clear results %s: %w", assessmentID, err)
	}
	stmt, err := t.tx.PrepareContext(t.ctx,
		`INSERT INTO assessment_results (assessment_id, question_id, score, comment) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range results {
		if _, err := stmt.ExecContext(t.ctx, assessmentID, r.QuestionID, r.Score, toNullString(r.Comment)); err != nil {
			return fmt.Errorf("insert result %d: %w", r.QuestionID, err)
		}
	}
	return nil
}

func (t *lifecycleTx) AddHistory(e *services.HistoryEntry) error {
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO assessment_history (assessment_id, action, at, actor, answered, total, note) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.AssessmentID, string(e.Action), e.At, toNullString(e.Actor), e.Answered, e.Total, toNullString(e.Note))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ---- users ----

func (s *SQLiteStore) AddUser(ctx context.Context, u *services.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, pass_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, toNullString(u.Name), u.PassHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*services.User, error) {
	var u services.User
	var name sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, pass_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &name, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.Name = name.String
	return &u, nil
}

// ---- maintenance ----

// TableCounts reports the row count of every application table.
func (s *SQLiteStore) TableCounts(ctx context.Context) (map[string]int, error) {
	tables := []string{"categories", "questions", "question_options", "companies", "assessments", "assessment_results", "assessment_history", "users"}
	out := make(map[string]int, len(tables))
	for _, t := range tables {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", t, err)
		}
		out[t] = n
	}
	return out, nil
}

// Ping is used by the health endpoint.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}
