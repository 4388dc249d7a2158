package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/dynaforms/dynaforms/internal/api"
	"github.com/dynaforms/dynaforms/internal/services"
)

// SQLiteStore persists the full api.Store surface in SQLite. Cascades and
// the shared response-set uniqueness rule live in the schema; see
// migrations/0001_init.sql.
type SQLiteStore struct {
	db *sql.DB
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

var _ api.Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func int64ToBool(v int64) bool { return v != 0 }

// --- forms ---

func (s *SQLiteStore) InsertForm(f *services.Form) (*services.Form, error) {
	res, err := s.db.Exec(`INSERT INTO forms (name) VALUES (?)`, f.Name)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	cp := *f
	cp.ID = id
	return &cp, nil
}

func (s *SQLiteStore) GetForm(id int64) (*services.Form, error) {
	var f services.Form
	err := s.db.QueryRow(`SELECT id, name FROM forms WHERE id = ?`, id).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SQLiteStore) ListForms() ([]*services.Form, error) {
	rows, err := s.db.Query(`SELECT id, name FROM forms ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListForms: rows.Close", cerr)
		}
	}()
	out := []*services.Form{}
	for rows.Next() {
		var f services.Form
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteForm(id int64) error {
	_, err := s.db.Exec(`DELETE FROM forms WHERE id = ?`, id)
	return err
}

// --- questions ---

func (s *SQLiteStore) InsertQuestion(q *services.Question) (*services.Question, error) {
	res, err := s.db.Exec(`INSERT INTO questions (form_id, kind, prompt, position) VALUES (?, ?, ?, ?)`,
		q.FormID, string(q.Kind), q.Prompt, q.Order)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	cp := *q
	cp.ID = id
	return &cp, nil
}

func (s *SQLiteStore) GetQuestion(id int64) (*services.Question, error) {
	var q services.Question
	var kind string
	err := s.db.QueryRow(`SELECT id, form_id, kind, prompt, position FROM questions WHERE id = ?`, id).
		Scan(&q.ID, &q.FormID, &kind, &q.Prompt, &q.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q.Kind = services.QuestionKind(kind)
	return &q, nil
}

func (s *SQLiteStore) DeleteQuestion(id int64) error {
	_, err := s.db.Exec(`DELETE FROM questions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ListQuestions(formID int64) ([]*services.Question, error) {
	rows, err := s.db.Query(`SELECT id, form_id, kind, prompt, position FROM questions
      WHERE form_id = ? ORDER BY position ASC, id ASC`, formID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListQuestions: rows.Close", cerr)
		}
	}()
	out := []*services.Question{}
	for rows.Next() {
		var q services.Question
		var kind string
		if err := rows.Scan(&q.ID, &q.FormID, &kind, &q.Prompt, &q.Order); err != nil {
			return nil, err
		}
		q.Kind = services.QuestionKind(kind)
		out = append(out, &q)
	}
	return out, rows.Err()
}

// UpdateQuestionOrders applies all position changes in one transaction so
// concurrent readers never observe a half-applied reorder.
func (s *SQLiteStore) UpdateQuestionOrders(formID int64, orders map[int64]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for id, pos := range orders {
		if _, err := tx.Exec(`UPDATE questions SET position = ? WHERE id = ? AND form_id = ?`, pos, id, formID); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				s.logErr("UpdateQuestionOrders: rollback", rerr)
			}
			return err
		}
	}
	return tx.Commit()
}

// --- answer options ---

func (s *SQLiteStore) InsertOption(o *services.AnswerOption) (*services.AnswerOption, error) {
	res, err := s.db.Exec(`INSERT INTO answer_options (question_id, label) VALUES (?, ?)`, o.QuestionID, o.Label)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	cp := *o
	cp.ID = id
	return &cp, nil
}

func (s *SQLiteStore) ListOptions(questionID int64) ([]*services.AnswerOption, error) {
	rows, err := s.db.Query(`SELECT id, question_id, label FROM answer_options WHERE question_id = ? ORDER BY id ASC`, questionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListOptions: rows.Close", cerr)
		}
	}()
	out := []*services.AnswerOption{}
	for rows.Next() {
		var o services.AnswerOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Label); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

// --- response sets ---

const responseSetColumns = `id, token, form_id, respondent, interviewer, shared, created_at`

func scanResponseSet(row interface{ Scan(...any) error }) (*services.ResponseSet, error) {
	var rs services.ResponseSet
	var shared int64
	var created string
	if err := row.Scan(&rs.ID, &rs.Token, &rs.FormID, &rs.Respondent, &rs.Interviewer, &shared, &created); err != nil {
		return nil, err
	}
	rs.Shared = int64ToBool(shared)
	rs.CreatedAt = parseTime(created)
	return &rs, nil
}

func (s *SQLiteStore) GetSharedResponseSet(formID int64, respondent, interviewer string) (*services.ResponseSet, error) {
	row := s.db.QueryRow(`SELECT `+responseSetColumns+` FROM response_sets
      WHERE shared = 1 AND form_id = ? AND respondent = ? AND interviewer = ?`, formID, respondent, interviewer)
	rs, err := scanResponseSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *SQLiteStore) InsertResponseSet(rs *services.ResponseSet) (*services.ResponseSet, error) {
	res, err := s.db.Exec(`INSERT INTO response_sets (token, form_id, respondent, interviewer, shared, created_at)
      VALUES (?, ?, ?, ?, ?, ?)`,
		rs.Token, rs.FormID, rs.Respondent, rs.Interviewer, boolToInt64(rs.Shared), formatTime(rs.CreatedAt))
	if err != nil {
		if rs.Shared && isConstraintErr(err) {
			return nil, services.ErrDuplicateResponseSet
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	cp := *rs
	cp.ID = id
	return &cp, nil
}

func (s *SQLiteStore) ListResponseSets(formID int64) ([]*services.ResponseSet, error) {
	rows, err := s.db.Query(`SELECT `+responseSetColumns+` FROM response_sets WHERE form_id = ? ORDER BY id ASC`, formID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListResponseSets: rows.Close", cerr)
		}
	}()
	out := []*services.ResponseSet{}
	for rows.Next() {
		rs, err := scanResponseSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetSetResponses(setID int64) (*services.SetResponses, error) {
	row := s.db.QueryRow(`SELECT `+responseSetColumns+` FROM response_sets WHERE id = ?`, setID)
	rs, err := scanResponseSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := &services.SetResponses{Set: rs}

	if err := s.queryRows(`SELECT id, response_set_id, respondent, question_id, body, submitted_at
      FROM text_responses WHERE response_set_id = ? ORDER BY id ASC`, setID, func(rows *sql.Rows) error {
		var r services.TextResponse
		var submitted string
		if err := rows.Scan(&r.ID, &r.ResponseSetID, &r.Respondent, &r.QuestionID, &r.Body, &submitted); err != nil {
			return err
		}
		r.SubmittedAt = parseTime(submitted)
		out.Text = append(out.Text, &r)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.queryRows(`SELECT id, response_set_id, respondent, question_id, answer, submitted_at
      FROM yes_no_responses WHERE response_set_id = ? ORDER BY id ASC`, setID, func(rows *sql.Rows) error {
		var r services.YesNoResponse
		var answer int64
		var submitted string
		if err := rows.Scan(&r.ID, &r.ResponseSetID, &r.Respondent, &r.QuestionID, &answer, &submitted); err != nil {
			return err
		}
		r.Answer = int64ToBool(answer)
		r.SubmittedAt = parseTime(submitted)
		out.YesNo = append(out.YesNo, &r)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.queryRows(`SELECT id, response_set_id, respondent, question_id, option_id, submitted_at
      FROM multiple_choice_responses WHERE response_set_id = ? ORDER BY id ASC`, setID, func(rows *sql.Rows) error {
		var r services.MultipleChoiceResponse
		var submitted string
		if err := rows.Scan(&r.ID, &r.ResponseSetID, &r.Respondent, &r.QuestionID, &r.OptionID, &submitted); err != nil {
			return err
		}
		r.SubmittedAt = parseTime(submitted)
		out.MultipleChoice = append(out.MultipleChoice, &r)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.queryRows(`SELECT id, response_set_id, respondent, question_id, option_id, submitted_at
      FROM rating_responses WHERE response_set_id = ? ORDER BY id ASC`, setID, func(rows *sql.Rows) error {
		var r services.RatingResponse
		var submitted string
		if err := rows.Scan(&r.ID, &r.ResponseSetID, &r.Respondent, &r.QuestionID, &r.OptionID, &submitted); err != nil {
			return err
		}
		r.SubmittedAt = parseTime(submitted)
		out.Rating = append(out.Rating, &r)
		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *SQLiteStore) queryRows(query string, arg any, scan func(*sql.Rows) error) error {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("queryRows: rows.Close", cerr)
		}
	}()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// --- response writes ---

// sqliteTx runs one submission's response inserts inside a database
// transaction; they commit or roll back together.
type sqliteTx struct {
	tx *sql.Tx
}

func (s *SQLiteStore) BeginResponseTx() (services.ResponseTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

func (t *sqliteTx) InsertTextResponse(r *services.TextResponse) error {
	_, err := t.tx.Exec(`INSERT INTO text_responses (response_set_id, respondent, question_id, body, submitted_at)
      VALUES (?, ?, ?, ?, ?)`, r.ResponseSetID, r.Respondent, r.QuestionID, r.Body, formatTime(r.SubmittedAt))
	return err
}

func (t *sqliteTx) InsertYesNoResponse(r *services.YesNoResponse) error {
	_, err := t.tx.Exec(`INSERT INTO yes_no_responses (response_set_id, respondent, question_id, answer, submitted_at)
      VALUES (?, ?, ?, ?, ?)`, r.ResponseSetID, r.Respondent, r.QuestionID, boolToInt64(r.Answer), formatTime(r.SubmittedAt))
	return err
}

func (t *sqliteTx) InsertMultipleChoiceResponse(r *services.MultipleChoiceResponse) error {
	_, err := t.tx.Exec(`INSERT INTO multiple_choice_responses (response_set_id, respondent, question_id, option_id, submitted_at)
      VALUES (?, ?, ?, ?, ?)`, r.ResponseSetID, r.Respondent, r.QuestionID, r.OptionID, formatTime(r.SubmittedAt))
	return err
}

func (t *sqliteTx) InsertRatingResponse(r *services.RatingResponse) error {
	_, err := t.tx.Exec(`INSERT INTO rating_responses (response_set_id, respondent, question_id, option_id, submitted_at)
      VALUES (?, ?, ?, ?, ?)`, r.ResponseSetID, r.Respondent, r.QuestionID, r.OptionID, formatTime(r.SubmittedAt))
	return err
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

// --- users ---

func (s *SQLiteStore) FindUserByEmail(email string) (*services.User, error) {
	var u services.User
	var created string
	err := s.db.QueryRow(`SELECT id, email, pass_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PassHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (s *SQLiteStore) AddUser(u *services.User) error {
	_, err := s.db.Exec(`INSERT INTO users (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, formatTime(u.CreatedAt))
	if isConstraintErr(err) {
		return services.NewConflictError("email exists")
	}
	return err
}
