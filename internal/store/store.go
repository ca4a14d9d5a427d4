package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/examhall/examhall/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	// The pragmas ride on the DSN so every pooled connection gets them;
	// a one-off Exec would only configure whichever connection served it.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		setter_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		passcode TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER,
		open_at DATETIME,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (setter_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS exam_allowed_emails (
		exam_id INTEGER NOT NULL,
		email TEXT NOT NULL,
		PRIMARY KEY (exam_id, email),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		correct_answer TEXT,
		points INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS question_options (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		taker_id INTEGER NOT NULL,
		submitted_at DATETIME NOT NULL,
		is_evaluated INTEGER NOT NULL DEFAULT 0,
		evaluated_score REAL,
		UNIQUE (exam_id, taker_id),
		FOREIGN KEY (exam_id) REFERENCES exams(id),
		FOREIGN KEY (taker_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		awarded_marks REAL,
		feedback TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (submission_id) REFERENCES submissions(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam inserts an exam with its questions, options, and allow-list in
// one transaction. Multiple-choice correct answers arrive as option indexes
// and are resolved to option ids once the rows exist.
func (s *Store) CreateExam(setterID int64, in model.ExamInput) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO exams (setter_id, title, description, passcode, duration_minutes, open_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		setterID, in.Title, in.Description, in.Passcode, in.DurationMinutes, in.OpenAt, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	examID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertExamChildren(tx, examID, in); err != nil {
		return 0, err
	}

	return examID, tx.Commit()
}

// UpdateExam replaces the exam's attributes and its whole question set in one
// transaction. Ownership is checked by the caller. Editing is blocked while
// submissions reference the exam: their answer rows point at the question ids
// the replacement would destroy.
func (s *Store) UpdateExam(examID int64, in model.ExamInput) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var subs int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM submissions WHERE exam_id = ?`, examID).Scan(&subs); err != nil {
		return err
	}
	if subs > 0 {
		return fmt.Errorf("exam %d has %d submissions and can no longer be edited: %w",
			examID, subs, model.ErrInvalidInput)
	}

	res, err := tx.Exec(
		`UPDATE exams SET title = ?, description = ?, passcode = ?, duration_minutes = ?, open_at = ?
		 WHERE id = ?`,
		in.Title, in.Description, in.Passcode, in.DurationMinutes, in.OpenAt, examID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("exam %d: %w", examID, model.ErrNotFound)
	}

	if err := deleteExamChildren(tx, examID); err != nil {
		return err
	}
	if err := insertExamChildren(tx, examID, in); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteExam removes an exam with its questions and options. Deletion is
// blocked while submissions reference the exam; the check runs inside the
// same transaction as the delete.
func (s *Store) DeleteExam(examID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var subs int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM submissions WHERE exam_id = ?`, examID).Scan(&subs); err != nil {
		return err
	}
	if subs > 0 {
		return fmt.Errorf("exam %d has %d submissions: %w", examID, subs, model.ErrInvalidInput)
	}

	if err := deleteExamChildren(tx, examID); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM exams WHERE id = ?`, examID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("exam %d: %w", examID, model.ErrNotFound)
	}

	return tx.Commit()
}

func insertExamChildren(tx *sql.Tx, examID int64, in model.ExamInput) error {
	for _, email := range in.AllowedEmails {
		if _, err := tx.Exec(
			`INSERT INTO exam_allowed_emails (exam_id, email) VALUES (?, ?)`, examID, email,
		); err != nil {
			return err
		}
	}

	for pos, qi := range in.Questions {
		res, err := tx.Exec(
			`INSERT INTO questions (exam_id, position, text, type, points) VALUES (?, ?, ?, ?, ?)`,
			examID, pos, qi.Text, qi.Type, qi.Points,
		)
		if err != nil {
			return err
		}
		questionID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		var correct *string
		for optPos, optText := range qi.Options {
			optRes, err := tx.Exec(
				`INSERT INTO question_options (question_id, position, text) VALUES (?, ?, ?)`,
				questionID, optPos, optText,
			)
			if err != nil {
				return err
			}
			optID, err := optRes.LastInsertId()
			if err != nil {
				return err
			}
			if qi.CorrectOption != nil && *qi.CorrectOption == optPos {
				v := fmt.Sprintf("%d", optID)
				correct = &v
			}
		}
		if qi.Type == model.QuestionShortAnswer {
			correct = qi.CorrectAnswer
		}
		if correct != nil {
			if _, err := tx.Exec(
				`UPDATE questions SET correct_answer = ? WHERE id = ?`, *correct, questionID,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func deleteExamChildren(tx *sql.Tx, examID int64) error {
	if _, err := tx.Exec(
		`DELETE FROM question_options WHERE question_id IN (SELECT id FROM questions WHERE exam_id = ?)`,
		examID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM questions WHERE exam_id = ?`, examID); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM exam_allowed_emails WHERE exam_id = ?`, examID)
	return err
}

// GetExam returns an exam with its allow-list, ordered questions, and options.
func (s *Store) GetExam(id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(
		`SELECT id, setter_id, title, description, passcode, duration_minutes, open_at, created_at
		 FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.SetterID, &e.Title, &e.Description, &e.Passcode, &e.DurationMinutes, &e.OpenAt, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exam{}, fmt.Errorf("exam %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Exam{}, err
	}

	rows, err := s.db.Query(`SELECT email FROM exam_allowed_emails WHERE exam_id = ? ORDER BY email`, id)
	if err != nil {
		return model.Exam{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return model.Exam{}, err
		}
		e.AllowedEmails = append(e.AllowedEmails, email)
	}
	if err := rows.Err(); err != nil {
		return model.Exam{}, err
	}

	e.Questions, err = s.questionsForExam(id)
	if err != nil {
		return model.Exam{}, err
	}
	return e, nil
}

func (s *Store) questionsForExam(examID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, position, text, type, correct_answer, points
		 FROM questions WHERE exam_id = ? ORDER BY position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Position, &q.Text, &q.Type, &q.CorrectAnswer, &q.Points); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		optRows, err := s.db.Query(
			`SELECT id, question_id, position, text FROM question_options WHERE question_id = ? ORDER BY position`,
			questions[i].ID,
		)
		if err != nil {
			return nil, err
		}
		for optRows.Next() {
			var o model.QuestionOption
			if err := optRows.Scan(&o.ID, &o.QuestionID, &o.Position, &o.Text); err != nil {
				optRows.Close()
				return nil, err
			}
			questions[i].Options = append(questions[i].Options, o)
		}
		if err := optRows.Err(); err != nil {
			optRows.Close()
			return nil, err
		}
		optRows.Close()
	}
	return questions, nil
}

const examSummarySelect = `
	SELECT e.id, e.setter_id, e.title, e.description, e.duration_minutes, e.open_at,
	       (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id),
	       (SELECT COALESCE(SUM(q.points), 0) FROM questions q WHERE q.exam_id = e.id),
	       e.created_at
	FROM exams e`

func scanExamSummaries(rows *sql.Rows) ([]model.ExamSummary, error) {
	defer rows.Close()
	var exams []model.ExamSummary
	for rows.Next() {
		var e model.ExamSummary
		if err := rows.Scan(&e.ID, &e.SetterID, &e.Title, &e.Description, &e.DurationMinutes, &e.OpenAt,
			&e.QuestionCount, &e.MaxScore, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// ListExamsBySetter returns summaries of all exams owned by a setter,
// newest first.
func (s *Store) ListExamsBySetter(setterID int64) ([]model.ExamSummary, error) {
	rows, err := s.db.Query(examSummarySelect+` WHERE e.setter_id = ? ORDER BY e.id DESC`, setterID)
	if err != nil {
		return nil, err
	}
	return scanExamSummaries(rows)
}

// ListAvailableExams returns summaries of exams a taker may currently see:
// open-at is unset or past, and the allow-list (when configured) contains
// the taker's email.
func (s *Store) ListAvailableExams(email string, now time.Time) ([]model.ExamSummary, error) {
	rows, err := s.db.Query(examSummarySelect+`
		WHERE (e.open_at IS NULL OR e.open_at <= ?)
		  AND (NOT EXISTS (SELECT 1 FROM exam_allowed_emails a WHERE a.exam_id = e.id)
		       OR EXISTS (SELECT 1 FROM exam_allowed_emails a WHERE a.exam_id = e.id AND a.email = ?))
		ORDER BY e.id DESC`, now, email)
	if err != nil {
		return nil, err
	}
	return scanExamSummaries(rows)
}
