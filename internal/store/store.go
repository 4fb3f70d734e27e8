// Package store persists users, messages, the question bank and quiz
// results in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pairquiz-backend/api"
	"pairquiz-backend/internal/store/migrations"

	"github.com/lithammer/shortuuid/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type Store struct {
	db      *sql.DB
	applied int
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens the SQLite database at path, creating parent directories,
// and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	applied, err := applyMigrations(ctx, db, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, applied: applied}, nil
}

// Applied returns the number of migrations applied by Open.
func (s *Store) Applied() int {
	return s.applied
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// PutUser creates or renames a user.
func (s *Store) PutUser(ctx context.Context, userID, displayName string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name`,
		userID, strings.TrimSpace(displayName), toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// DisplayName returns the display name of a user. Users without a name
// are reported as not found.
func (s *Store) DisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT display_name FROM users WHERE id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get display name: %w", err)
	}
	if name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	Read       bool
	CreatedAt  time.Time
}

// CreateMessage stores an unread message and returns it with its id.
func (s *Store) CreateMessage(ctx context.Context, m Message) (Message, error) {
	if m.SenderID == "" || m.ReceiverID == "" {
		return Message{}, errors.New("sender and receiver are required")
	}
	if m.ID == "" {
		m.ID = shortuuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Read = false

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, body, read, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		m.ID, m.SenderID, m.ReceiverID, m.Body, toMillis(m.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return Message{}, ErrAlreadyExists
		}
		return Message{}, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}

func (s *Store) GetMessage(ctx context.Context, messageID string) (Message, error) {
	var (
		m         Message
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, sender_id, receiver_id, body, read, created_at FROM messages WHERE id = ?`, messageID).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.Read, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	m.CreatedAt = fromMillis(createdAt)
	return m, nil
}

// MarkRead flips the read flag of an unread message sent by senderID to
// receiverID. A single conditional update makes repeated calls report
// true at most once.
func (s *Store) MarkRead(ctx context.Context, messageID, senderID, receiverID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET read = 1
		 WHERE id = ? AND sender_id = ? AND receiver_id = ? AND read = 0`,
		messageID, senderID, receiverID)
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	return n == 1, nil
}

// ReplaceQuestions swaps the whole question bank in one transaction.
func (s *Store) ReplaceQuestions(ctx context.Context, questions []api.Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace questions: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_questions`); err != nil {
		return 0, fmt.Errorf("clear questions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO quiz_questions (stage, question, options, status) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert question: %w", err)
	}
	defer stmt.Close()

	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return 0, fmt.Errorf("encode options: %w", err)
		}
		status := q.Status
		if status == "" {
			status = api.QuestionStatusActive
		}
		if _, err := stmt.ExecContext(ctx, q.Stage, q.Question, string(options), status); err != nil {
			return 0, fmt.Errorf("insert question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit questions: %w", err)
	}
	return len(questions), nil
}

// QuestionsByStage returns the active questions of a stage in insertion order.
func (s *Store) QuestionsByStage(ctx context.Context, stage int) ([]api.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stage, question, options, status FROM quiz_questions
		 WHERE stage = ? AND status = ? ORDER BY id`,
		stage, api.QuestionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := []api.Question{}
	for rows.Next() {
		var (
			q       api.Question
			options string
		)
		if err := rows.Scan(&q.ID, &q.Stage, &q.Question, &options, &q.Status); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %d: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// SaveResult stores one player's answer sheet for a quiz session.
// A second sheet from the same user returns ErrAlreadyExists.
func (s *Store) SaveResult(ctx context.Context, req api.SaveResultRequest) (api.Result, error) {
	answers := req.Answers
	if answers == nil {
		answers = []string{}
	}
	encoded, err := json.Marshal(answers)
	if err != nil {
		return api.Result{}, fmt.Errorf("encode answers: %w", err)
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_results (quiz_session_id, user_id, receiver_id, total_questions, answers, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.QuizSessionID, req.UserID, req.ReceiverID, req.TotalQuestions, string(encoded), toMillis(now))
	if err != nil {
		if isUniqueViolation(err) {
			return api.Result{}, ErrAlreadyExists
		}
		return api.Result{}, fmt.Errorf("save result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return api.Result{}, fmt.Errorf("save result: %w", err)
	}

	return api.Result{
		ID:             id,
		QuizSessionID:  req.QuizSessionID,
		UserID:         req.UserID,
		ReceiverID:     req.ReceiverID,
		TotalQuestions: req.TotalQuestions,
		Answers:        answers,
		CreatedAt:      fromMillis(toMillis(now)),
	}, nil
}

// ResultsBySession returns the answer sheets of a quiz session, oldest first.
func (s *Store) ResultsBySession(ctx context.Context, quizSessionID string) ([]api.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_session_id, user_id, receiver_id, total_questions, answers, created_at
		 FROM quiz_results WHERE quiz_session_id = ? ORDER BY id`,
		quizSessionID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []api.Result
	for rows.Next() {
		var (
			r         api.Result
			answers   string
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.QuizSessionID, &r.UserID, &r.ReceiverID, &r.TotalQuestions, &answers, &createdAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of result %d: %w", r.ID, err)
		}
		r.CreatedAt = fromMillis(createdAt)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}
