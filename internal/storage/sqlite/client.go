package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/storage/models"
	"github.com/biokg-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS question_history (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		question TEXT NOT NULL,
		intent TEXT NOT NULL,
		entities TEXT,
		cypher_query TEXT,
		row_count INTEGER,
		answer TEXT,
		error_kind TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_question_user ON question_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_question_created ON question_history(created_at);
	CREATE INDEX IF NOT EXISTS idx_question_intent ON question_history(intent);

	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		user_id TEXT,
		rating INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (question_id) REFERENCES question_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_question ON feedback(question_id);
	CREATE INDEX IF NOT EXISTS idx_feedback_created ON feedback(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertQuestionRecord(record *models.QuestionRecord) error {
	query := `
		INSERT INTO question_history (id, user_id, question, intent, entities, cypher_query,
			row_count, answer, error_kind, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.UserID,
		record.Question,
		record.Intent,
		record.Entities,
		record.CypherQuery,
		record.RowCount,
		record.Answer,
		record.ErrorKind,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert question record: %w", err)
	}

	logger.Debug("Question recorded",
		zap.String("question_id", record.ID),
		zap.String("intent", record.Intent),
	)

	return nil
}

func (c *Client) GetQuestionHistory(userID string, limit int) ([]models.QuestionRecord, error) {
	query := `
		SELECT id, user_id, question, intent, entities, cypher_query,
			row_count, answer, error_kind, latency_ms, created_at
		FROM question_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get question history: %w", err)
	}
	defer rows.Close()

	var records []models.QuestionRecord
	for rows.Next() {
		var r models.QuestionRecord
		var createdAt int64

		err := rows.Scan(&r.ID, &r.UserID, &r.Question, &r.Intent, &r.Entities,
			&r.CypherQuery, &r.RowCount, &r.Answer, &r.ErrorKind, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, nil
}

func (c *Client) StoreFeedback(feedback *models.Feedback) error {
	query := `INSERT INTO feedback (id, question_id, user_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		feedback.ID,
		feedback.QuestionID,
		feedback.UserID,
		feedback.Rating,
		feedback.Comment,
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.String("question_id", feedback.QuestionID),
		zap.Int("rating", feedback.Rating),
	)

	return nil
}
