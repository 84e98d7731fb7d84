package models

import "time"

// QuestionRecord is one answered question as persisted to the history store.
// Entities holds the recognized entity list as JSON.
type QuestionRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Question    string    `json:"question"`
	Intent      string    `json:"intent"`
	Entities    string    `json:"entities"`
	CypherQuery string    `json:"cypher_query"`
	RowCount    int       `json:"row_count"`
	Answer      string    `json:"answer"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	LatencyMS   int       `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Feedback is a user rating of an answered question.
type Feedback struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	UserID     string    `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
