package pipeline

import (
	"github.com/biokg-agent/backend/internal/cypher"
	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/intent"
)

// Stage names the pipeline's forward-only states.
type Stage string

const (
	StageStart      Stage = "start"
	StageClassified Stage = "classified"
	StageExtracted  Stage = "extracted"
	StageQueried    Stage = "queried"
	StageExecuted   Stage = "executed"
	StageFormatted  Stage = "formatted"
	StageDone       Stage = "done"
)

// State is the single record threaded through the pipeline. Fields are
// filled in strictly forward order; once Err is set, downstream steps leave
// QuerySpec and Rows untouched and only the formatter runs.
type State struct {
	ID        string            `json:"id"`
	Question  string            `json:"question"`
	Stage     Stage             `json:"stage"`
	Intent    intent.Intent     `json:"intent"`
	Entities  []entities.Entity `json:"entities"`
	QuerySpec *cypher.QuerySpec `json:"query_spec,omitempty"`
	Rows      []map[string]any  `json:"rows,omitempty"`
	Answer    string            `json:"answer"`
	Err       *StepError        `json:"error,omitempty"`
}

// Result is the immutable snapshot handed back to callers. Rows carries at
// most a three-row sample; RowCount is the full count, zero whenever Err is
// set.
type Result struct {
	ID          string            `json:"id"`
	Question    string            `json:"question"`
	Intent      intent.Intent     `json:"intent"`
	Entities    []entities.Entity `json:"entities"`
	CypherQuery string            `json:"cypher_query,omitempty"`
	Parameters  map[string]any    `json:"parameters,omitempty"`
	RowCount    int               `json:"row_count"`
	Rows        []map[string]any  `json:"rows,omitempty"`
	Answer      string            `json:"answer"`
	Error       *StepError        `json:"error,omitempty"`
	LatencyMS   int               `json:"latency_ms"`
}

const resultSampleRows = 3

func (s *State) result(latencyMS int) Result {
	result := Result{
		ID:        s.ID,
		Question:  s.Question,
		Intent:    s.Intent,
		Entities:  s.Entities,
		Answer:    s.Answer,
		Error:     s.Err,
		LatencyMS: latencyMS,
	}

	if s.QuerySpec != nil {
		result.CypherQuery = s.QuerySpec.Text
		result.Parameters = s.QuerySpec.Parameters
	}

	if s.Err == nil {
		result.RowCount = len(s.Rows)
		if len(s.Rows) > resultSampleRows {
			result.Rows = s.Rows[:resultSampleRows]
		} else {
			result.Rows = s.Rows
		}
	}

	return result
}
