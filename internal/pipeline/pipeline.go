package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/cypher"
	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/intent"
	"github.com/biokg-agent/backend/internal/metrics"
	"github.com/biokg-agent/backend/internal/storage/models"
	"github.com/biokg-agent/backend/pkg/logger"
)

// Executor is the single blocking operation the pipeline performs against
// the graph store.
type Executor interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// HistoryStore persists answered questions. A nil store disables history.
type HistoryStore interface {
	InsertQuestionRecord(record *models.QuestionRecord) error
}

// Observer receives the state after each stage transition, for tracing and
// streaming surfaces.
type Observer func(stage Stage, state *State)

// Pipeline is the five-step orchestrator: classify, extract, generate,
// execute, format. Steps run in strict forward order with no back edges.
// Once a step records an error the remaining domain steps short-circuit, but
// the formatter always runs, so callers always receive a Result and never a
// raised failure.
type Pipeline struct {
	classifier   *intent.Classifier
	recognizer   *entities.Recognizer
	strategy     cypher.Strategy
	executor     Executor
	formatter    *Formatter
	history      HistoryStore
	queryTimeout time.Duration
}

func New(classifier *intent.Classifier, recognizer *entities.Recognizer, strategy cypher.Strategy, executor Executor, formatter *Formatter, history HistoryStore, queryTimeout time.Duration) *Pipeline {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Pipeline{
		classifier:   classifier,
		recognizer:   recognizer,
		strategy:     strategy,
		executor:     executor,
		formatter:    formatter,
		history:      history,
		queryTimeout: queryTimeout,
	}
}

// AnswerQuestion runs the full pipeline. It never returns an error: every
// failure is encoded in Result.Error and phrased by the formatter.
func (p *Pipeline) AnswerQuestion(ctx context.Context, question, userID string) Result {
	return p.answer(ctx, question, userID, nil)
}

// AnswerQuestionWithObserver is AnswerQuestion with per-stage callbacks, for
// the streaming surface.
func (p *Pipeline) AnswerQuestionWithObserver(ctx context.Context, question, userID string, obs Observer) Result {
	return p.answer(ctx, question, userID, obs)
}

// Explain runs the pipeline and returns the full intermediate trace instead
// of the caller-facing snapshot.
func (p *Pipeline) Explain(ctx context.Context, question string) State {
	st := p.run(ctx, question, nil)
	return *st
}

func (p *Pipeline) answer(ctx context.Context, question, userID string, obs Observer) Result {
	start := time.Now()

	st := p.run(ctx, question, obs)

	latency := int(time.Since(start).Milliseconds())
	result := st.result(latency)

	status := "ok"
	if result.Error != nil {
		status = string(result.Error.Kind)
	}
	metrics.QuestionDuration.WithLabelValues(string(result.Intent)).Observe(time.Since(start).Seconds())
	metrics.QuestionsTotal.WithLabelValues(string(result.Intent), status).Inc()

	p.record(result, userID)

	logger.Info("Question answered",
		zap.String("question_id", result.ID),
		zap.String("intent", string(result.Intent)),
		zap.Int("row_count", result.RowCount),
		zap.String("status", status),
		zap.Int("latency_ms", latency),
	)

	return result
}

func (p *Pipeline) run(ctx context.Context, question string, obs Observer) (st *State) {
	st = &State{
		ID:       uuid.New().String(),
		Question: question,
		Stage:    StageStart,
	}

	// The never-raises contract: anything escaping a step is converted into
	// a formatted apology instead of propagating to the caller.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Pipeline step panicked", zap.Any("panic", r))
			if st.Err == nil {
				st.Err = &StepError{Kind: ErrKindQueryExecution, Message: fmt.Sprintf("internal failure: %v", r)}
			}
			if st.Answer == "" {
				st.Answer = apology(st.Err)
			}
			st.Stage = StageDone
		}
	}()

	notify := func(stage Stage) {
		st.Stage = stage
		if obs != nil {
			obs(stage, st)
		}
	}

	p.classify(st)
	notify(StageClassified)

	p.extract(ctx, st)
	notify(StageExtracted)

	p.generate(ctx, st)
	notify(StageQueried)

	p.execute(ctx, st)
	notify(StageExecuted)

	p.formatter.Format(ctx, st)
	notify(StageFormatted)

	notify(StageDone)
	return st
}

// classify never fails; an unmatchable question resolves to Unknown.
func (p *Pipeline) classify(st *State) {
	st.Intent = p.classifier.Classify(st.Question)
}

// extract never fails; an empty entity list is recovered inline by the
// formatter, not treated as an error.
func (p *Pipeline) extract(ctx context.Context, st *State) {
	st.Entities = p.recognizer.Recognize(ctx, st.Question)
	metrics.EntitiesExtracted.Observe(float64(len(st.Entities)))
}

func (p *Pipeline) generate(ctx context.Context, st *State) {
	if st.Err != nil {
		return
	}
	if st.Intent == intent.Unknown {
		// No query for unclassifiable questions; the formatter produces
		// guidance instead.
		return
	}

	spec, err := p.strategy.Generate(ctx, st.Question, st.Intent, st.Entities)
	if err != nil {
		st.Err = &StepError{Kind: errorKindFor(err), Message: err.Error()}
		return
	}
	st.QuerySpec = spec
}

func (p *Pipeline) execute(ctx context.Context, st *State) {
	if st.Err != nil || st.QuerySpec == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := p.executor.ExecuteQuery(ctx, st.QuerySpec.Text, st.QuerySpec.Parameters)
	metrics.GraphQueryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		kind := ErrKindQueryExecution
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrKindTimeout
		}
		st.Err = &StepError{Kind: kind, Message: err.Error()}
		return
	}

	st.Rows = rows
	metrics.RowsReturned.Observe(float64(len(rows)))
}

func (p *Pipeline) record(result Result, userID string) {
	if p.history == nil {
		return
	}

	entitiesJSON, _ := json.Marshal(result.Entities)
	errorKind := ""
	if result.Error != nil {
		errorKind = string(result.Error.Kind)
	}

	err := p.history.InsertQuestionRecord(&models.QuestionRecord{
		ID:          result.ID,
		UserID:      userID,
		Question:    result.Question,
		Intent:      string(result.Intent),
		Entities:    string(entitiesJSON),
		CypherQuery: result.CypherQuery,
		RowCount:    result.RowCount,
		Answer:      result.Answer,
		ErrorKind:   errorKind,
		LatencyMS:   result.LatencyMS,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record question history", zap.Error(err))
	}
}

func errorKindFor(err error) ErrorKind {
	switch {
	case errors.Is(err, cypher.ErrUnsupportedIntent):
		return ErrKindUnsupportedIntent
	case errors.Is(err, cypher.ErrInvalidQuery):
		return ErrKindInvalidQuery
	default:
		return ErrKindInvalidQuery
	}
}
