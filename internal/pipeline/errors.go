package pipeline

import "fmt"

// ErrorKind labels a pipeline failure for callers. Only the four fatal kinds
// ever appear in a Result; ambiguous classification and missing entities are
// recovered inline.
type ErrorKind string

const (
	ErrKindClassificationAmbiguous ErrorKind = "classification_ambiguous"
	ErrKindNoEntities              ErrorKind = "no_entities"
	ErrKindUnsupportedIntent       ErrorKind = "unsupported_intent"
	ErrKindInvalidQuery            ErrorKind = "invalid_query"
	ErrKindQueryExecution          ErrorKind = "query_execution"
	ErrKindTimeout                 ErrorKind = "timeout"
)

// StepError is a failure recorded into the state by the orchestrator. It
// never propagates out of AnswerQuestion; the formatter turns it into an
// apology.
type StepError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
