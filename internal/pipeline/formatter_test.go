package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/biokg-agent/backend/internal/cypher"
	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/intent"
)

type fakeSummarizer struct {
	answer string
	err    error
	calls  int
}

func (f *fakeSummarizer) SummarizeResults(_ context.Context, _ string, _ []map[string]any, _ int) (string, error) {
	f.calls++
	return f.answer, f.err
}

func TestFormatApology(t *testing.T) {
	f := NewFormatter(10, nil)
	st := &State{
		Question: "What drugs treat influenza?",
		Intent:   intent.DrugDisease,
		Err:      &StepError{Kind: ErrKindUnsupportedIntent, Message: "no bindable template"},
	}

	f.Format(context.Background(), st)

	assert.Contains(t, st.Answer, "Sorry")
	assert.Contains(t, st.Answer, "unsupported_intent")
	assert.Contains(t, st.Answer, "no bindable template")
}

func TestFormatNoEntitiesGuidance(t *testing.T) {
	f := NewFormatter(10, nil)
	st := &State{Question: "asdfqwer", Intent: intent.Unknown}

	f.Format(context.Background(), st)

	assert.Nil(t, st.Err)
	assert.Contains(t, st.Answer, "couldn't find any specific")
	assert.Contains(t, st.Answer, "Hypertension", "guidance includes a worked example")
}

func TestFormatUnknownIntentWithEntities(t *testing.T) {
	f := NewFormatter(10, nil)
	st := &State{
		Question: "Hypertension Metformin",
		Intent:   intent.Unknown,
		Entities: []entities.Entity{
			{Name: "Hypertension", Kind: entities.KindDisease},
			{Name: "Metformin", Kind: entities.KindDrug},
		},
	}

	f.Format(context.Background(), st)

	assert.Contains(t, st.Answer, "Hypertension and Metformin")
	assert.Contains(t, st.Answer, "couldn't tell")
}

func TestFormatNoResults(t *testing.T) {
	f := NewFormatter(10, nil)
	st := &State{
		Question:  "What genes are linked to Hypertension?",
		Intent:    intent.GeneDisease,
		Entities:  []entities.Entity{{Name: "Hypertension", Kind: entities.KindDisease}},
		QuerySpec: &cypher.QuerySpec{Text: "MATCH (g:Gene) RETURN g"},
	}

	f.Format(context.Background(), st)

	assert.Contains(t, st.Answer, "didn't find")
	assert.Contains(t, st.Answer, "gene-disease")
	assert.Contains(t, st.Answer, "Hypertension")
}

func TestFormatRowSentences(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]any
		want []string
	}{
		{
			name: "gene disease",
			row:  map[string]any{"gene": "GENE_ALPHA", "disease": "Hypertension"},
			want: []string{"Gene GENE_ALPHA is linked to Hypertension."},
		},
		{
			name: "drug disease with efficacy",
			row:  map[string]any{"drug": "Metformin", "disease": "Type2_Diabetes", "efficacy": "high"},
			want: []string{"Drug Metformin treats Type2_Diabetes", "efficacy: high"},
		},
		{
			name: "protein disease with confidence",
			row:  map[string]any{"protein": "PROT_ALPHA", "disease": "Hypertension", "confidence": "medium"},
			want: []string{"Protein PROT_ALPHA is associated with Hypertension", "confidence: medium"},
		},
		{
			name: "drug target",
			row:  map[string]any{"drug": "Metformin", "protein": "PROT_ALPHA", "affinity": "high"},
			want: []string{"Drug Metformin targets protein PROT_ALPHA", "affinity: high"},
		},
		{
			name: "pathway",
			row: map[string]any{
				"gene": "GENE_ALPHA", "protein": "PROT_ALPHA",
				"disease": "Hypertension", "drug": "Metformin",
			},
			want: []string{"Gene GENE_ALPHA encodes PROT_ALPHA", "associated with Hypertension", "treated by Metformin"},
		},
		{
			name: "unrecognized columns fall back to key-value",
			row:  map[string]any{"count": 3, "label": "Gene"},
			want: []string{"count: 3", "label: Gene"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentence := renderRow(tt.row)
			for _, want := range tt.want {
				assert.Contains(t, sentence, want)
			}
		})
	}
}

func TestFormatTruncation(t *testing.T) {
	f := NewFormatter(10, nil)
	rows := make([]map[string]any, 15)
	for i := range rows {
		rows[i] = map[string]any{"gene": fmt.Sprintf("GENE_%d", i), "disease": "Hypertension"}
	}
	st := &State{
		Question:  "What genes are linked to Hypertension?",
		Intent:    intent.GeneDisease,
		QuerySpec: &cypher.QuerySpec{Text: "MATCH (g) RETURN g"},
		Rows:      rows,
	}

	f.Format(context.Background(), st)

	assert.Contains(t, st.Answer, "Found 15 results.")
	assert.Contains(t, st.Answer, "first 10 of 15")
	assert.Contains(t, st.Answer, "GENE_9")
	assert.NotContains(t, st.Answer, "GENE_10", "rows past the cap are not enumerated")
}

func TestFormatSingularResult(t *testing.T) {
	f := NewFormatter(10, nil)
	st := &State{
		QuerySpec: &cypher.QuerySpec{Text: "MATCH (g) RETURN g"},
		Rows:      []map[string]any{{"gene": "GENE_ALPHA", "disease": "Hypertension"}},
	}

	f.Format(context.Background(), st)

	assert.True(t, strings.HasPrefix(st.Answer, "Found 1 result. "), st.Answer)
}

func TestFormatSummarizerPreferred(t *testing.T) {
	summarizer := &fakeSummarizer{answer: "Two genes are linked to hypertension."}
	f := NewFormatter(10, summarizer)
	st := &State{
		QuerySpec: &cypher.QuerySpec{Text: "MATCH (g) RETURN g"},
		Rows:      []map[string]any{{"gene": "GENE_ALPHA", "disease": "Hypertension"}},
	}

	f.Format(context.Background(), st)

	assert.Equal(t, "Two genes are linked to hypertension.", st.Answer)
	assert.Equal(t, 1, summarizer.calls)
}

func TestFormatSummarizerFailureFallsBack(t *testing.T) {
	summarizer := &fakeSummarizer{err: errors.New("llm unavailable")}
	f := NewFormatter(10, summarizer)
	st := &State{
		QuerySpec: &cypher.QuerySpec{Text: "MATCH (g) RETURN g"},
		Rows:      []map[string]any{{"gene": "GENE_ALPHA", "disease": "Hypertension"}},
	}

	f.Format(context.Background(), st)

	assert.Contains(t, st.Answer, "Gene GENE_ALPHA is linked to Hypertension.")
}

func TestFormatSummarizerNotCalledOnError(t *testing.T) {
	summarizer := &fakeSummarizer{answer: "should not appear"}
	f := NewFormatter(10, summarizer)
	st := &State{
		Err: &StepError{Kind: ErrKindQueryExecution, Message: "boom"},
	}

	f.Format(context.Background(), st)

	assert.Zero(t, summarizer.calls)
	assert.Contains(t, st.Answer, "Sorry")
}
