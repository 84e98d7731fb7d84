package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/intent"
	"github.com/biokg-agent/backend/pkg/logger"
)

// Summarizer optionally rephrases result rows into prose. Failures fall back
// to the deterministic rendering.
type Summarizer interface {
	SummarizeResults(ctx context.Context, question string, rows []map[string]any, total int) (string, error)
}

// Formatter is the terminal pipeline step. It always produces a non-empty
// Answer, whatever the upstream outcome: an apology when Err is set, guidance
// when the question was unclassifiable, a no-results message for empty row
// sets, and an enumeration of up to maxRows rows otherwise.
type Formatter struct {
	maxRows    int
	summarizer Summarizer
}

func NewFormatter(maxRows int, summarizer Summarizer) *Formatter {
	if maxRows <= 0 {
		maxRows = 10
	}
	return &Formatter{maxRows: maxRows, summarizer: summarizer}
}

func (f *Formatter) Format(ctx context.Context, st *State) {
	switch {
	case st.Err != nil:
		st.Answer = apology(st.Err)
	case st.QuerySpec == nil:
		st.Answer = f.guidance(st)
	case len(st.Rows) == 0:
		st.Answer = f.noResults(st)
	default:
		st.Answer = f.results(ctx, st)
	}
}

func apology(err *StepError) string {
	return fmt.Sprintf("Sorry, I had trouble with that question (%s): %s", err.Kind, err.Message)
}

// guidance handles questions that produced no query at all. Missing entities
// and an unknown intent are recovered here rather than reported as errors.
func (f *Formatter) guidance(st *State) string {
	if len(st.Entities) == 0 {
		return "I couldn't find any specific genes, proteins, diseases, or drugs in your question. " +
			"Try asking about entries in the knowledge graph, for example: \"What genes are linked to Hypertension?\""
	}
	return fmt.Sprintf("I recognized %s but couldn't tell what you want to know about them. "+
		"Try asking about linked genes, associated proteins, treatments, or drug targets.",
		entityList(st.Entities))
}

func (f *Formatter) noResults(st *State) string {
	if len(st.Entities) > 0 {
		return fmt.Sprintf("I didn't find any %s results for %s in the knowledge graph.",
			intentPhrase(st.Intent), entityList(st.Entities))
	}
	return fmt.Sprintf("I didn't find any %s results for your question in the knowledge graph.",
		intentPhrase(st.Intent))
}

func (f *Formatter) results(ctx context.Context, st *State) string {
	if f.summarizer != nil {
		answer, err := f.summarizer.SummarizeResults(ctx, st.Question, st.Rows, len(st.Rows))
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer
		}
		if err != nil {
			logger.Warn("Answer summarization failed, using deterministic phrasing", zap.Error(err))
		}
	}

	total := len(st.Rows)
	shown := st.Rows
	if total > f.maxRows {
		shown = st.Rows[:f.maxRows]
	}

	var b strings.Builder
	if total == 1 {
		b.WriteString("Found 1 result. ")
	} else {
		fmt.Fprintf(&b, "Found %d results. ", total)
	}

	sentences := make([]string, 0, len(shown))
	for _, row := range shown {
		sentences = append(sentences, renderRow(row))
	}
	b.WriteString(strings.Join(sentences, " "))

	if total > f.maxRows {
		fmt.Fprintf(&b, " Showing the first %d of %d results.", f.maxRows, total)
	}
	return b.String()
}

// renderRow produces one sentence per row, keyed on which well-known columns
// are present rather than on the classified intent, so synthesized and LLM
// query shapes render the same way.
func renderRow(row map[string]any) string {
	gene := field(row, "gene")
	protein := field(row, "protein")
	disease := field(row, "disease")
	drug := field(row, "drug")

	switch {
	case gene != "" && protein != "" && disease != "" && drug != "":
		return fmt.Sprintf("Gene %s encodes %s, which is associated with %s and treated by %s.",
			gene, protein, disease, drug)
	case drug != "" && protein != "":
		s := fmt.Sprintf("Drug %s targets protein %s", drug, protein)
		if affinity := field(row, "affinity"); affinity != "" {
			s += fmt.Sprintf(" (affinity: %s)", affinity)
		}
		return s + "."
	case drug != "" && disease != "":
		s := fmt.Sprintf("Drug %s treats %s", drug, disease)
		if efficacy := field(row, "efficacy"); efficacy != "" {
			s += fmt.Sprintf(" (efficacy: %s)", efficacy)
		}
		return s + "."
	case protein != "" && disease != "":
		s := fmt.Sprintf("Protein %s is associated with %s", protein, disease)
		if confidence := field(row, "confidence"); confidence != "" {
			s += fmt.Sprintf(" (confidence: %s)", confidence)
		}
		return s + "."
	case gene != "" && disease != "":
		return fmt.Sprintf("Gene %s is linked to %s.", gene, disease)
	case gene != "" && protein != "":
		return fmt.Sprintf("Gene %s encodes protein %s.", gene, protein)
	default:
		return genericRow(row)
	}
}

func genericRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, row[k]))
	}
	return strings.Join(parts, ", ") + "."
}

func field(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v)
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func entityList(ents []entities.Entity) string {
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		names = append(names, e.Name)
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

func intentPhrase(it intent.Intent) string {
	switch it {
	case intent.GeneDisease:
		return "gene-disease"
	case intent.DrugDisease:
		return "drug-disease"
	case intent.ProteinDisease:
		return "protein-disease"
	case intent.DrugTarget:
		return "drug-target"
	case intent.Pathway:
		return "pathway"
	default:
		return "matching"
	}
}
