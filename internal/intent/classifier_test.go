package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name     string
		question string
		expected Intent
	}{
		{
			name:     "gene disease association",
			question: "What genes are associated with Hypertension?",
			expected: GeneDisease,
		},
		{
			name:     "gene disease uppercase",
			question: "WHICH GENES ARE LINKED TO DIABETES",
			expected: GeneDisease,
		},
		{
			name:     "drug treatment",
			question: "What drugs treat Type 2 Diabetes?",
			expected: DrugDisease,
		},
		{
			name:     "therapy phrasing",
			question: "Is there a therapy for Asthma?",
			expected: DrugDisease,
		},
		{
			name:     "protein disease",
			question: "Which proteins are associated with Alzheimer's disease?",
			expected: ProteinDisease,
		},
		{
			name:     "drug target",
			question: "What proteins does Metformin target?",
			expected: DrugTarget,
		},
		{
			name:     "inhibitor phrasing",
			question: "Which drugs inhibit PROT_ALPHA?",
			expected: DrugTarget,
		},
		{
			name:     "pathway",
			question: "Show me the pathway from genes to treatments for cancer",
			expected: Pathway,
		},
		{
			name:     "unclassifiable",
			question: "asdfqwer",
			expected: Unknown,
		},
		{
			name:     "empty question",
			question: "",
			expected: Unknown,
		},
		{
			name:     "punctuation only",
			question: "?!.,;",
			expected: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.question))
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	c := NewClassifier()

	// "target" outranks "drug": drug-target questions mention both.
	assert.Equal(t, DrugTarget, c.Classify("What protein targets does the drug AlphaCure have?"))

	// "pathway" outranks everything else.
	assert.Equal(t, Pathway, c.Classify("Explain the drug treatment pathway for diabetes genes"))
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier()
	question := "What genes are associated with Hypertension?"

	first := c.Classify(question)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(question))
	}
}
