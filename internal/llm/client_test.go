package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain query untouched",
			in:   "MATCH (g:Gene) RETURN g LIMIT 10",
			want: "MATCH (g:Gene) RETURN g LIMIT 10",
		},
		{
			name: "fenced block",
			in:   "```\nMATCH (g:Gene) RETURN g LIMIT 10\n```",
			want: "MATCH (g:Gene) RETURN g LIMIT 10",
		},
		{
			name: "fenced with language tag",
			in:   "```cypher\nMATCH (g:Gene) RETURN g LIMIT 10\n```",
			want: "MATCH (g:Gene) RETURN g LIMIT 10",
		},
		{
			name: "multi line query",
			in:   "```cypher\nMATCH (g:Gene)\nRETURN g\nLIMIT 10\n```",
			want: "MATCH (g:Gene)\nRETURN g\nLIMIT 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}
