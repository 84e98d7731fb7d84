package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biokg-agent/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(":memory:")
	require.NoError(t, err)
	require.NoError(t, client.InitSchema())
	t.Cleanup(func() { client.Close() })

	return client
}

func TestInsertAndGetQuestionHistory(t *testing.T) {
	client := newTestClient(t)

	records := []*models.QuestionRecord{
		{
			ID:          "q1",
			UserID:      "user-1",
			Question:    "What genes are linked to Hypertension?",
			Intent:      "gene_disease",
			Entities:    `[{"name":"Hypertension","kind":"disease"}]`,
			CypherQuery: "MATCH (g:Gene)-[:LINKED_TO]->(d:Disease) RETURN g",
			RowCount:    2,
			Answer:      "Found 2 results.",
			LatencyMS:   41,
			CreatedAt:   time.Unix(1000, 0),
		},
		{
			ID:        "q2",
			UserID:    "user-1",
			Question:  "asdfqwer",
			Intent:    "unknown",
			Answer:    "I couldn't find any specific entities.",
			LatencyMS: 3,
			CreatedAt: time.Unix(2000, 0),
		},
		{
			ID:        "q3",
			UserID:    "user-2",
			Question:  "What drugs treat Type2_Diabetes?",
			Intent:    "drug_disease",
			ErrorKind: "query_execution",
			Answer:    "Sorry, I had trouble with that question.",
			CreatedAt: time.Unix(3000, 0),
		},
	}
	for _, r := range records {
		require.NoError(t, client.InsertQuestionRecord(r))
	}

	history, err := client.GetQuestionHistory("user-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Newest first.
	assert.Equal(t, "q2", history[0].ID)
	assert.Equal(t, "q1", history[1].ID)
	assert.Equal(t, "gene_disease", history[1].Intent)
	assert.Equal(t, 2, history[1].RowCount)
	assert.Contains(t, history[1].Entities, "Hypertension")
	assert.Equal(t, time.Unix(1000, 0), history[1].CreatedAt)
}

func TestGetQuestionHistoryLimit(t *testing.T) {
	client := newTestClient(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.InsertQuestionRecord(&models.QuestionRecord{
			ID:        string(rune('a' + i)),
			UserID:    "user-1",
			Question:  "q",
			Intent:    "unknown",
			CreatedAt: time.Unix(int64(i), 0),
		}))
	}

	history, err := client.GetQuestionHistory("user-1", 3)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestGetQuestionHistoryEmpty(t *testing.T) {
	client := newTestClient(t)

	history, err := client.GetQuestionHistory("nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStoreFeedback(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.InsertQuestionRecord(&models.QuestionRecord{
		ID:        "q1",
		UserID:    "user-1",
		Question:  "What genes are linked to Hypertension?",
		Intent:    "gene_disease",
		CreatedAt: time.Now(),
	}))

	err := client.StoreFeedback(&models.Feedback{
		ID:         "f1",
		QuestionID: "q1",
		UserID:     "user-1",
		Rating:     5,
		Comment:    "spot on",
	})
	assert.NoError(t, err)
}

func TestStoreFeedbackUnknownQuestion(t *testing.T) {
	client := newTestClient(t)

	err := client.StoreFeedback(&models.Feedback{
		ID:         "f1",
		QuestionID: "missing",
		Rating:     1,
	})
	assert.Error(t, err, "foreign keys are enforced")
}
