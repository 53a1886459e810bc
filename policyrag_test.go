package policyrag

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geniteam/policyrag/generate"
	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

const (
	travelPolicyText = "Employees of grade G1 are entitled to a travel allowance of 500 EUR per month."
	leavePolicyText  = "All employees are entitled to 25 days of paid annual leave per year."
	fuelPolicyText   = "No fuel allowance is specified for employees of grade G1-A."
)

// cannedEmbedder returns fixed vectors for known texts so the end-to-end
// flow is deterministic without a model session.
type cannedEmbedder struct {
	vectors map[string][]float32
	failErr error
}

func (c *cannedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.failErr != nil {
		return nil, c.failErr
	}
	if v, ok := c.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: no canned vector for %q", model.ErrEmbeddingUnavailable, text)
}

func (c *cannedEmbedder) ModelID() string { return "test/canned-model" }
func (c *cannedEmbedder) Dimension() int  { return 3 }
func (c *cannedEmbedder) Close() error    { return nil }

// recordingGenerator captures the request and returns a canned answer.
type recordingGenerator struct {
	mu      sync.Mutex
	lastReq *generate.Request
	calls   int
	answer  string
}

func (g *recordingGenerator) Generate(ctx context.Context, req *generate.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastReq = req
	g.calls++
	return g.answer, nil
}

func newCannedEmbedder() *cannedEmbedder {
	return &cannedEmbedder{
		vectors: map[string][]float32{
			travelPolicyText: {1, 0, 0},
			leavePolicyText:  {0, 1, 0},
			fuelPolicyText:   {0.5, 0.05, 0.85},

			"How much travel allowance do I get?":                 {0.9, 0.1, 0},
			"How much travel allowance does a G1-A employee get?": {1, 0, 0},
			"What is the fuel allowance for G1-A employees":       {0.5, 0.05, 0.85},
			"Is there a company car policy":                       {0, 0, 1},
			"How many days of annual leave do I have?":            {0.1, 0.9, 0},
		},
	}
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		EmbeddingModel: "test/canned-model",
		EmbeddingDim:   3,
		EmbedWorkers:   2,
		MaxChunkTokens: 64,
		Query:          model.DefaultQueryConfig(),
	}
}

func newTestAssistant(t *testing.T) (*Assistant, *recordingGenerator) {
	t.Helper()

	generator := &recordingGenerator{answer: "canned answer"}
	assistant, err := NewWithComponents(testConfig(t), newCannedEmbedder(), generator)
	require.NoError(t, err)

	ctx := context.Background()
	docs := []*model.Document{
		model.NewDocument("Travel Policy", "test", travelPolicyText, nil),
		model.NewDocument("Leave Policy", "test", leavePolicyText, nil),
	}
	numChunks, err := assistant.IndexDocuments(ctx, docs)
	require.NoError(t, err)
	require.Equal(t, 2, numChunks)

	return assistant, generator
}

func TestNewWithComponents(t *testing.T) {
	t.Run("Valid assistant", func(t *testing.T) {
		assistant, err := NewWithComponents(testConfig(t), newCannedEmbedder(), nil)

		require.NoError(t, err)
		assert.NotNil(t, assistant.Index)
		assert.NotNil(t, assistant.Engine)
		assert.NotNil(t, assistant.Strategy)
		assert.NotNil(t, assistant.Composer)
		assert.NoError(t, assistant.Close())
	})

	t.Run("Invalid config is rejected", func(t *testing.T) {
		config := testConfig(t)
		config.EmbeddingDim = 0

		_, err := NewWithComponents(config, newCannedEmbedder(), nil)

		assert.Error(t, err)
	})
}

func TestAssistantIndexDocuments(t *testing.T) {
	t.Run("Malformed documents are skipped", func(t *testing.T) {
		assistant, err := NewWithComponents(testConfig(t), newCannedEmbedder(), nil)
		require.NoError(t, err)

		docs := []*model.Document{
			model.NewDocument("Empty Policy", "test", "   ", nil),
			model.NewDocument("Travel Policy", "test", travelPolicyText, nil),
		}

		numChunks, err := assistant.IndexDocuments(context.Background(), docs)

		require.NoError(t, err)
		assert.Equal(t, 1, numChunks, "The empty document is skipped, the valid one is indexed")
		assert.Equal(t, 1, assistant.Index.Len())
	})
}

func TestAssistantAnswerQuery(t *testing.T) {
	t.Run("High confidence answer cites its chunks", func(t *testing.T) {
		assistant, generator := newTestAssistant(t)

		answer, err := assistant.AnswerQuery(context.Background(), "How much travel allowance do I get?", "G1")

		require.NoError(t, err)
		assert.Equal(t, "canned answer", answer.ResponseText)
		assert.Equal(t, model.ConfidenceHigh, answer.Confidence)
		assert.NotEmpty(t, answer.CitedChunkIDs)

		require.NotNil(t, generator.lastReq)
		assert.Equal(t, "G1", generator.lastReq.UserGrade)
		assert.Equal(t, model.ConfidenceHigh, generator.lastReq.Context.Confidence)
		assert.Empty(t, generator.lastReq.Context.Directive)
	})

	t.Run("Weak evidence yields low confidence with directive", func(t *testing.T) {
		assistant, generator := newTestAssistant(t)

		answer, err := assistant.AnswerQuery(context.Background(), "What is the fuel allowance for G1-A employees", "G1-A")

		require.NoError(t, err)
		assert.Equal(t, model.ConfidenceLow, answer.Confidence)
		assert.Equal(t, "canned answer", answer.ResponseText)

		require.NotNil(t, generator.lastReq)
		assert.Equal(t, model.ConfidenceLow, generator.lastReq.Context.Confidence)
		assert.NotEmpty(t, generator.lastReq.Context.Directive,
			"A low confidence context must carry the uncertainty directive")

		// The retrieved evidence is the G1 policy; the directive keeps the
		// generator from extrapolating it to grade G1-A.
		prompt := generate.BuildPrompt(generator.lastReq)
		assert.Contains(t, prompt, "IMPORTANT:")
	})

	t.Run("High similarity to another grade still caps confidence at low", func(t *testing.T) {
		assistant, generator := newTestAssistant(t)

		// The corpus only knows the G1 travel allowance, worded so close
		// to the question that cosine similarity alone is well above the
		// high-confidence threshold. The grade mismatch has to demote the
		// answer regardless.
		answer, err := assistant.AnswerQuery(context.Background(), "How much travel allowance does a G1-A employee get?", "G1-A")

		require.NoError(t, err)
		assert.Equal(t, model.ConfidenceLow, answer.Confidence)
		assert.Equal(t, "canned answer", answer.ResponseText)

		require.NotNil(t, generator.lastReq)
		assert.Equal(t, model.ConfidenceLow, generator.lastReq.Context.Confidence)
		assert.GreaterOrEqual(t, generator.lastReq.Context.TopScore, 0.6,
			"The demotion must come from the grade mismatch, not a weak score")
		assert.NotEmpty(t, generator.lastReq.Context.Directive)
		assert.Contains(t, generate.BuildPrompt(generator.lastReq), "IMPORTANT:")
	})

	t.Run("General policy without grade tags answers with high confidence", func(t *testing.T) {
		assistant, generator := newTestAssistant(t)

		// The leave policy applies to all employees and carries no grade
		// tags, so a graded employee still gets a high-confidence answer.
		answer, err := assistant.AnswerQuery(context.Background(), "How many days of annual leave do I have?", "G1-A")

		require.NoError(t, err)
		assert.Equal(t, model.ConfidenceHigh, answer.Confidence)
		assert.Empty(t, generator.lastReq.Context.Directive)
	})

	t.Run("Explicit none-specified policy answers with high confidence", func(t *testing.T) {
		assistant, generator := newTestAssistant(t)

		// The corpus explicitly states that no fuel allowance exists for
		// G1-A; that is an answerable fact, not missing evidence.
		_, err := assistant.IndexDocuments(context.Background(), []*model.Document{
			model.NewDocument("Fuel Policy", "test", fuelPolicyText, nil),
		})
		require.NoError(t, err)

		answer, err := assistant.AnswerQuery(context.Background(), "What is the fuel allowance for G1-A employees", "G1-A")

		require.NoError(t, err)
		assert.Equal(t, model.ConfidenceHigh, answer.Confidence)
		assert.Equal(t, "canned answer", answer.ResponseText)

		require.NotNil(t, generator.lastReq)
		assert.Equal(t, model.ConfidenceHigh, generator.lastReq.Context.Confidence)
		require.NotEmpty(t, generator.lastReq.Context.Chunks)
		assert.Contains(t, generator.lastReq.Context.Chunks[0].GradeTags, "G1-A",
			"The exact G1-A chunk leads the grounded context")
	})

	t.Run("No relevant evidence answers without the generator", func(t *testing.T) {
		assistant, generator := newTestAssistant(t)

		answer, err := assistant.AnswerQuery(context.Background(), "Is there a company car policy", "G1")

		require.NoError(t, err)
		assert.Equal(t, model.ConfidenceNone, answer.Confidence)
		assert.Equal(t, generate.FallbackNoPolicy, answer.ResponseText)
		assert.Empty(t, answer.CitedChunkIDs)
		assert.Equal(t, 0, generator.calls, "A NONE confidence result must never invoke the generator")
	})

	t.Run("Embedding timeout degrades to a fallback answer", func(t *testing.T) {
		embedder := newCannedEmbedder()
		generator := &recordingGenerator{answer: "canned answer"}
		assistant, err := NewWithComponents(testConfig(t), embedder, generator)
		require.NoError(t, err)

		embedder.failErr = helper.NewError("embed text", model.ErrEmbeddingTimeout)

		answer, err := assistant.AnswerQuery(context.Background(), "How much travel allowance do I get?", "G1")

		require.NoError(t, err, "An embedding timeout must not surface as a failure")
		assert.Equal(t, model.ConfidenceNone, answer.Confidence)
		assert.Equal(t, generate.FallbackUnavailable, answer.ResponseText)
		assert.Equal(t, 0, generator.calls)
	})

	t.Run("Missing generator fails only when one is needed", func(t *testing.T) {
		assistant, err := NewWithComponents(testConfig(t), newCannedEmbedder(), nil)
		require.NoError(t, err)

		docs := []*model.Document{model.NewDocument("Travel Policy", "test", travelPolicyText, nil)}
		_, err = assistant.IndexDocuments(context.Background(), docs)
		require.NoError(t, err)

		// NONE confidence short-circuits before the generator.
		answer, err := assistant.AnswerQuery(context.Background(), "Is there a company car policy", "G1")
		require.NoError(t, err)
		assert.Equal(t, generate.FallbackNoPolicy, answer.ResponseText)

		// A composable context needs the generator.
		_, err = assistant.AnswerQuery(context.Background(), "How much travel allowance do I get?", "G1")
		assert.Error(t, err)
	})
}

func TestAssistantRemove(t *testing.T) {
	t.Run("Removed chunk no longer answers queries", func(t *testing.T) {
		assistant, err := NewWithComponents(testConfig(t), newCannedEmbedder(), nil)
		require.NoError(t, err)

		doc := model.NewDocument("Travel Policy", "test", travelPolicyText, nil)
		_, err = assistant.IndexDocuments(context.Background(), []*model.Document{doc})
		require.NoError(t, err)

		chunkID := fmt.Sprintf("%s.chunk0", doc.ID)
		require.True(t, assistant.Index.Contains(chunkID))

		require.NoError(t, assistant.RemoveChunk(chunkID))

		assert.Equal(t, 0, assistant.Index.Len())
		answer, err := assistant.AnswerQuery(context.Background(), "How much travel allowance do I get?", "G1")
		require.NoError(t, err)
		assert.Equal(t, model.ConfidenceNone, answer.Confidence)
		assert.Equal(t, generate.FallbackNoPolicy, answer.ResponseText)
	})

	t.Run("Removing an absent chunk is a no-op", func(t *testing.T) {
		assistant, err := NewWithComponents(testConfig(t), newCannedEmbedder(), nil)
		require.NoError(t, err)

		assert.NoError(t, assistant.RemoveChunk("nothing.chunk0"))
	})

	t.Run("Remove document drops all of its chunks", func(t *testing.T) {
		assistant, err := NewWithComponents(testConfig(t), newCannedEmbedder(), nil)
		require.NoError(t, err)

		handbook := model.NewDocument("Handbook", "test", travelPolicyText+"\n\n"+leavePolicyText, nil)
		other := model.NewDocument("Fuel Policy", "test", fuelPolicyText, nil)
		_, err = assistant.IndexDocuments(context.Background(), []*model.Document{handbook, other})
		require.NoError(t, err)
		require.Equal(t, 3, assistant.Index.Len())

		removed, err := assistant.RemoveDocument(handbook.ID)

		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		assert.Equal(t, 1, assistant.Index.Len())
		assert.True(t, assistant.Index.Contains(fmt.Sprintf("%s.chunk0", other.ID)))
	})
}

func TestAssistantRetrieve(t *testing.T) {
	t.Run("Grade aware retrieval is wired by default", func(t *testing.T) {
		assistant, _ := newTestAssistant(t)

		results, err := assistant.Retrieve(context.Background(), "How much travel allowance do I get?", "G1")

		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, model.RetrievalMethodGradeExact, results[0].RetrievalMethod,
			"The G1 profile matches the G1-tagged travel chunk exactly")
	})

	t.Run("Different grade gets no exact match", func(t *testing.T) {
		assistant, _ := newTestAssistant(t)

		results, err := assistant.Retrieve(context.Background(), "How much travel allowance do I get?", "G1-A")

		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.Equal(t, model.RetrievalMethodVector, r.RetrievalMethod,
				"G1-tagged chunks are not exact matches for a G1-A employee")
		}
	})
}
