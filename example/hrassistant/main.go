package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/geniteam/policyrag"
	"github.com/geniteam/policyrag/helper"
	"github.com/geniteam/policyrag/model"
)

const travelPolicy = `Travel and Expense Policy

1. Travel Allowance

Employees of grade G1 are entitled to a travel allowance of 500 EUR per month.
Employees of grade G2 are entitled to a travel allowance of 350 EUR per month.
The allowance covers commuting and local business travel within the city.

2. International Travel

International business travel requires prior approval from the department head.
Flights are booked in economy class for trips under six hours.
Employees of grade G1 may book business class for flights over six hours.`

const leavePolicy = `Leave Policy

1. Annual Leave

All employees are entitled to 25 days of paid annual leave per calendar year.
Unused leave days may be carried over into the first quarter of the following year.

2. Parental Leave

Employees are entitled to parental leave according to statutory regulations.
An additional two weeks of paid parental leave is granted to employees with
more than three years of tenure.`

func main() {
	config, err := policyrag.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	assistant, err := policyrag.New(config)
	if err != nil {
		log.Fatalf("Failed to create assistant: %v", err)
	}
	defer assistant.Close()

	ctx := context.Background()

	// Optionally persist the index in PostgreSQL with pgvector. The
	// example spins up a throwaway container; production would point
	// DatabaseConfiguration at a real instance.
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}
	db := helper.NewDatabase("policyrag", dbConfig, slog.Default())
	if err := assistant.AttachVectorStore(db); err != nil {
		log.Fatalf("Failed to attach vector store: %v", err)
	}

	docs := []*model.Document{
		model.NewDocument("Travel and Expense Policy", "hr_manual", travelPolicy, model.Metadata{
			"department": "HR",
			"version":    "2026-01",
		}),
		model.NewDocument("Leave Policy", "hr_manual", leavePolicy, model.Metadata{
			"department": "HR",
			"version":    "2026-01",
		}),
	}

	fmt.Println("Indexing policy documents...")
	numChunks, err := assistant.IndexDocuments(ctx, docs)
	if err != nil {
		log.Fatalf("Failed to index documents: %v", err)
	}
	fmt.Printf("Indexed %d chunks from %d documents\n", numChunks, len(docs))

	questions := []struct {
		question string
		grade    string
	}{
		{"How much travel allowance do I get?", "G1"},
		{"How much travel allowance do I get?", "G1-A"},
		{"How many days of annual leave do I have?", "G2"},
		{"Is there a company car policy?", "G1"},
	}

	for _, q := range questions {
		fmt.Printf("\n=== Question (grade %s): %s ===\n", q.grade, q.question)

		if config.OpenAIKey == "" {
			// Without a generator key we can still show the retrieval
			// and grounding stages.
			results, err := assistant.Retrieve(ctx, q.question, q.grade)
			if err != nil {
				log.Fatalf("Retrieval failed: %v", err)
			}
			fmt.Printf("Retrieved %d chunks:\n", len(results))
			for i, result := range results {
				content := result.Chunk.Content
				if len(content) > 80 {
					content = content[:80] + "..."
				}
				fmt.Printf("  %d. score=%.4f method=%s %s\n", i+1, result.SimilarityScore, result.RetrievalMethod, content)
			}
			continue
		}

		answer, err := assistant.AnswerQuery(ctx, q.question, q.grade)
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}
		fmt.Printf("Confidence: %s\n", answer.Confidence)
		fmt.Printf("Answer: %s\n", answer.ResponseText)
		if len(answer.CitedChunkIDs) > 0 {
			fmt.Printf("Cited chunks: %v\n", answer.CitedChunkIDs)
		}
	}

	fmt.Println("\nExample completed successfully!")
}
