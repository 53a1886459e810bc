package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed init.sql
var initSQL string

//go:embed vectors.sql
var vectorsSQL string

// Init creates the database extensions the vector store depends on
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing init SQL: %w", err)
	}
	return nil
}

// CreateVectorsTable creates the policy_vectors table for the given
// embedding dimension. It is a no-op if the table already exists.
func CreateVectorsTable(db *sql.DB, embeddingDim int) error {
	if embeddingDim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim)
	}

	stmt := strings.Replace(vectorsSQL, "%d", fmt.Sprintf("%d", embeddingDim), 1)
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("error executing vectors SQL: %w", err)
	}
	return nil
}
