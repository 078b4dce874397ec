package driving

import (
	"context"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

// RetrievalService assembles a diversity-balanced context window from
// the caller-selected documents.
type RetrievalService interface {
	// Retrieve embeds the query, runs one filtered similarity query over
	// an extended candidate pool and selects up to topK matches so that
	// every candidate document with relevant material is represented.
	// Provider or store failures degrade to an empty result rather than
	// an error: a failed retrieval reads as "no relevant material found".
	Retrieve(ctx context.Context, query string, documentIDs []string, topK int) (domain.RetrievalResult, error)
}
