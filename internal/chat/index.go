package chat

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// DefaultCategory is used for observations without a Category column.
const DefaultCategory = "General"

// Documents turns observations into index documents numbered by row.
func Documents(obs []*domain.Observation) []domain.Document {
	docs := make([]domain.Document, 0, len(obs))
	for i, o := range obs {
		if o.Text == "" {
			continue
		}
		category := o.Field(domain.ColCategory)
		if category == "" {
			category = DefaultCategory
		}
		suggestion := o.Field(domain.ColSuggestedAction)
		if suggestion == "" {
			suggestion = NoSuggestion
		}
		docs = append(docs, domain.Document{
			ID:         strconv.Itoa(i),
			Text:       o.Text,
			Category:   category,
			Suggestion: suggestion,
		})
	}
	return docs
}

// IndexObservations replaces the index content with docs, embedding each
// text. The index is reset first so restarts never duplicate entries.
func IndexObservations(ctx context.Context, index DocumentIndex, embedder domain.Embedder, docs []domain.Document) error {
	if err := index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	embedded := make([]domain.Document, len(docs))
	for i, d := range docs {
		vec, err := embedder.Embed(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", d.ID, err)
		}
		d.Vector = vec
		embedded[i] = d
	}
	if err := index.Add(ctx, embedded); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}
