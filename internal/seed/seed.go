// Package seed fills a note store with generated demo notes.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/peernotes/peernotes/internal/notes"
	"go.uber.org/zap"
)

const maxSeedLikes = 12

// Store is the part of notes.Service the seeder writes through.
type Store interface {
	Create(ctx context.Context, draft notes.NoteDraft) (notes.Note, error)
	IncrementLikes(ctx context.Context, id notes.NoteID) (notes.Note, error)
}

// Generator builds plausible notes from the catalog. The same seed yields the
// same notes.
type Generator struct {
	faker   *gofakeit.Faker
	catalog notes.Catalog
}

func NewGenerator(seed int64, catalog notes.Catalog) *Generator {
	if len(catalog.Subjects) == 0 {
		catalog = notes.DefaultCatalog()
	}
	return &Generator{faker: gofakeit.New(seed), catalog: catalog}
}

// Draft returns one generated note.
func (g *Generator) Draft() (notes.NoteDraft, error) {
	subject := g.catalog.Subjects[g.faker.Number(0, len(g.catalog.Subjects)-1)]

	var tags []string
	if len(g.catalog.Tags) > 0 {
		for range g.faker.Number(0, 2) {
			tags = append(tags, g.faker.RandomString(g.catalog.Tags))
		}
	}

	title := strings.TrimSuffix(g.faker.Sentence(g.faker.Number(3, 6)), ".")
	var content strings.Builder
	fmt.Fprintf(&content, "## %s\n\n", subject.Name)
	content.WriteString(g.faker.Paragraph(2, 3, 12, "\n\n"))
	content.WriteString("\n\n")
	for range g.faker.Number(2, 4) {
		fmt.Fprintf(&content, "- %s\n", g.faker.Sentence(6))
	}

	return notes.NewNoteDraft(title, subject.Code, content.String(), tags)
}

// Likes returns a like count for a generated note.
func (g *Generator) Likes() int {
	return g.faker.Number(0, maxSeedLikes)
}

// Run inserts count generated notes. Moderation is not consulted.
func Run(ctx context.Context, store Store, generator *Generator, count int, logger *zap.Logger) ([]notes.Note, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	created := make([]notes.Note, 0, count)
	for index := 0; index < count; index++ {
		draft, err := generator.Draft()
		if err != nil {
			return created, fmt.Errorf("seed: generate note %d: %w", index, err)
		}
		note, err := store.Create(ctx, draft)
		if err != nil {
			return created, fmt.Errorf("seed: create note %d: %w", index, err)
		}
		for range generator.Likes() {
			liked, err := store.IncrementLikes(ctx, notes.NoteID(note.ID))
			if err != nil {
				return created, fmt.Errorf("seed: like note %d: %w", note.ID, err)
			}
			note = liked
		}
		created = append(created, note)
	}
	logger.Info("seeded notes", zap.Int("count", len(created)))
	return created, nil
}
