// Package kb stores repair procedures in an embedded vector database and
// serves semantic lookups for the procedure.lookup capability.
package kb

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "procedures"

// Store holds repair procedures in a chromem-go collection.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewStore creates an in-memory procedure store. A nil embedFunc falls
// back to chromem's default (OpenAI) embedding function.
func NewStore(embedFunc chromem.EmbeddingFunc) (*Store, error) {
	db := chromem.NewDB()

	col, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: col,
		embedFunc:  embedFunc,
	}, nil
}

// AddProcedures embeds and stores the given procedures.
func (s *Store) AddProcedures(ctx context.Context, procs []Procedure) error {
	if len(procs) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(procs))
	for i, p := range procs {
		docs[i] = chromem.Document{
			ID:       p.ID,
			Content:  embeddingText(p),
			Metadata: metadataToMap(p),
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

// Search returns the procedures most similar to the query, best first.
func (s *Store) Search(ctx context.Context, query string, limit int, filter *Filter) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}

	// chromem-go requires nResults <= collection size.
	if count := s.collection.Count(); count == 0 {
		return nil, nil
	} else if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit, buildWhereClause(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Procedure:  mapToProcedure(r.ID, r.Metadata),
			Similarity: r.Similarity,
		}
	}
	return matches, nil
}

// Count reports the number of stored procedures.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Persist writes the store to disk under dir.
func (s *Store) Persist(dir string) error {
	return s.db.ExportToFile(filepath.Join(dir, "procedures.gob.gz"), true, "")
}

// Load restores a previously persisted store from dir.
func (s *Store) Load(dir string) error {
	if err := s.db.ImportFromFile(filepath.Join(dir, "procedures.gob.gz"), ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

// embeddingText builds the text that gets embedded for a procedure.
// Title, system and summary carry the semantic weight; steps add detail.
func embeddingText(p Procedure) string {
	parts := []string{p.Title, p.System, p.Summary}
	parts = append(parts, p.Steps...)
	return strings.Join(parts, "\n")
}

func metadataToMap(p Procedure) map[string]string {
	return map[string]string{
		"title":            p.Title,
		"system":           strings.ToLower(p.System),
		"make":             strings.ToLower(p.Make),
		"model":            strings.ToLower(p.Model),
		"summary":          p.Summary,
		"steps":            strings.Join(p.Steps, "\x1f"),
		"tools":            strings.Join(p.Tools, "\x1f"),
		"duration_minutes": strconv.Itoa(p.DurationMinutes),
		"difficulty":       p.Difficulty,
	}
}

func mapToProcedure(id string, m map[string]string) Procedure {
	duration, _ := strconv.Atoi(m["duration_minutes"])
	return Procedure{
		ID:              id,
		Title:           m["title"],
		System:          m["system"],
		Make:            m["make"],
		Model:           m["model"],
		Summary:         m["summary"],
		Steps:           splitList(m["steps"]),
		Tools:           splitList(m["tools"]),
		DurationMinutes: duration,
		Difficulty:      m["difficulty"],
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\x1f")
}

func buildWhereClause(filter *Filter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.System != nil {
		where["system"] = strings.ToLower(*filter.System)
	}
	if filter.Make != nil {
		where["make"] = strings.ToLower(*filter.Make)
	}
	if filter.Model != nil {
		where["model"] = strings.ToLower(*filter.Model)
	}

	if len(where) == 0 {
		return nil
	}
	return where
}
