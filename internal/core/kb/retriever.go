package kb

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentdock/agentdock-be/internal/models"
)

// maxQueryTokens caps how many sanitized tokens feed the relevance
// query; long messages beyond that add noise, not recall.
const maxQueryTokens = 8

// Chunk is one retrieval hit, best first.
type Chunk struct {
	ID      uuid.UUID
	Content string
}

// ChunkStore persists a tenant's chunk index. ReplaceChunks swaps the
// whole index atomically; SearchChunks ranks by relevance to match.
type ChunkStore interface {
	ReplaceChunks(tenantID uuid.UUID, chunks []models.KnowledgeChunk) error
	SearchChunks(tenantID uuid.UUID, match string, limit int) ([]models.KnowledgeChunk, error)
}

// Retriever owns the chunked knowledge index: whole-text rebuilds and
// top-k relevance retrieval. Rebuild is an exclusive critical section
// per tenant so a concurrent retrieval never observes a half-built
// index.
type Retriever struct {
	store ChunkStore
	locks sync.Map // tenant id -> *sync.RWMutex
}

func NewRetriever(db *gorm.DB) *Retriever {
	return NewRetrieverWithStore(&gormChunkStore{db: db})
}

func NewRetrieverWithStore(store ChunkStore) *Retriever {
	return &Retriever{store: store}
}

func (r *Retriever) tenantLock(tenantID uuid.UUID) *sync.RWMutex {
	lock, _ := r.locks.LoadOrStore(tenantID, &sync.RWMutex{})
	return lock.(*sync.RWMutex)
}

// Rebuild replaces the tenant's chunks with a fresh chunking of rawText.
// Chunks are never partially updated.
func (r *Retriever) Rebuild(tenantID uuid.UUID, rawText string) error {
	lock := r.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	pieces := ChunkText(rawText, DefaultChunkSize, DefaultOverlap)
	rows := make([]models.KnowledgeChunk, 0, len(pieces))
	for idx, content := range pieces {
		rows = append(rows, models.KnowledgeChunk{
			TenantID:   tenantID,
			Source:     "tenant_knowledge",
			ChunkIndex: idx,
			Content:    content,
		})
	}
	return r.store.ReplaceChunks(tenantID, rows)
}

// Retrieve returns the top-k chunks relevant to query, ranked by
// full-text relevance. An empty or unsanitizable query returns no
// chunks and no error.
func (r *Retriever) Retrieve(tenantID uuid.UUID, query string, limit int) ([]Chunk, error) {
	match := SanitizeQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 4
	}

	lock := r.tenantLock(tenantID)
	lock.RLock()
	defer lock.RUnlock()

	rows, err := r.store.SearchChunks(tenantID, match, limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge retrieval: %w", err)
	}

	chunks := make([]Chunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, Chunk{ID: row.ID, Content: row.Content})
	}
	return chunks, nil
}

// gormChunkStore backs the index with the knowledge_chunks table and
// Postgres full-text search.
type gormChunkStore struct {
	db *gorm.DB
}

// ReplaceChunks runs the delete+insert in one transaction.
func (s *gormChunkStore) ReplaceChunks(tenantID uuid.UUID, chunks []models.KnowledgeChunk) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.KnowledgeChunk{}).Error; err != nil {
			return fmt.Errorf("delete old chunks: %w", err)
		}
		for idx := range chunks {
			if err := tx.Create(&chunks[idx]).Error; err != nil {
				return fmt.Errorf("insert chunk %d: %w", idx, err)
			}
		}
		return nil
	})
}

func (s *gormChunkStore) SearchChunks(tenantID uuid.UUID, match string, limit int) ([]models.KnowledgeChunk, error) {
	var rows []models.KnowledgeChunk
	err := s.db.Raw(
		`SELECT id, content FROM knowledge_chunks
		 WHERE tenant_id = ? AND content_tsv @@ to_tsquery('simple', ?)
		 ORDER BY ts_rank_cd(content_tsv, to_tsquery('simple', ?)) DESC
		 LIMIT ?`,
		tenantID, match, match, limit,
	).Scan(&rows).Error
	return rows, err
}

// SanitizeQuery strips everything but letters, digits and spaces,
// collapses whitespace, and joins the first tokens into an AND-style
// full-text query. Returns "" when nothing searchable remains.
func SanitizeQuery(query string) string {
	var b strings.Builder
	for _, r := range query {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	return strings.Join(tokens, " & ")
}
