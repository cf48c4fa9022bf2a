package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// VectorToolName is the function name the model calls for knowledge-base search.
const VectorToolName = "vectorDatabaseSearch"

const vectorToolDescription = "Search the ZodiAI knowledge base of Vedic astrology reference documents. Prefer this over web search."

const collectionName = "zodiai_knowledge"

// Document is one entry of the knowledge base.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// Match is a scored retrieval hit.
type Match struct {
	ID         string  `json:"id"`
	Title      string  `json:"title,omitempty"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// KnowledgeBase wraps an embedded chromem-go collection persisted under the
// data directory. Pure Go, no external vector service needed.
type KnowledgeBase struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *zap.Logger
}

// NewKnowledgeBase opens (or creates) the persistent knowledge base.
func NewKnowledgeBase(dataDir string, embed chromem.EmbeddingFunc, logger *zap.Logger) (*KnowledgeBase, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := filepath.Join(dataDir, "knowledge")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating knowledge directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", collectionName, err)
	}

	return &KnowledgeBase{db: db, collection: collection, logger: logger}, nil
}

// AddDocuments ingests documents into the knowledge base.
func (kb *KnowledgeBase) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("no documents supplied")
	}

	converted := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		metadata := map[string]string{}
		if doc.Title != "" {
			metadata["title"] = doc.Title
		}
		converted = append(converted, chromem.Document{
			ID:       doc.ID,
			Metadata: metadata,
			Content:  doc.Text,
		})
	}

	if err := kb.collection.AddDocuments(ctx, converted, 2); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	kb.logger.Info("knowledge base updated", zap.Int("documents", len(docs)))
	return nil
}

// Search returns up to k scored matches for the query.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int) ([]Match, error) {
	count := kb.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := kb.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge base: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, res := range results {
		matches = append(matches, Match{
			ID:         res.ID,
			Title:      res.Metadata["title"],
			Content:    res.Content,
			Similarity: res.Similarity,
		})
	}
	return matches, nil
}

type vectorSearchInput struct {
	Query string `json:"query" jsonschema:"description=The search query"`
}

// Tool wraps the knowledge base as an eino invokable tool.
func (kb *KnowledgeBase) Tool() (tool.InvokableTool, error) {
	t, err := utils.InferTool(VectorToolName, vectorToolDescription, kb.run)
	if err != nil {
		return nil, fmt.Errorf("infer vector search tool: %w", err)
	}
	return t, nil
}

func (kb *KnowledgeBase) run(ctx context.Context, in *vectorSearchInput) (map[string]any, error) {
	matches, err := kb.Search(ctx, in.Query, 5)
	if err != nil {
		kb.logger.Warn("knowledge base search failed", zap.String("query", in.Query), zap.Error(err))
		return map[string]any{
			"ok":      false,
			"message": "The knowledge base is temporarily unavailable. Try webSearch or answer from your own knowledge.",
		}, nil
	}
	if len(matches) == 0 {
		return map[string]any{"ok": true, "results": []Match{}, "message": "No matching documents found."}, nil
	}
	return map[string]any{"ok": true, "results": matches}, nil
}
