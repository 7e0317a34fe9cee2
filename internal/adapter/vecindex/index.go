// Package vecindex is the local document index: a vecgo flat squared-L2
// index persisted to disk with a JSON metadata sidecar.
package vecindex

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/hupe1980/vecgo"
	"github.com/hupe1980/vecgo/index/flat"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// ErrDimensionMismatch is returned when a vector does not match the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index implements chat.DocumentIndex. Vectors are L2-normalised before
// insertion so that similarity = 1 - d/2 equals cosine similarity.
type Index struct {
	indexPath string
	metaPath  string
	dim       int
	logger    *slog.Logger

	mu   sync.Mutex
	db   *vecgo.Vecgo[string]
	docs map[string]domain.Document
	ids  []string // vecgo id order, mirrors the sidecar
}

// Open loads the index from indexPath and metaPath when both exist, otherwise
// starts an empty index of the given dimension. A persisted index whose
// dimension or size no longer matches is discarded.
func Open(indexPath, metaPath string, dim int, logger *slog.Logger) (*Index, error) {
	idx := &Index{
		indexPath: indexPath,
		metaPath:  metaPath,
		dim:       dim,
		logger:    logger,
		docs:      make(map[string]domain.Document),
		db:        vecgo.NewFlat[string](),
	}

	if fileExists(indexPath) && fileExists(metaPath) {
		if err := idx.load(); err != nil {
			return nil, err
		}
		logger.Info("document index loaded", "path", indexPath, "documents", len(idx.ids))
	}
	return idx, nil
}

func (i *Index) load() error {
	data, err := os.ReadFile(i.metaPath)
	if err != nil {
		return fmt.Errorf("read index metadata: %w", err)
	}
	var docs []domain.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("decode index metadata: %w", err)
	}

	f, err := os.Open(i.indexPath)
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	defer f.Close()

	fl := flat.New()
	if err := gob.NewDecoder(f).Decode(fl); err != nil {
		return fmt.Errorf("load vector index: %w", err)
	}

	if len(docs) > 0 {
		all := func(uint32) bool { return true }
		res, err := fl.BruteSearch(make([]float32, i.dim), len(docs)+1, all)
		if err != nil {
			i.logger.Warn("document index dimension changed, starting empty", "path", i.indexPath, "dimension", i.dim)
			return nil
		}
		if len(res) != len(docs) {
			i.logger.Warn("document index out of sync with metadata, starting empty",
				"vectors", len(res), "documents", len(docs))
			return nil
		}
	}

	i.db = vecgo.New[string](fl)
	for _, d := range docs {
		i.docs[d.ID] = d
		i.ids = append(i.ids, d.ID)
	}
	return nil
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ids)
}

// Reset drops every document and removes the persisted files.
func (i *Index) Reset(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.db = vecgo.NewFlat[string]()
	i.docs = make(map[string]domain.Document)
	i.ids = nil

	for _, p := range []string{i.indexPath, i.metaPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// Add inserts documents and persists the index and sidecar. Every document is
// validated before any is inserted.
func (i *Index) Add(_ context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	fresh := make([]domain.Document, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if _, ok := i.docs[d.ID]; ok || seen[d.ID] {
			i.logger.Debug("document already indexed", "id", d.ID)
			continue
		}
		seen[d.ID] = true
		fresh = append(fresh, d)
	}
	if len(fresh) == 0 {
		return nil
	}

	for _, d := range fresh {
		if len(d.Vector) != i.dim {
			return fmt.Errorf("document %s: %w: got %d, want %d", d.ID, ErrDimensionMismatch, len(d.Vector), i.dim)
		}
		if domain.IsZero(d.Vector) {
			return fmt.Errorf("document %s: %w", d.ID, domain.ErrZeroVector)
		}
	}

	for _, d := range fresh {
		id, err := i.db.Insert(vecgo.VectorWithData[string]{Vector: normalize(d.Vector), Data: d.ID})
		if err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
		if int(id) != len(i.ids) {
			return fmt.Errorf("insert document %s: unexpected vector id %d", d.ID, id)
		}
		i.ids = append(i.ids, d.ID)
		meta := d
		meta.Vector = nil
		i.docs[d.ID] = meta
	}
	return i.persist()
}

// Search returns up to k documents ordered by similarity.
func (i *Index) Search(_ context.Context, vec []float32, k int) ([]domain.Hit, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(vec) != i.dim {
		return nil, fmt.Errorf("query: %w: got %d, want %d", ErrDimensionMismatch, len(vec), i.dim)
	}
	if domain.IsZero(vec) {
		return nil, fmt.Errorf("query: %w", domain.ErrZeroVector)
	}
	if len(i.ids) == 0 || k <= 0 {
		return nil, nil
	}
	k = min(k, len(i.ids))

	results, err := i.db.BruteSearch(normalize(vec), k)
	if err != nil {
		return nil, fmt.Errorf("search vector index: %w", err)
	}

	hits := make([]domain.Hit, 0, len(results))
	for _, r := range results {
		if int(r.ID) >= len(i.ids) {
			i.logger.Warn("index entry without metadata", "vector_id", r.ID)
			continue
		}
		doc := i.docs[i.ids[r.ID]]
		hits = append(hits, domain.Hit{Document: doc, Score: similarity(r.Distance)})
	}
	return hits, nil
}

// Close is a no-op; every Add already persists the index.
func (i *Index) Close() error { return nil }

func (i *Index) persist() error {
	if err := i.db.SaveToFile(i.indexPath); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	docs := make([]domain.Document, 0, len(i.ids))
	for _, id := range i.ids {
		docs = append(docs, i.docs[id])
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index metadata: %w", err)
	}
	if err := os.WriteFile(i.metaPath, data, 0o644); err != nil {
		return fmt.Errorf("write index metadata: %w", err)
	}
	return nil
}

// similarity maps a squared L2 distance between unit vectors to [0,1].
func similarity(d float32) float64 {
	return math.Max(0, 1-float64(d)/2)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for n, x := range v {
		out[n] = float32(float64(x) / norm)
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
