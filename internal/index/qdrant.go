package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"menupipe/internal/domain"
	"menupipe/internal/util"
)

// Compile-time interface check.
var _ Store = (*QdrantStore)(nil)

// pointNamespace seeds deterministic point IDs. A document re-loaded under
// the same scope maps to the same UUID, so upserts replace instead of
// duplicating.
var pointNamespace = uuid.MustParse("7f1c9df2-5b3a-4e8f-9c41-2a6d80f3be57")

// QdrantConfig configures the Qdrant-backed Store.
type QdrantConfig struct {
	Host          string
	Port          int
	APIKey        string
	UseTLS        bool
	Collection    string
	BatchSize     int // points per upsert, default 64
	MaxConcurrent int // parallel embedding batches, default 2
}

// QdrantStore implements Store against a Qdrant collection over gRPC.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	cfg      QdrantConfig
	log      *slog.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewQdrantStore connects to Qdrant. The collection is created lazily on the
// first Load so a prune-only run never needs write setup.
func NewQdrantStore(cfg QdrantConfig, embedder Embedder) (*QdrantStore, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(32 << 20)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &QdrantStore{
		client:   client,
		embedder: embedder,
		cfg:      cfg,
		log:      slog.Default().With("component", "index"),
	}, nil
}

// ensureCollection creates the collection and its keyword payload indexes if
// they do not exist yet. Safe to call repeatedly.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
		if err != nil {
			s.ensureErr = fmt.Errorf("checking collection %s: %w", s.cfg.Collection, err)
			return
		}
		if !exists {
			err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: s.cfg.Collection,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     uint64(s.embedder.Dimensions()),
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				s.ensureErr = fmt.Errorf("creating collection %s: %w", s.cfg.Collection, err)
				return
			}
		}
		// Scope deletes and identity lookups filter on these fields.
		for _, field := range []string{"sitetag", "doc_id"} {
			_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: s.cfg.Collection,
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			})
			if err != nil {
				// Index creation is idempotent server-side; a failure here
				// only slows filters down.
				s.log.Warn("could not create payload index", "field", field, "err", err)
			}
		}
	})
	return s.ensureErr
}

// Load embeds every document and upserts the points under scope. Embeddings
// are always recomputed, never reused from a previous load.
func (s *QdrantStore) Load(ctx context.Context, docs []*domain.MenuDocument, scope string) (LoadStats, error) {
	stats := LoadStats{Attempted: len(docs)}
	if len(docs) == 0 {
		return stats, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return stats, err
	}

	var batches [][]*domain.MenuDocument
	for i := 0; i < len(docs); i += s.cfg.BatchSize {
		end := min(i+s.cfg.BatchSize, len(docs))
		batches = append(batches, docs[i:end])
	}

	// Batch failures are tolerated: siblings keep going, the run only fails
	// when nothing at all made it in.
	var (
		mu       sync.Mutex
		firstErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxConcurrent)
	for _, b := range batches {
		g.Go(func() error {
			loaded, err := s.loadBatch(ctx, b, scope)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Error("batch load failed", "scope", scope, "documents", len(b), "err", err)
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			stats.Loaded += loaded
			return nil
		})
	}
	g.Wait()

	if stats.Loaded == 0 {
		return stats, fmt.Errorf("no documents loaded for scope %s: %w", scope, firstErr)
	}
	s.log.Info("loaded documents",
		"scope", scope, "attempted", stats.Attempted, "loaded", stats.Loaded)
	return stats, nil
}

// loadBatch embeds and upserts one batch, retrying the upsert on transient
// transport errors.
func (s *QdrantStore) loadBatch(ctx context.Context, docs []*domain.MenuDocument, scope string) (int, error) {
	points, err := s.buildPoints(ctx, docs, scope)
	if err != nil {
		return 0, err
	}
	err = util.Retry(ctx, 3, time.Second, 15*time.Second, func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.cfg.Collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return len(points), nil
}

func (s *QdrantStore) buildPoints(ctx context.Context, docs []*domain.MenuDocument, scope string) ([]*qdrant.PointStruct, error) {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = DocumentText(doc)
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d documents: %w", len(docs), err)
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encoding document %s: %w", doc.ID(), err)
		}
		id := uuid.NewSHA1(pointNamespace, []byte(scope+"/"+doc.ID()))
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(id.String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"sitetag":     scope,
				"doc_id":      doc.ID(),
				"site":        doc.Location,
				"meal":        string(doc.Meal),
				"date":        doc.Date,
				"name":        fmt.Sprintf("%s %s menu", doc.Location, doc.Meal),
				"schema_json": string(raw),
				"kind":        "menu",
			}),
		})
	}
	return points, nil
}

// DeleteScope removes every point whose sitetag equals scope.
func (s *QdrantStore) DeleteScope(ctx context.Context, scope string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("sitetag", scope)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting scope %s: %w", scope, err)
	}
	s.log.Info("deleted scope", "scope", scope)
	return nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
