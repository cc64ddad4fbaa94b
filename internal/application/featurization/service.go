// Package featurization is the application service in front of the graph
// builder. It adds the graph cache, metrics and dataset export.
package featurization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// GraphBuilder is the featurization core.
type GraphBuilder interface {
	BuildGraph(ctx context.Context, smiles string, label *float64) (*moltypes.MoleculeGraph, error)
	BuildBatch(ctx context.Context, rows []moltypes.GraphRow) (*moltypes.BatchResult, error)
	Schema() *moltypes.FeatureSchema
	SchemaVersion() string
}

// GraphCache stores built graphs by key.
type GraphCache interface {
	Get(ctx context.Context, key string) (*moltypes.MoleculeGraph, error)
	Set(ctx context.Context, key string, g *moltypes.MoleculeGraph) error
	GetOrBuild(ctx context.Context, key string, build func(ctx context.Context) (*moltypes.MoleculeGraph, error)) (*moltypes.MoleculeGraph, bool, error)
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// DatasetStore persists exported batches.
type DatasetStore interface {
	PutDataset(ctx context.Context, schemaVersion, runID string, payload []byte) (*minio.DatasetObject, error)
}

// Metrics is the subset of the featurizer metric set the service records.
type Metrics interface {
	RecordGraph(source string, elapsed time.Duration)
	RecordSkip(reason string)
	RecordCacheAccess(cache string, hit bool)
}

const cacheName = "graph"

// Service featurizes SMILES through an optional cache.
type Service struct {
	builder GraphBuilder
	cache   GraphCache
	store   DatasetStore
	metrics Metrics
	logger  logging.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the graph cache.
func WithCache(c GraphCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithDatasetStore enables Export.
func WithDatasetStore(st DatasetStore) Option {
	return func(s *Service) { s.store = st }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service around builder.
func NewService(builder GraphBuilder, opts ...Option) (*Service, error) {
	if builder == nil {
		return nil, errors.New(errors.ErrCodeInternal, "graph builder is required")
	}
	s := &Service{
		builder: builder,
		logger:  logging.NewNopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SchemaVersion returns the builder's schema version.
func (s *Service) SchemaVersion() string { return s.builder.SchemaVersion() }

// Schema returns the builder's feature layout.
func (s *Service) Schema() *moltypes.FeatureSchema { return s.builder.Schema() }

// Forget drops the cached graph of one (smiles, label) pair under the
// current schema version.
func (s *Service) Forget(ctx context.Context, smiles string, label *float64) error {
	if s.cache == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "graph cache is not configured")
	}
	return s.cache.Delete(ctx, s.CacheKey(smiles, label))
}

// Purge drops every cached graph of schemaVersion, or of the running schema
// when schemaVersion is empty, and returns how many entries were removed.
func (s *Service) Purge(ctx context.Context, schemaVersion string) (int64, error) {
	if s.cache == nil {
		return 0, errors.New(errors.ErrCodeServiceUnavailable, "graph cache is not configured")
	}
	if schemaVersion == "" {
		schemaVersion = s.builder.SchemaVersion()
	}
	if strings.ContainsAny(schemaVersion, "*?[]\\:") {
		return 0, errors.InvalidParam("invalid schema version").WithDetail(schemaVersion)
	}
	return s.cache.DeleteByPrefix(ctx, schemaVersion+":")
}

// CacheKey is the cache key of a (smiles, label) pair under the current
// schema version. Graphs from different layouts never share a key.
func (s *Service) CacheKey(smiles string, label *float64) string {
	lbl := "-"
	if label != nil {
		lbl = strconv.FormatFloat(*label, 'g', -1, 64)
	}
	sum := sha256.Sum256([]byte(smiles + "\x00" + lbl))
	return s.builder.SchemaVersion() + ":" + hex.EncodeToString(sum[:])
}

// Featurize builds the graph of one molecule, serving it from the cache when
// possible.
func (s *Service) Featurize(ctx context.Context, smiles string, label *float64) (*moltypes.MoleculeGraph, error) {
	start := s.now()

	var (
		g   *moltypes.MoleculeGraph
		hit bool
		err error
	)
	if s.cache != nil {
		g, hit, err = s.cache.GetOrBuild(ctx, s.CacheKey(smiles, label), func(ctx context.Context) (*moltypes.MoleculeGraph, error) {
			return s.builder.BuildGraph(ctx, smiles, label)
		})
		s.recordCache(hit)
	} else {
		g, err = s.builder.BuildGraph(ctx, smiles, label)
	}
	if err != nil {
		if isRejection(err) {
			s.recordSkip(string(errors.GetCode(err)))
			s.logger.Debug("molecule rejected",
				logging.String("smiles", smiles),
				logging.String("reason", errors.Reason(err)),
			)
		}
		return nil, err
	}

	if !hit && s.metrics != nil {
		s.metrics.RecordGraph("single", time.Since(start))
	}
	return g, nil
}

// FeaturizeBatch builds a batch. Cached rows are served from the cache and
// only the misses reach the builder; skip indexes always refer to rows.
func (s *Service) FeaturizeBatch(ctx context.Context, rows []moltypes.GraphRow) (*moltypes.BatchResult, error) {
	if s.cache == nil {
		res, err := s.builder.BuildBatch(ctx, rows)
		if err != nil {
			return nil, err
		}
		for _, sk := range res.Skipped {
			s.recordSkip(sk.Code)
		}
		return res, nil
	}

	graphs := make([]*moltypes.MoleculeGraph, len(rows))
	keys := make([]string, len(rows))
	var (
		missIdx  []int
		missRows []moltypes.GraphRow
	)
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keys[i] = s.CacheKey(row.SMILES, row.Label)
		g, err := s.cache.Get(ctx, keys[i])
		if err == nil {
			graphs[i] = g
			s.recordCache(true)
			continue
		}
		if !errors.IsCode(err, errors.ErrCodeNotFound) {
			s.logger.Warn("graph cache read failed", logging.String("key", keys[i]), logging.Err(err))
		}
		s.recordCache(false)
		missIdx = append(missIdx, i)
		missRows = append(missRows, row)
	}

	out := &moltypes.BatchResult{
		Graphs:  make([]*moltypes.MoleculeGraph, 0, len(rows)),
		Skipped: []moltypes.SkipEntry{},
	}

	if len(missRows) > 0 {
		built, err := s.builder.BuildBatch(ctx, missRows)
		if err != nil {
			return nil, err
		}

		skipped := make(map[int]bool, len(built.Skipped))
		for _, sk := range built.Skipped {
			skipped[sk.Index] = true
			sk.Index = missIdx[sk.Index]
			out.Skipped = append(out.Skipped, sk)
			s.recordSkip(sk.Code)
		}

		next := 0
		for j, i := range missIdx {
			if skipped[j] {
				continue
			}
			g := built.Graphs[next]
			next++
			graphs[i] = g
			if err := s.cache.Set(ctx, keys[i], g); err != nil {
				s.logger.Warn("graph cache write failed", logging.String("key", keys[i]), logging.Err(err))
			}
		}
	}

	for _, g := range graphs {
		if g != nil {
			out.Graphs = append(out.Graphs, g)
		}
	}

	s.logger.Info("batch served",
		logging.Int("rows", len(rows)),
		logging.Int("cache_hits", len(rows)-len(missRows)),
		logging.Int("graphs", len(out.Graphs)),
		logging.Int("skipped", len(out.Skipped)),
	)
	return out, nil
}

// Dataset is the exported document of one batch run.
type Dataset struct {
	RunID         string                    `json:"run_id"`
	SchemaVersion string                    `json:"schema_version"`
	CreatedAt     time.Time                 `json:"created_at"`
	Schema        *moltypes.FeatureSchema   `json:"schema"`
	Graphs        []*moltypes.MoleculeGraph `json:"graphs"`
	Skipped       []moltypes.SkipEntry      `json:"skipped"`
}

// Export uploads result as a JSON dataset. An empty runID gets a fresh
// UUID.
func (s *Service) Export(ctx context.Context, runID string, result *moltypes.BatchResult) (*minio.DatasetObject, error) {
	if s.store == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "dataset export is not configured")
	}
	if result == nil {
		return nil, errors.InvalidParam("batch result is required")
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	doc := Dataset{
		RunID:         runID,
		SchemaVersion: s.builder.SchemaVersion(),
		CreatedAt:     s.now().UTC(),
		Schema:        s.builder.Schema(),
		Graphs:        result.Graphs,
		Skipped:       result.Skipped,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode dataset")
	}

	obj, err := s.store.PutDataset(ctx, doc.SchemaVersion, runID, payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("dataset exported",
		logging.String("run_id", runID),
		logging.String("key", obj.Key),
		logging.Int("graphs", len(result.Graphs)),
		logging.Int("skipped", len(result.Skipped)),
	)
	return obj, nil
}

func (s *Service) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheAccess(cacheName, hit)
	}
}

func (s *Service) recordSkip(code string) {
	if s.metrics != nil {
		s.metrics.RecordSkip(code)
	}
}

// isRejection reports whether err is a per-molecule failure rather than an
// infrastructure or cancellation error.
func isRejection(err error) bool {
	return errors.GetCode(err).Module() == "MOL"
}
