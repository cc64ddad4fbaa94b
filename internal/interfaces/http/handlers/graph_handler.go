package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// GraphService is the featurization service as seen by the HTTP layer.
type GraphService interface {
	Featurize(ctx context.Context, smiles string, label *float64) (*moltypes.MoleculeGraph, error)
	FeaturizeBatch(ctx context.Context, rows []moltypes.GraphRow) (*moltypes.BatchResult, error)
	Export(ctx context.Context, runID string, result *moltypes.BatchResult) (*minio.DatasetObject, error)
	Schema() *moltypes.FeatureSchema
}

// GraphHandler serves the graph endpoints.
type GraphHandler struct {
	svc          GraphService
	maxBatchRows int
	maxBodySize  int64
	logger       logging.Logger
}

// GraphHandlerConfig holds request limits.
type GraphHandlerConfig struct {
	MaxBatchRows int
	MaxBodySize  int64
}

func NewGraphHandler(svc GraphService, cfg GraphHandlerConfig, logger logging.Logger) *GraphHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GraphHandler{
		svc:          svc,
		maxBatchRows: cfg.MaxBatchRows,
		maxBodySize:  cfg.MaxBodySize,
		logger:       logger,
	}
}

// BuildGraphRequest is the body of POST /api/v1/graphs.
type BuildGraphRequest struct {
	SMILES string   `json:"smiles"`
	Label  *float64 `json:"label,omitempty"`
}

// BuildBatchRequest is the body of POST /api/v1/graphs/batch.
type BuildBatchRequest struct {
	Rows   []moltypes.GraphRow `json:"rows"`
	Export bool                `json:"export,omitempty"`
	RunID  string              `json:"run_id,omitempty"`
}

// BuildBatchResponse carries the batch result and, when requested, the
// exported dataset location.
type BuildBatchResponse struct {
	Graphs  []*moltypes.MoleculeGraph `json:"graphs"`
	Skipped []moltypes.SkipEntry      `json:"skipped"`
	Dataset *minio.DatasetObject      `json:"dataset,omitempty"`
}

// Build handles POST /api/v1/graphs.
func (h *GraphHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req BuildGraphRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if strings.TrimSpace(req.SMILES) == "" {
		writeAppError(w, errors.InvalidParam("smiles is required"))
		return
	}

	g, err := h.svc.Featurize(r.Context(), req.SMILES, req.Label)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// BuildBatch handles POST /api/v1/graphs/batch. Rows that fail are reported
// in skipped; the request itself only fails on bad input or infrastructure
// errors.
func (h *GraphHandler) BuildBatch(w http.ResponseWriter, r *http.Request) {
	var req BuildBatchRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if len(req.Rows) == 0 {
		writeAppError(w, errors.InvalidParam("rows must not be empty"))
		return
	}
	if h.maxBatchRows > 0 && len(req.Rows) > h.maxBatchRows {
		writeAppError(w, errors.InvalidParam("too many rows").
			WithDetail(fmt.Sprintf("batch has %d rows, limit is %d", len(req.Rows), h.maxBatchRows)))
		return
	}

	res, err := h.svc.FeaturizeBatch(r.Context(), req.Rows)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := BuildBatchResponse{Graphs: res.Graphs, Skipped: res.Skipped}
	if req.Export {
		obj, err := h.svc.Export(r.Context(), req.RunID, res)
		if err != nil {
			h.logger.Error("dataset export failed", logging.Err(err))
			writeAppError(w, err)
			return
		}
		resp.Dataset = obj
	}
	writeJSON(w, http.StatusOK, resp)
}

// Schema handles GET /api/v1/schema.
func (h *GraphHandler) Schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Schema())
}
