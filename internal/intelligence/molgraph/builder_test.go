package molgraph

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/molgraph/internal/domain/molecule"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

func newTestBuilder(t *testing.T, cfg FeaturizerConfig, opts ...BuilderOption) *Builder {
	t.Helper()
	b, err := NewBuilder(cfg, opts...)
	require.NoError(t, err)
	return b
}

func floatPtr(v float64) *float64 { return &v }

func TestNewBuilder_InvalidConfig(t *testing.T) {
	_, err := NewBuilder(FeaturizerConfig{MaxAtoms: -1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureConfigInvalid))

	_, err = NewBuilder(FeaturizerConfig{Workers: -2})
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureConfigInvalid))
}

func TestBuildGraph_Ethanol(t *testing.T) {
	b := newTestBuilder(t, FeaturizerConfig{})

	g, err := b.BuildGraph(context.Background(), "CCO", nil)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 4, g.NumEdges())
	assert.Equal(t, [][2]int{{0, 1}, {1, 0}, {1, 2}, {2, 1}}, g.EdgeIndex)
	assert.Equal(t, 70, g.NodeDim())
	assert.Equal(t, 6, g.EdgeDim())
	assert.Equal(t, "v1-nochi-nohs-nostereo", g.SchemaVersion)
	assert.Equal(t, "CCO", g.SMILES)
	assert.Nil(t, g.Label)

	oxygen := g.Nodes[2]
	assert.Equal(t, float32(1), oxygen[3], "O symbol bit")
	assert.Zero(t, oxygen[65], "ring")
	assert.Zero(t, oxygen[66], "aromatic")
}

func TestBuildGraph_Label(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())

	g, err := b.BuildGraph(context.Background(), "CCO", floatPtr(1.5))
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5}, g.Label)
	assert.True(t, g.HasLabel())
}

func TestBuildGraph_EdgeInvariants(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())
	for _, smi := range []string{"C", "CCO", "c1ccccc1", "CC(=O)Oc1ccccc1C(=O)O", "C1CC2CCC1C2", "[Na+].[Cl-]", "F/C=C/F"} {
		t.Run(smi, func(t *testing.T) {
			g, err := b.BuildGraph(context.Background(), smi, nil)
			require.NoError(t, err)
			require.NoError(t, g.Validate())

			assert.Len(t, g.EdgeAttr, len(g.EdgeIndex))
			for k, e := range g.EdgeIndex {
				assert.Less(t, e[0], g.NumNodes())
				assert.Less(t, e[1], g.NumNodes())
				assert.Len(t, g.EdgeAttr[k], b.EdgeDim())
			}
			for _, row := range g.Nodes {
				assert.Len(t, row, b.NodeDim())
			}
		})
	}
}

func TestBuildGraph_Symmetry(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())
	g, err := b.BuildGraph(context.Background(), "CC(=O)Nc1ccc(O)cc1", nil)
	require.NoError(t, err)

	attr := make(map[[2]int][]float32, len(g.EdgeIndex))
	for k, e := range g.EdgeIndex {
		attr[e] = g.EdgeAttr[k]
	}
	for e, row := range attr {
		rev, ok := attr[[2]int{e[1], e[0]}]
		require.True(t, ok, "missing reverse of %v", e)
		assert.Equal(t, row, rev)
	}
	assert.Equal(t, 2*11, len(g.EdgeIndex))
}

func TestBuildGraph_RowMajorOrderWithUnsortedNeighbors(t *testing.T) {
	q := &fakeQuery{mols: map[string]molecule.Molecule{"star": star()}}
	b := newTestBuilder(t, DefaultFeaturizerConfig(), WithChemistryQuery(q))

	g, err := b.BuildGraph(context.Background(), "star", nil)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 0}, {2, 0}, {3, 0}}, g.EdgeIndex)
	assert.Equal(t, float32(1), g.EdgeAttr[0][1], "0-1 double")
	assert.Equal(t, float32(1), g.EdgeAttr[1][2], "0-2 triple")
	assert.Equal(t, float32(1), g.EdgeAttr[2][0], "0-3 single")
	assert.Equal(t, g.EdgeAttr[1], g.EdgeAttr[4])
}

func TestBuildGraph_Idempotent(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())
	first, err := b.BuildGraph(context.Background(), "CN1C=NC2=C1C(=O)N(C(=O)N2C)C", floatPtr(0.25))
	require.NoError(t, err)
	second, err := b.BuildGraph(context.Background(), "CN1C=NC2=C1C(=O)N(C(=O)N2C)C", floatPtr(0.25))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildGraph_SpuriousChiralTagIgnored(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())
	ctx := context.Background()

	plain, err := b.BuildGraph(ctx, "CC(C)O", nil)
	require.NoError(t, err)
	tagged, err := b.BuildGraph(ctx, "C[C@H](C)O", nil)
	require.NoError(t, err)
	assert.Equal(t, plain.Nodes, tagged.Nodes)

	chiral, err := b.BuildGraph(ctx, "C[C@H](N)O", nil)
	require.NoError(t, err)
	untagged, err := b.BuildGraph(ctx, "CC(N)O", nil)
	require.NoError(t, err)
	assert.NotEqual(t, untagged.Nodes[1], chiral.Nodes[1])
}

func TestBuildGraph_UnknownSymbolViaFakeQuery(t *testing.T) {
	q := &fakeQuery{mols: map[string]molecule.Molecule{"[Xx]": unknownElement()}}
	b := newTestBuilder(t, DefaultFeaturizerConfig(), WithChemistryQuery(q))

	g, err := b.BuildGraph(context.Background(), "[Xx]", nil)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, float32(1), g.Nodes[0][42])
	assert.Empty(t, g.EdgeIndex)
	assert.NotNil(t, g.EdgeIndex)
}

func TestBuildGraph_InvalidStructure(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())
	for _, smi := range []string{"", "C1CC", "not a molecule", "c1cccc1"} {
		g, err := b.BuildGraph(context.Background(), smi, nil)
		assert.Nil(t, g)
		assert.ErrorIs(t, err, molecule.ErrInvalidStructure, smi)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))
	}
}

func TestBuildGraph_ForeignParserErrorsBecomeInvalidStructure(t *testing.T) {
	q := &fakeQuery{
		errs: map[string]error{"boom": stdliberrors.New("toolkit exploded")},
		mols: map[string]molecule.Molecule{"empty": &fakeMolecule{}},
	}
	b := newTestBuilder(t, DefaultFeaturizerConfig(), WithChemistryQuery(q))

	_, err := b.BuildGraph(context.Background(), "boom", nil)
	assert.ErrorIs(t, err, molecule.ErrInvalidStructure)
	assert.Equal(t, "toolkit exploded", errors.Reason(err))

	_, err = b.BuildGraph(context.Background(), "empty", nil)
	assert.ErrorIs(t, err, molecule.ErrInvalidStructure)
	assert.Equal(t, "no usable molecule", errors.Reason(err))
}

func TestBuildGraph_MaxAtoms(t *testing.T) {
	cfg := DefaultFeaturizerConfig()
	cfg.MaxAtoms = 2
	b := newTestBuilder(t, cfg)

	_, err := b.BuildGraph(context.Background(), "CC", nil)
	assert.NoError(t, err)

	_, err = b.BuildGraph(context.Background(), "CCO", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeTooLarge))
}

func TestBuildGraph_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestBuilder(t, DefaultFeaturizerConfig()).BuildGraph(ctx, "CCO", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildGraph_BondOverflowSchema(t *testing.T) {
	cfg := DefaultFeaturizerConfig()
	cfg.BondTypeOverflow = true
	b := newTestBuilder(t, cfg)

	g, err := b.BuildGraph(context.Background(), "[C]$[C]", nil)
	require.NoError(t, err)
	assert.Equal(t, moltypes.SchemaVersionBondOther, g.SchemaVersion)
	assert.Equal(t, 11, g.EdgeDim())
	assert.Equal(t, float32(1), g.EdgeAttr[0][4])
}

type batchRecorder struct {
	mu    sync.Mutex
	calls int
	total int
	ok    int
}

func (r *batchRecorder) ObserveBatch(_ string, total, succeeded, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.total, r.ok = total, succeeded
}

func TestBuildBatch_PartialSuccess(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rec := &batchRecorder{}
	cfg := DefaultFeaturizerConfig()
	cfg.Workers = 2
	b := newTestBuilder(t, cfg, WithLogger(logging.NewLoggerFromCore(core)), WithBatchObserver(rec))

	rows := []moltypes.GraphRow{
		{SMILES: "CCO", Label: floatPtr(1)},
		{SMILES: "c1ccccc1", Label: floatPtr(2)},
		{SMILES: "C1CC", Label: floatPtr(3)},
		{SMILES: "CC(=O)O"},
	}
	res, err := b.BuildBatch(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, res.Graphs, 3)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 4, res.Total())

	assert.Equal(t, "CCO", res.Graphs[0].SMILES)
	assert.Equal(t, "c1ccccc1", res.Graphs[1].SMILES)
	assert.Equal(t, "CC(=O)O", res.Graphs[2].SMILES)
	assert.Equal(t, []float32{2}, res.Graphs[1].Label)
	assert.Nil(t, res.Graphs[2].Label)

	skip := res.Skipped[0]
	assert.Equal(t, 2, skip.Index)
	assert.Equal(t, "C1CC", skip.SMILES)
	assert.Contains(t, skip.Reason, "unclosed ring")
	assert.Equal(t, "MOL_001", skip.Code)

	warns := logs.FilterMessage("skipping molecule").All()
	require.Len(t, warns, 1)
	assert.Equal(t, zap.WarnLevel, warns[0].Level)
	assert.Equal(t, int64(2), warns[0].ContextMap()["index"])
	assert.Equal(t, 1, logs.FilterMessage("batch featurized").Len())

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 4, rec.total)
	assert.Equal(t, 3, rec.ok)
}

func TestBuildBatch_MatchesBuildGraph(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())
	rows := make([]moltypes.GraphRow, 0, 40)
	for i := 0; i < 40; i++ {
		rows = append(rows, moltypes.GraphRow{SMILES: fmt.Sprintf("C%sO", repeat("C", i%7)), Label: floatPtr(float64(i))})
	}

	res, err := b.BuildBatch(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, res.Graphs, len(rows))
	assert.Empty(t, res.Skipped)
	for i, row := range rows {
		single, err := b.BuildGraph(context.Background(), row.SMILES, row.Label)
		require.NoError(t, err)
		assert.Equal(t, single, res.Graphs[i])
	}
}

func TestBuildBatch_Empty(t *testing.T) {
	res, err := newTestBuilder(t, DefaultFeaturizerConfig()).BuildBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Graphs)
	assert.Empty(t, res.Skipped)
}

func TestBuildBatch_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newTestBuilder(t, DefaultFeaturizerConfig()).BuildBatch(ctx, []moltypes.GraphRow{{SMILES: "CCO"}})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestBuildGraph_RejectsNonFiniteLabel(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e39, -1e39} {
		_, err := b.BuildGraph(context.Background(), "CCO", floatPtr(v))
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidLabel), "label %v", v)
	}

	g, err := b.BuildGraph(context.Background(), "CCO", floatPtr(math.MaxFloat32))
	require.NoError(t, err)
	assert.Equal(t, []float32{math.MaxFloat32}, g.Label)
}

func TestBuildBatch_BadLabelsAreSkipped(t *testing.T) {
	b := newTestBuilder(t, DefaultFeaturizerConfig())
	rows := []moltypes.GraphRow{
		{SMILES: "CCO", Label: floatPtr(0.5)},
		{SMILES: "CCN", Label: floatPtr(math.NaN())},
		{SMILES: "CCC", Label: floatPtr(1e39)},
	}
	res, err := b.BuildBatch(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, res.Graphs, 1)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 1, res.Skipped[0].Index)
	assert.Equal(t, 2, res.Skipped[1].Index)
	assert.Equal(t, "MOL_017", res.Skipped[0].Code)
	assert.Equal(t, "MOL_017", res.Skipped[1].Code)

	_, err = json.Marshal(res)
	assert.NoError(t, err)
}
