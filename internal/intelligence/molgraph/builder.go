package molgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/turtacn/molgraph/internal/domain/molecule"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/internal/intelligence/common"
	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// Builder assembles MoleculeGraphs from SMILES strings.
type Builder struct {
	cfg      FeaturizerConfig
	query    molecule.ChemistryQuery
	periodic molecule.PeriodicTable
	atoms    *AtomFeaturizer
	bonds    *BondFeaturizer
	observer common.BatchObserver
	logger   logging.Logger
	batch    common.BatchProcessor[moltypes.GraphRow, *moltypes.MoleculeGraph]
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithChemistryQuery replaces the built-in SMILES parser.
func WithChemistryQuery(q molecule.ChemistryQuery) BuilderOption {
	return func(b *Builder) {
		if q != nil {
			b.query = q
		}
	}
}

// WithPeriodicTable replaces the built-in element table.
func WithPeriodicTable(p molecule.PeriodicTable) BuilderOption {
	return func(b *Builder) {
		if p != nil {
			b.periodic = p
		}
	}
}

// WithLogger injects a logger.
func WithLogger(l logging.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBatchObserver receives one summary per BuildBatch call.
func WithBatchObserver(o common.BatchObserver) BuilderOption {
	return func(b *Builder) {
		b.observer = o
	}
}

// NewBuilder validates cfg and returns a Builder.
func NewBuilder(cfg FeaturizerConfig, opts ...BuilderOption) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	vocab := NewVocabulary(cfg)
	b := &Builder{
		cfg:      cfg,
		query:    molecule.NewSMILESParser(),
		periodic: molecule.NewElementTable(),
		atoms:    newAtomFeaturizer(cfg, vocab),
		bonds:    newBondFeaturizer(cfg, vocab),
		logger:   logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(b)
	}
	b.batch = common.NewBatchProcessor[moltypes.GraphRow, *moltypes.MoleculeGraph](
		common.WithBatchName("molgraph"),
		common.WithMaxConcurrency(cfg.Workers),
		common.WithBatchLogger(b.logger),
		common.WithBatchObserver(b.observer),
	)
	return b, nil
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() FeaturizerConfig { return b.cfg }

// SchemaVersion returns the version stamped on every graph.
func (b *Builder) SchemaVersion() string { return b.cfg.SchemaVersion() }

// NodeDim returns the node row width.
func (b *Builder) NodeDim() int { return b.atoms.Dim() }

// EdgeDim returns the edge row width.
func (b *Builder) EdgeDim() int { return b.bonds.Dim() }

// BuildGraph parses smiles and featurizes it.  The only failure for a
// well-formed call is an InvalidStructure error (MOL_001), MOL_016 when
// MaxAtoms is exceeded, or MOL_017 for a label that is not a finite float32.
func (b *Builder) BuildGraph(ctx context.Context, smiles string, label *float64) (*moltypes.MoleculeGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if label != nil {
		if err := moltypes.CheckLabel(*label); err != nil {
			return nil, err
		}
	}

	mol, err := b.parse(smiles)
	if err != nil {
		return nil, err
	}
	n := mol.NumAtoms()
	if b.cfg.MaxAtoms > 0 && n > b.cfg.MaxAtoms {
		return nil, errors.New(errors.ErrCodeMoleculeTooLarge, "molecule exceeds atom limit").
			WithDetail(fmt.Sprintf("molecule has %d atoms, limit is %d", n, b.cfg.MaxAtoms))
	}

	nodes := make([][]float32, n)
	flat := make([]float32, n*b.atoms.Dim())
	for i := 0; i < n; i++ {
		row := flat[i*b.atoms.Dim() : (i+1)*b.atoms.Dim() : (i+1)*b.atoms.Dim()]
		b.atoms.featurizeInto(row, mol.Atom(i), b.periodic)
		nodes[i] = row
	}

	// Row-major scan of the symmetric adjacency: i ascending, then j
	// ascending.  Every bond therefore appears once as (i,j) and once as (j,i).
	var (
		edgeIndex [][2]int
		edgeAttr  [][]float32
	)
	for i := 0; i < n; i++ {
		neighbors := mol.Neighbors(i)
		sort.Ints(neighbors)
		for _, j := range neighbors {
			bond, ok := mol.BondBetween(i, j)
			if !ok {
				return nil, molecule.ErrInvalidStructure.
					WithDetail(fmt.Sprintf("atoms %d and %d are adjacent but have no bond", i, j))
			}
			edgeIndex = append(edgeIndex, [2]int{i, j})
			edgeAttr = append(edgeAttr, b.bonds.Featurize(bond))
		}
	}
	if edgeIndex == nil {
		edgeIndex = [][2]int{}
		edgeAttr = [][]float32{}
	}

	g := &moltypes.MoleculeGraph{
		SMILES:        smiles,
		SchemaVersion: b.SchemaVersion(),
		Nodes:         nodes,
		EdgeIndex:     edgeIndex,
		EdgeAttr:      edgeAttr,
	}
	if label != nil {
		g.Label = []float32{float32(*label)}
	}
	return g, nil
}

// parse runs the chemistry query and normalizes its failures to
// InvalidStructure.
func (b *Builder) parse(smiles string) (molecule.Molecule, error) {
	mol, err := b.query.Parse(smiles)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES) {
			return nil, err
		}
		return nil, molecule.ErrInvalidStructure.WithDetail(err.Error()).WithCause(err)
	}
	if mol == nil || mol.NumAtoms() == 0 {
		return nil, molecule.ErrInvalidStructure.WithDetail("no usable molecule")
	}
	return mol, nil
}

// BuildBatch builds every row on the worker pool.  Rows that fail are left
// out of Graphs and reported in Skipped with their original index; graphs
// keep input order.  Only cancellation of ctx makes the call itself fail.
func (b *Builder) BuildBatch(ctx context.Context, rows []moltypes.GraphRow) (*moltypes.BatchResult, error) {
	res, err := b.batch.Process(ctx, rows, func(ctx context.Context, row moltypes.GraphRow) (*moltypes.MoleculeGraph, error) {
		return b.BuildGraph(ctx, row.SMILES, row.Label)
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &moltypes.BatchResult{
		Graphs:  make([]*moltypes.MoleculeGraph, 0, res.SuccessCount),
		Skipped: make([]moltypes.SkipEntry, 0, res.FailureCount),
	}
	for _, ir := range res.Results {
		if ir.Status == common.ItemStatusSuccess {
			out.Graphs = append(out.Graphs, ir.Result)
			continue
		}
		entry := moltypes.SkipEntry{
			Index:  ir.Index,
			SMILES: rows[ir.Index].SMILES,
			Reason: errors.Reason(ir.Error),
			Code:   string(errors.GetCode(ir.Error)),
		}
		b.logger.Warn("skipping molecule",
			logging.Int("index", entry.Index),
			logging.String("smiles", entry.SMILES),
			logging.String("reason", entry.Reason),
		)
		out.Skipped = append(out.Skipped, entry)
	}

	b.logger.Info("batch featurized",
		logging.Int("rows", len(rows)),
		logging.Int("graphs", len(out.Graphs)),
		logging.Int("skipped", len(out.Skipped)),
		logging.Float64("duration_ms", res.TotalDurationMs),
	)
	return out, nil
}
