// Package molecule defines the graph-level Data Transfer Objects produced by
// MolGraph: featurized molecule graphs, batch input rows, skip reports and the
// feature schema description.  No featurization logic lives here, only plain
// data types that are safe to import from any layer (HTTP handlers, the CLI,
// the Kafka worker, the Go client) without creating circular dependencies.
package molecule

import (
	"fmt"
	"math"

	"github.com/turtacn/molgraph/pkg/errors"
)

// Schema versions stamped on every graph.  A graph's version identifies the
// exact layout of its node and edge rows: the base version followed by one
// marker per setting that departs from the default featurizer.
const (
	// SchemaVersionV1 is the default layout (chirality, implicit hydrogen
	// counts and bond stereo on). The bond-type one-hot has no overflow
	// bucket, so an out-of-set bond type encodes as all zeros.
	SchemaVersionV1 = "v1"

	// SchemaVersionBondOther is the default layout with an OTHER bucket
	// appended to the bond-type one-hot.
	SchemaVersionBondOther = SchemaVersionV1 + SchemaMarkerBondOther
)

// Layout markers appended to SchemaVersionV1, in this order.
const (
	SchemaMarkerNoChirality = "-nochi"
	SchemaMarkerNoHydrogens = "-nohs"
	SchemaMarkerNoStereo    = "-nostereo"
	SchemaMarkerBondOther   = "+bondother"
)

// ─────────────────────────────────────────────────────────────────────────────
// MoleculeGraph: featurized graph record
// ─────────────────────────────────────────────────────────────────────────────

// MoleculeGraph is the immutable output of a single featurization.
//
// Row i of Nodes describes atom i of the parsed molecule.  EdgeIndex holds both
// directions of every bond, enumerated in row-major order over the symmetric
// adjacency matrix; EdgeAttr[k] describes the bond behind EdgeIndex[k].
type MoleculeGraph struct {
	// SMILES is the input string the graph was built from.
	SMILES string `json:"smiles"`

	// SchemaVersion names the feature layout used for Nodes and EdgeAttr.
	SchemaVersion string `json:"schema_version"`

	// Nodes is the node-feature matrix, one row per atom.
	Nodes [][]float32 `json:"nodes"`

	// EdgeIndex lists directed (source, target) atom-index pairs.
	EdgeIndex [][2]int `json:"edge_index"`

	// EdgeAttr is the edge-feature matrix, aligned with EdgeIndex.
	EdgeAttr [][]float32 `json:"edge_attr"`

	// Label is nil for unlabeled graphs, otherwise a single-element record.
	Label []float32 `json:"label,omitempty"`
}

// NumNodes returns the number of atoms in the graph.
func (g *MoleculeGraph) NumNodes() int { return len(g.Nodes) }

// NumEdges returns the number of directed edges (twice the bond count).
func (g *MoleculeGraph) NumEdges() int { return len(g.EdgeIndex) }

// HasLabel reports whether a label is attached.
func (g *MoleculeGraph) HasLabel() bool { return len(g.Label) > 0 }

// NodeDim returns the width of a node row, or 0 for an empty graph.
func (g *MoleculeGraph) NodeDim() int {
	if len(g.Nodes) == 0 {
		return 0
	}
	return len(g.Nodes[0])
}

// EdgeDim returns the width of an edge row, or 0 for a graph without bonds.
func (g *MoleculeGraph) EdgeDim() int {
	if len(g.EdgeAttr) == 0 {
		return 0
	}
	return len(g.EdgeAttr[0])
}

// Validate checks the structural invariants of the graph: aligned edge arrays,
// in-range endpoints, rectangular matrices and a label of at most one value.
func (g *MoleculeGraph) Validate() error {
	if g == nil {
		return errors.New(errors.ErrCodeValidation, "graph is nil")
	}
	fail := func(format string, args ...interface{}) error {
		return errors.New(errors.ErrCodeValidation, "graph invariant violated").
			WithDetail(fmt.Sprintf(format, args...))
	}
	if len(g.EdgeIndex) != len(g.EdgeAttr) {
		return fail("edge_index has %d entries but edge_attr has %d", len(g.EdgeIndex), len(g.EdgeAttr))
	}
	n := len(g.Nodes)
	nodeDim := g.NodeDim()
	for i, row := range g.Nodes {
		if len(row) != nodeDim {
			return fail("node %d has width %d, want %d", i, len(row), nodeDim)
		}
	}
	edgeDim := g.EdgeDim()
	for k, e := range g.EdgeIndex {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			return fail("edge %d (%d,%d) out of range for %d nodes", k, e[0], e[1], n)
		}
		if len(g.EdgeAttr[k]) != edgeDim {
			return fail("edge %d has width %d, want %d", k, len(g.EdgeAttr[k]), edgeDim)
		}
	}
	if len(g.Label) > 1 {
		return fail("label has %d values, want at most 1", len(g.Label))
	}
	for _, v := range g.Label {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fail("label %v is not finite", v)
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch input and output
// ─────────────────────────────────────────────────────────────────────────────

// GraphRow is a single batch input: a SMILES string and an optional label.
type GraphRow struct {
	SMILES string   `json:"smiles"`
	Label  *float64 `json:"label,omitempty"`
}

// CheckLabel reports whether v can be stored as a graph label: a finite
// value inside the float32 range, so the graph still serializes to JSON.
func CheckLabel(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxFloat32 {
		return errors.New(errors.ErrCodeMoleculeInvalidLabel, "invalid label").
			WithDetail(fmt.Sprintf("label %v is not a finite float32", v))
	}
	return nil
}

// SkipEntry reports a batch row that could not be featurized.
type SkipEntry struct {
	// Index is the row's position in the original input.
	Index int `json:"index"`

	SMILES string `json:"smiles"`

	// Reason is the human-readable parse failure.
	Reason string `json:"reason"`

	// Code is the error code behind Reason, e.g. MOL_001.
	Code string `json:"code,omitempty"`
}

// BatchResult holds the graphs of all successful rows in input order plus the
// skip report for the rest.
type BatchResult struct {
	Graphs  []*MoleculeGraph `json:"graphs"`
	Skipped []SkipEntry      `json:"skipped"`
}

// Total returns the number of input rows the result accounts for.
func (r *BatchResult) Total() int { return len(r.Graphs) + len(r.Skipped) }

// ─────────────────────────────────────────────────────────────────────────────
// Feature schema description
// ─────────────────────────────────────────────────────────────────────────────

// FeatureSegment describes one contiguous block of a feature row.
type FeatureSegment struct {
	Name   string `json:"name" yaml:"name"`
	Offset int    `json:"offset" yaml:"offset"`
	Width  int    `json:"width" yaml:"width"`

	// Categories lists the one-hot labels in bit order; empty for scalar and
	// binary segments.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// FeatureSchema describes the node and edge row layouts of a featurizer
// configuration.
type FeatureSchema struct {
	Version      string           `json:"version" yaml:"version"`
	NodeDim      int              `json:"node_dim" yaml:"node_dim"`
	EdgeDim      int              `json:"edge_dim" yaml:"edge_dim"`
	NodeSegments []FeatureSegment `json:"node_segments" yaml:"node_segments"`
	EdgeSegments []FeatureSegment `json:"edge_segments" yaml:"edge_segments"`
}
