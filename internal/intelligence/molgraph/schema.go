package molgraph

import (
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// DescribeSchema returns the node and edge row layouts produced by cfg.
func DescribeSchema(cfg FeaturizerConfig) *moltypes.FeatureSchema {
	vocab := NewVocabulary(cfg)
	return describe(cfg, newAtomFeaturizer(cfg, vocab), newBondFeaturizer(cfg, vocab))
}

// Schema returns the layout of the graphs this builder produces.
func (b *Builder) Schema() *moltypes.FeatureSchema {
	return describe(b.cfg, b.atoms, b.bonds)
}

func describe(cfg FeaturizerConfig, atoms *AtomFeaturizer, bonds *BondFeaturizer) *moltypes.FeatureSchema {
	return &moltypes.FeatureSchema{
		Version:      cfg.SchemaVersion(),
		NodeDim:      atoms.Dim(),
		EdgeDim:      bonds.Dim(),
		NodeSegments: atoms.Segments(),
		EdgeSegments: bonds.Segments(),
	}
}
