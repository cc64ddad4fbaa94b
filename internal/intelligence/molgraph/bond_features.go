package molgraph

import (
	"github.com/turtacn/molgraph/internal/domain/molecule"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// BondFeaturizer maps a bond to its edge row.  Row layout, in order:
//
//	bond type one-hot over SINGLE, DOUBLE, TRIPLE, AROMATIC (4, or 5 with
//	the OTHER bucket of BondTypeOverflow)
//	conjugated, in ring (1 + 1)
//	stereo one-hot over STEREOZ, STEREOE, STEREOANY, STEREONONE (4, only with
//	UseStereochemistry)
//
// Without BondTypeOverflow a bond type outside the four listed encodes as an
// all-zero one-hot.
type BondFeaturizer struct {
	vocab              *Vocabulary
	useStereochemistry bool
	segments           []moltypes.FeatureSegment
	dim                int
}

// NewBondFeaturizer returns the bond featurizer selected by cfg.
func NewBondFeaturizer(cfg FeaturizerConfig) *BondFeaturizer {
	return newBondFeaturizer(cfg, NewVocabulary(cfg))
}

func newBondFeaturizer(cfg FeaturizerConfig, vocab *Vocabulary) *BondFeaturizer {
	f := &BondFeaturizer{vocab: vocab, useStereochemistry: cfg.UseStereochemistry}

	var l layout
	l.oneHot(vocab.BondType.Name(), vocab.BondType.Len(), vocab.BondType.Labels())
	l.scalar("is_conjugated")
	l.scalar("in_ring")
	if f.useStereochemistry {
		l.oneHot(vocab.Stereo.Name(), vocab.Stereo.Len(), vocab.Stereo.Labels())
	}
	f.segments, f.dim = l.segments, l.width
	return f
}

// Dim returns the edge row width.
func (f *BondFeaturizer) Dim() int { return f.dim }

// Segments describes the edge row layout.
func (f *BondFeaturizer) Segments() []moltypes.FeatureSegment {
	return cloneSegments(f.segments)
}

// Featurize returns the edge row of bond.
func (f *BondFeaturizer) Featurize(bond molecule.Bond) []float32 {
	row := make([]float32, f.dim)
	off := EncodeInto(row, bond.Type, f.vocab.BondType)
	row[off] = boolFeature(bond.IsConjugated)
	row[off+1] = boolFeature(bond.InRing)
	off += 2
	if f.useStereochemistry {
		EncodeInto(row[off:], bond.Stereo, f.vocab.Stereo)
	}
	return row
}
