package molgraph

import (
	"github.com/turtacn/molgraph/internal/domain/molecule"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// ---------------------------------------------------------------------------
// AtomFeaturizer
// ---------------------------------------------------------------------------

// AtomFeaturizer maps an atom to its node row.  Row layout, in order:
//
//	symbol one-hot (43, or 44 with "H" when hydrogens are explicit)
//	degree one-hot (6)
//	formal charge one-hot (8)
//	hybridization one-hot (7)
//	in ring, aromatic (1 + 1)
//	scaled mass, scaled vdW radius, scaled covalent radius (3)
//	chiral tag one-hot (4, only with UseChirality)
//	total H one-hot (6, only with HydrogensImplicit)
type AtomFeaturizer struct {
	vocab             *Vocabulary
	useChirality      bool
	hydrogensImplicit bool
	segments          []moltypes.FeatureSegment
	dim               int
}

// NewAtomFeaturizer returns the atom featurizer selected by cfg.
func NewAtomFeaturizer(cfg FeaturizerConfig) *AtomFeaturizer {
	return newAtomFeaturizer(cfg, NewVocabulary(cfg))
}

func newAtomFeaturizer(cfg FeaturizerConfig, vocab *Vocabulary) *AtomFeaturizer {
	f := &AtomFeaturizer{
		vocab:             vocab,
		useChirality:      cfg.UseChirality,
		hydrogensImplicit: cfg.HydrogensImplicit,
	}

	var l layout
	l.oneHot(vocab.Symbols.Name(), vocab.Symbols.Len(), vocab.Symbols.Labels())
	l.oneHot(vocab.Degree.Name(), vocab.Degree.Len(), vocab.Degree.Labels())
	l.oneHot(vocab.FormalCharge.Name(), vocab.FormalCharge.Len(), vocab.FormalCharge.Labels())
	l.oneHot(vocab.Hybridization.Name(), vocab.Hybridization.Len(), vocab.Hybridization.Labels())
	l.scalar("in_ring")
	l.scalar("is_aromatic")
	l.scalar("mass_scaled")
	l.scalar("vdw_radius_scaled")
	l.scalar("covalent_radius_scaled")
	if f.useChirality {
		l.oneHot(vocab.Chirality.Name(), vocab.Chirality.Len(), vocab.Chirality.Labels())
	}
	if f.hydrogensImplicit {
		l.oneHot(vocab.TotalHs.Name(), vocab.TotalHs.Len(), vocab.TotalHs.Labels())
	}
	f.segments, f.dim = l.segments, l.width
	return f
}

// Dim returns the node row width.  It depends only on the configuration.
func (f *AtomFeaturizer) Dim() int { return f.dim }

// Segments describes the node row layout.
func (f *AtomFeaturizer) Segments() []moltypes.FeatureSegment {
	return cloneSegments(f.segments)
}

// Featurize returns the node row of atom.  Radii come from periodic by
// atomic number.
func (f *AtomFeaturizer) Featurize(atom molecule.Atom, periodic molecule.PeriodicTable) []float32 {
	row := make([]float32, f.dim)
	f.featurizeInto(row, atom, periodic)
	return row
}

func (f *AtomFeaturizer) featurizeInto(row []float32, atom molecule.Atom, periodic molecule.PeriodicTable) {
	v := f.vocab
	off := 0
	off += EncodeInto(row[off:], atom.Symbol, v.Symbols)
	off += EncodeInto(row[off:], atom.Degree, v.Degree)
	off += EncodeInto(row[off:], atom.FormalCharge, v.FormalCharge)
	off += EncodeInto(row[off:], atom.Hybridization, v.Hybridization)

	row[off] = boolFeature(atom.InRing)
	row[off+1] = boolFeature(atom.IsAromatic)
	row[off+2] = v.Mass.Apply(atom.Mass)
	row[off+3] = v.VanDerWaals.Apply(periodic.VanDerWaalsRadius(atom.AtomicNum))
	row[off+4] = v.Covalent.Apply(periodic.CovalentRadius(atom.AtomicNum))
	off += 5

	if f.useChirality {
		off += EncodeInto(row[off:], atom.ChiralTag, v.Chirality)
	}
	if f.hydrogensImplicit {
		EncodeInto(row[off:], atom.TotalHs, v.TotalHs)
	}
}

// ---------------------------------------------------------------------------
// layout
// ---------------------------------------------------------------------------

// layout accumulates named segments while a featurizer is being built.
type layout struct {
	segments []moltypes.FeatureSegment
	width    int
}

func (l *layout) oneHot(name string, width int, labels []string) {
	l.segments = append(l.segments, moltypes.FeatureSegment{
		Name:       name,
		Offset:     l.width,
		Width:      width,
		Categories: labels,
	})
	l.width += width
}

func (l *layout) scalar(name string) {
	l.oneHot(name, 1, nil)
}

func cloneSegments(in []moltypes.FeatureSegment) []moltypes.FeatureSegment {
	out := make([]moltypes.FeatureSegment, len(in))
	for i, s := range in {
		s.Categories = append([]string(nil), s.Categories...)
		out[i] = s
	}
	return out
}
