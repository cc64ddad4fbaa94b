package molgraph

import (
	"fmt"

	"github.com/turtacn/molgraph/internal/domain/molecule"
)

// ---------------------------------------------------------------------------
// CategoryList
// ---------------------------------------------------------------------------

// CategoryList is an ordered, immutable list of permitted values for one
// categorical feature.  An open list ends in an overflow bucket that absorbs
// every value not listed; a closed list has no such bucket.
type CategoryList[T comparable] struct {
	name     string
	values   []T
	index    map[T]int
	overflow string
}

// NewCategoryList builds an open list: values followed by an overflow bucket
// labelled overflow.
func NewCategoryList[T comparable](name, overflow string, values ...T) CategoryList[T] {
	if overflow == "" {
		overflow = "Unknown"
	}
	l := newCategoryList(name, values)
	l.overflow = overflow
	return l
}

// NewClosedCategoryList builds a list without an overflow bucket.  Values not
// listed encode as all zeros.
func NewClosedCategoryList[T comparable](name string, values ...T) CategoryList[T] {
	return newCategoryList(name, values)
}

func newCategoryList[T comparable](name string, values []T) CategoryList[T] {
	l := CategoryList[T]{
		name:   name,
		values: append([]T(nil), values...),
		index:  make(map[T]int, len(values)),
	}
	for i, v := range l.values {
		if _, dup := l.index[v]; !dup {
			l.index[v] = i
		}
	}
	return l
}

// Name returns the feature name.
func (l CategoryList[T]) Name() string { return l.name }

// Len returns the one-hot width, overflow bucket included.
func (l CategoryList[T]) Len() int {
	if l.HasOverflow() {
		return len(l.values) + 1
	}
	return len(l.values)
}

// HasOverflow reports whether the list ends in an overflow bucket.
func (l CategoryList[T]) HasOverflow() bool { return l.overflow != "" }

// Slot returns the bit index of v.  Unlisted values map to the last bit of an
// open list; on a closed list they report false.
func (l CategoryList[T]) Slot(v T) (int, bool) {
	if i, ok := l.index[v]; ok {
		return i, true
	}
	if l.HasOverflow() {
		return len(l.values), true
	}
	return -1, false
}

// Labels returns the bit labels in order.
func (l CategoryList[T]) Labels() []string {
	out := make([]string, 0, l.Len())
	for _, v := range l.values {
		out = append(out, fmt.Sprint(v))
	}
	if l.HasOverflow() {
		out = append(out, l.overflow)
	}
	return out
}

// ---------------------------------------------------------------------------
// Vocabulary
// ---------------------------------------------------------------------------

// Scale is a fixed center/width normalization: (x - Center) / Width.
type Scale struct {
	Center float64
	Width  float64
}

// Apply normalizes x.
func (s Scale) Apply(x float64) float32 {
	return float32((x - s.Center) / s.Width)
}

// permittedSymbols is the atom vocabulary, "Unknown" excluded.
var permittedSymbols = []string{
	"C", "N", "O", "S", "F", "Si", "P", "Cl", "Br", "Mg", "Na", "Ca", "Fe",
	"As", "Al", "I", "B", "V", "K", "Tl", "Yb", "Sb", "Sn", "Ag", "Pd", "Co",
	"Se", "Ti", "Zn", "Li", "Ge", "Cu", "Au", "Ni", "Cd", "In", "Mn", "Zr",
	"Cr", "Pt", "Hg", "Pb",
}

// Vocabulary holds every category list and scaling constant of one
// configuration.  It is built once and never modified.
type Vocabulary struct {
	Symbols       CategoryList[string]
	Degree        CategoryList[int]
	FormalCharge  CategoryList[int]
	Hybridization CategoryList[molecule.Hybridization]
	Chirality     CategoryList[molecule.ChiralTag]
	TotalHs       CategoryList[int]
	BondType      CategoryList[molecule.BondType]
	Stereo        CategoryList[molecule.BondStereo]

	Mass        Scale
	VanDerWaals Scale
	Covalent    Scale
}

// NewVocabulary returns the vocabulary selected by cfg.
func NewVocabulary(cfg FeaturizerConfig) *Vocabulary {
	symbols := permittedSymbols
	if !cfg.HydrogensImplicit {
		symbols = append([]string{"H"}, permittedSymbols...)
	}

	bondTypes := []molecule.BondType{
		molecule.BondSingle, molecule.BondDouble, molecule.BondTriple, molecule.BondAromatic,
	}
	bondType := NewClosedCategoryList("bond_type", bondTypes...)
	if cfg.BondTypeOverflow {
		bondType = NewCategoryList("bond_type", "OTHER", bondTypes...)
	}

	return &Vocabulary{
		Symbols:      NewCategoryList("symbol", "Unknown", symbols...),
		Degree:       NewCategoryList("degree", "MoreThanFour", 0, 1, 2, 3, 4),
		FormalCharge: NewCategoryList("formal_charge", "Extreme", -3, -2, -1, 0, 1, 2, 3),
		Hybridization: NewCategoryList("hybridization", "OTHER",
			molecule.HybridizationS, molecule.HybridizationSP, molecule.HybridizationSP2,
			molecule.HybridizationSP3, molecule.HybridizationSP3D, molecule.HybridizationSP3D2),
		Chirality: NewCategoryList("chirality", "CHI_OTHER",
			molecule.ChiralUnspecified, molecule.ChiralTetrahedralCW, molecule.ChiralTetrahedralCCW),
		TotalHs:  NewCategoryList("total_hs", "MoreThanFour", 0, 1, 2, 3, 4),
		BondType: bondType,
		Stereo: NewCategoryList("stereo", "STEREONONE",
			molecule.StereoZ, molecule.StereoE, molecule.StereoAny),

		Mass:        Scale{Center: 10.812, Width: 116.092},
		VanDerWaals: Scale{Center: 1.5, Width: 0.6},
		Covalent:    Scale{Center: 0.64, Width: 0.76},
	}
}
