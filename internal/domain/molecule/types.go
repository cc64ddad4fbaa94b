// Package molecule is the chemistry layer of MolGraph.  It parses SMILES into
// an immutable molecule, perceives rings, aromaticity, conjugation,
// hybridization and double-bond stereo, and exposes the result through the
// ChemistryQuery interface consumed by the featurizers.
package molecule

// ─────────────────────────────────────────────────────────────────────────────
// Hybridization
// ─────────────────────────────────────────────────────────────────────────────

// Hybridization is the orbital hybridization state of an atom.
type Hybridization int

const (
	HybridizationUnspecified Hybridization = iota
	HybridizationS
	HybridizationSP
	HybridizationSP2
	HybridizationSP3
	HybridizationSP3D
	HybridizationSP3D2
	HybridizationOther
)

var hybridizationNames = map[Hybridization]string{
	HybridizationUnspecified: "UNSPECIFIED",
	HybridizationS:           "S",
	HybridizationSP:          "SP",
	HybridizationSP2:         "SP2",
	HybridizationSP3:         "SP3",
	HybridizationSP3D:        "SP3D",
	HybridizationSP3D2:       "SP3D2",
	HybridizationOther:       "OTHER",
}

func (h Hybridization) String() string {
	if s, ok := hybridizationNames[h]; ok {
		return s
	}
	return "UNSPECIFIED"
}

// ─────────────────────────────────────────────────────────────────────────────
// ChiralTag
// ─────────────────────────────────────────────────────────────────────────────

// ChiralTag is the tetrahedral parity written on an atom.
type ChiralTag int

const (
	ChiralUnspecified ChiralTag = iota
	ChiralTetrahedralCW
	ChiralTetrahedralCCW
	ChiralOther
)

func (c ChiralTag) String() string {
	switch c {
	case ChiralTetrahedralCW:
		return "CHI_TETRAHEDRAL_CW"
	case ChiralTetrahedralCCW:
		return "CHI_TETRAHEDRAL_CCW"
	case ChiralOther:
		return "CHI_OTHER"
	default:
		return "CHI_UNSPECIFIED"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// BondType
// ─────────────────────────────────────────────────────────────────────────────

// BondType is the perceived order of a bond.
type BondType int

const (
	BondSingle BondType = iota + 1
	BondDouble
	BondTriple
	BondAromatic
	BondQuadruple
)

func (b BondType) String() string {
	switch b {
	case BondSingle:
		return "SINGLE"
	case BondDouble:
		return "DOUBLE"
	case BondTriple:
		return "TRIPLE"
	case BondAromatic:
		return "AROMATIC"
	case BondQuadruple:
		return "QUADRUPLE"
	default:
		return "UNSPECIFIED"
	}
}

// order returns the integral Kekulé contribution of a non-aromatic bond type.
func (b BondType) order() int {
	switch b {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	default:
		return 1
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// BondStereo
// ─────────────────────────────────────────────────────────────────────────────

// BondStereo is the double-bond configuration descriptor.
type BondStereo int

const (
	StereoNone BondStereo = iota
	StereoAny
	StereoZ
	StereoE
)

func (s BondStereo) String() string {
	switch s {
	case StereoAny:
		return "STEREOANY"
	case StereoZ:
		return "STEREOZ"
	case StereoE:
		return "STEREOE"
	default:
		return "STEREONONE"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Atom / Bond records
// ─────────────────────────────────────────────────────────────────────────────

// Atom is the read-only view of a perceived atom.
type Atom struct {
	Index        int
	Symbol       string
	AtomicNum    int
	Isotope      int
	FormalCharge int

	// Degree counts explicit graph neighbours.  Implicit and bracket
	// hydrogens are not neighbours.
	Degree int

	// TotalHs counts implicit plus bracket hydrogens.
	TotalHs int

	Hybridization Hybridization
	IsAromatic    bool
	InRing        bool

	// Mass is the standard atomic weight, or the isotope number when an
	// isotope is written.
	Mass float64

	ChiralTag ChiralTag
	AtomClass int
}

// Bond is the read-only view of a perceived bond.
type Bond struct {
	Index        int
	Begin        int
	End          int
	Type         BondType
	IsConjugated bool
	InRing       bool
	Stereo       BondStereo
}

// Other returns the endpoint of b that is not atom.
func (b Bond) Other(atom int) int {
	if b.Begin == atom {
		return b.End
	}
	return b.Begin
}
