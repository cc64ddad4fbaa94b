package molecule

import (
	"sort"
)

// Molecule is the read-only view the featurizers consume.  Atom indices run
// from 0 to NumAtoms()-1 in parse order.
type Molecule interface {
	NumAtoms() int
	Atom(i int) Atom

	// Neighbors returns the bonded neighbours of atom i in ascending order.
	Neighbors(i int) []int

	// BondBetween returns the bond joining i and j, if any.
	BondBetween(i, j int) (Bond, bool)
}

// ChemistryQuery parses a SMILES string into a Molecule.  A failure is an
// ErrInvalidStructure carrying the reason as its detail.
type ChemistryQuery interface {
	Parse(smiles string) (Molecule, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Structure
// ─────────────────────────────────────────────────────────────────────────────

// Structure is the immutable perceived molecule returned by ParseSMILES.
type Structure struct {
	atoms     []Atom
	bonds     []Bond
	neighbors [][]int
	bondIndex map[[2]int]int
}

func newStructure(atoms []Atom, bonds []Bond) *Structure {
	s := &Structure{
		atoms:     atoms,
		bonds:     bonds,
		neighbors: make([][]int, len(atoms)),
		bondIndex: make(map[[2]int]int, len(bonds)),
	}
	for k, b := range bonds {
		s.neighbors[b.Begin] = append(s.neighbors[b.Begin], b.End)
		s.neighbors[b.End] = append(s.neighbors[b.End], b.Begin)
		s.bondIndex[pairKey(b.Begin, b.End)] = k
	}
	for _, nb := range s.neighbors {
		sort.Ints(nb)
	}
	return s
}

func pairKey(i, j int) [2]int {
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}

// NumAtoms returns the number of heavy atoms plus any hydrogens that could
// not be folded into a neighbour's count.
func (s *Structure) NumAtoms() int { return len(s.atoms) }

// NumBonds returns the number of bonds.
func (s *Structure) NumBonds() int { return len(s.bonds) }

// Atom returns atom i.  It panics when i is out of range.
func (s *Structure) Atom(i int) Atom { return s.atoms[i] }

// Bond returns bond k.  It panics when k is out of range.
func (s *Structure) Bond(k int) Bond { return s.bonds[k] }

// Neighbors returns a copy of atom i's sorted neighbour list.
func (s *Structure) Neighbors(i int) []int {
	return append([]int(nil), s.neighbors[i]...)
}

// BondBetween returns the bond joining atoms i and j.
func (s *Structure) BondBetween(i, j int) (Bond, bool) {
	k, ok := s.bondIndex[pairKey(i, j)]
	if !ok {
		return Bond{}, false
	}
	return s.bonds[k], true
}

// withoutHydrogenAtoms folds plain explicit hydrogens ([H] with one single
// bond to a non-hydrogen, no isotope, charge or class) into their
// neighbour's hydrogen count and renumbers the remaining atoms.
func (s *Structure) withoutHydrogenAtoms() *Structure {
	remove := make([]bool, len(s.atoms))
	found := false
	for i, a := range s.atoms {
		if a.AtomicNum != 1 || a.Isotope != 0 || a.FormalCharge != 0 || a.AtomClass != 0 || len(s.neighbors[i]) != 1 {
			continue
		}
		nb := s.neighbors[i][0]
		b, _ := s.BondBetween(i, nb)
		if s.atoms[nb].AtomicNum == 1 || b.Type != BondSingle || b.Stereo != StereoNone {
			continue
		}
		remove[i] = true
		found = true
	}
	if !found {
		return s
	}

	atoms := append([]Atom(nil), s.atoms...)
	for i := range atoms {
		if remove[i] {
			nb := s.neighbors[i][0]
			atoms[nb].TotalHs++
			atoms[nb].Degree--
		}
	}

	remap := make([]int, len(atoms))
	kept := make([]Atom, 0, len(atoms))
	for i, a := range atoms {
		if remove[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(kept)
		a.Index = len(kept)
		kept = append(kept, a)
	}

	bonds := make([]Bond, 0, len(s.bonds))
	for _, b := range s.bonds {
		if remap[b.Begin] < 0 || remap[b.End] < 0 {
			continue
		}
		b.Begin, b.End = remap[b.Begin], remap[b.End]
		b.Index = len(bonds)
		bonds = append(bonds, b)
	}
	return newStructure(kept, bonds)
}

// ParseSMILES parses and perceives smiles.
func ParseSMILES(smiles string) (*Structure, error) {
	atoms, bonds, err := parseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	return perceive(atoms, bonds)
}

// ─────────────────────────────────────────────────────────────────────────────
// SMILESParser: ChemistryQuery implementation
// ─────────────────────────────────────────────────────────────────────────────

// SMILESParser is the built-in ChemistryQuery.  It is stateless and safe for
// concurrent use.
type SMILESParser struct{}

// NewSMILESParser returns the built-in ChemistryQuery.
func NewSMILESParser() *SMILESParser { return &SMILESParser{} }

// Parse implements ChemistryQuery.
func (SMILESParser) Parse(smiles string) (Molecule, error) {
	s, err := ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var (
	_ ChemistryQuery = (*SMILESParser)(nil)
	_ Molecule       = (*Structure)(nil)
	_ PeriodicTable  = (*ElementTable)(nil)
)
