package molgraph

import (
	"sort"

	"github.com/turtacn/molgraph/internal/domain/molecule"
	"github.com/turtacn/molgraph/pkg/errors"
)

// fakeMolecule is a hand-built Molecule for tests that must not depend on the
// SMILES parser.
type fakeMolecule struct {
	atoms []molecule.Atom
	bonds []molecule.Bond
}

func (m *fakeMolecule) NumAtoms() int { return len(m.atoms) }

func (m *fakeMolecule) Atom(i int) molecule.Atom { return m.atoms[i] }

// Neighbors deliberately returns neighbours in bond order, not sorted.
func (m *fakeMolecule) Neighbors(i int) []int {
	var out []int
	for _, b := range m.bonds {
		switch i {
		case b.Begin:
			out = append(out, b.End)
		case b.End:
			out = append(out, b.Begin)
		}
	}
	return out
}

func (m *fakeMolecule) BondBetween(i, j int) (molecule.Bond, bool) {
	for _, b := range m.bonds {
		if (b.Begin == i && b.End == j) || (b.Begin == j && b.End == i) {
			return b, true
		}
	}
	return molecule.Bond{}, false
}

// fakeQuery serves canned molecules and errors by SMILES.
type fakeQuery struct {
	mols map[string]molecule.Molecule
	errs map[string]error
}

func (q *fakeQuery) Parse(smiles string) (molecule.Molecule, error) {
	if err, ok := q.errs[smiles]; ok {
		return nil, err
	}
	if m, ok := q.mols[smiles]; ok {
		return m, nil
	}
	return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "invalid molecular structure").
		WithDetail("not in fake")
}

// unknownElement is a single atom whose symbol is in no vocabulary.
func unknownElement() *fakeMolecule {
	return &fakeMolecule{atoms: []molecule.Atom{{
		Symbol:        "Xx",
		AtomicNum:     0,
		Hybridization: molecule.HybridizationUnspecified,
	}}}
}

// star returns a centre atom bonded to three leaves, declared so that the
// centre's bonds are listed out of index order.
func star() *fakeMolecule {
	atoms := make([]molecule.Atom, 4)
	for i := range atoms {
		atoms[i] = molecule.Atom{Index: i, Symbol: "C", AtomicNum: 6, Hybridization: molecule.HybridizationSP3, Mass: 12.011}
	}
	atoms[0].Degree = 3
	for i := 1; i < 4; i++ {
		atoms[i].Degree = 1
	}
	return &fakeMolecule{
		atoms: atoms,
		bonds: []molecule.Bond{
			{Index: 0, Begin: 0, End: 3, Type: molecule.BondSingle},
			{Index: 1, Begin: 0, End: 1, Type: molecule.BondDouble},
			{Index: 2, Begin: 2, End: 0, Type: molecule.BondTriple},
		},
	}
}

func sortedPairs(pairs [][2]int) [][2]int {
	out := append([][2]int(nil), pairs...)
	sort.Slice(out, func(a, b int) bool {
		if out[a][0] != out[b][0] {
			return out[a][0] < out[b][0]
		}
		return out[a][1] < out[b][1]
	})
	return out
}
