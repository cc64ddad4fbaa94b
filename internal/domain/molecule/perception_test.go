package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bondBetween(t *testing.T, s *Structure, i, j int) Bond {
	t.Helper()
	b, ok := s.BondBetween(i, j)
	require.True(t, ok, "no bond %d-%d", i, j)
	return b
}

func TestPerception_Ethanol(t *testing.T) {
	s := mustParse(t, "CCO")

	wantHs := []int{3, 2, 1}
	for i := 0; i < s.NumAtoms(); i++ {
		a := s.Atom(i)
		assert.Equal(t, wantHs[i], a.TotalHs, "atom %d", i)
		assert.Equal(t, HybridizationSP3, a.Hybridization, "atom %d", i)
		assert.False(t, a.IsAromatic)
		assert.False(t, a.InRing)
		assert.Equal(t, ChiralUnspecified, a.ChiralTag)
	}
	assert.Equal(t, 2, s.Atom(1).Degree)

	b := bondBetween(t, s, 1, 2)
	assert.Equal(t, BondSingle, b.Type)
	assert.False(t, b.IsConjugated)
	assert.False(t, b.InRing)
	assert.Equal(t, StereoNone, b.Stereo)
}

func TestPerception_AromaticRings(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
		atoms  int
	}{
		{"benzene", "c1ccccc1", 6},
		{"kekule benzene", "C1=CC=CC=C1", 6},
		{"explicit double benzene", "c1=cc=cc=c1", 6},
		{"pyridine", "c1ccncc1", 6},
		{"pyrrole", "c1cc[nH]c1", 5},
		{"furan", "c1ccoc1", 5},
		{"thiophene", "c1ccsc1", 5},
		{"kekule pyrrole", "C1=CC=CN1", 5},
		{"indole", "c1ccc2[nH]ccc2c1", 9},
		{"kekule naphthalene", "C1=CC=C2C=CC=CC2=C1", 10},
		{"2-pyridone", "O=c1cccc[nH]1", 6},
		{"N-methylpyridinium", "C[n+]1ccccc1", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustParse(t, tt.smiles)
			aromatic := 0
			for i := 0; i < s.NumAtoms(); i++ {
				if s.Atom(i).IsAromatic {
					aromatic++
					assert.True(t, s.Atom(i).InRing)
					assert.Equal(t, HybridizationSP2, s.Atom(i).Hybridization, "atom %d", i)
				}
			}
			assert.Equal(t, tt.atoms, aromatic)
		})
	}
}

func TestPerception_Benzene(t *testing.T) {
	s := mustParse(t, "c1ccccc1")
	for i := 0; i < 6; i++ {
		assert.Equal(t, 1, s.Atom(i).TotalHs)
		b := bondBetween(t, s, i, (i+1)%6)
		assert.Equal(t, BondAromatic, b.Type)
		assert.True(t, b.IsConjugated)
		assert.True(t, b.InRing)
	}
}

func TestPerception_HeteroatomHydrogens(t *testing.T) {
	assert.Equal(t, 0, mustParse(t, "c1ccncc1").Atom(3).TotalHs)
	assert.Equal(t, 1, mustParse(t, "c1cc[nH]c1").Atom(3).TotalHs)
	assert.Equal(t, 0, mustParse(t, "c1ccoc1").Atom(3).TotalHs)
	assert.Equal(t, 0, mustParse(t, "O=c1cccc[nH]1").Atom(1).TotalHs)
}

func TestPerception_NonAromaticRings(t *testing.T) {
	for _, smi := range []string{"C1CCCCC1", "C1=CCCCC1", "C1=CCC=C1", "O=C1C=CC(=O)C=C1", "c1ccc1"} {
		t.Run(smi, func(t *testing.T) {
			s := mustParse(t, smi)
			for i := 0; i < s.NumAtoms(); i++ {
				assert.False(t, s.Atom(i).IsAromatic, "atom %d", i)
			}
			assert.True(t, s.Atom(1).InRing)
		})
	}

	cbd := mustParse(t, "c1ccc1")
	types := map[BondType]int{}
	for k := 0; k < cbd.NumBonds(); k++ {
		types[cbd.Bond(k).Type]++
	}
	assert.Equal(t, map[BondType]int{BondSingle: 2, BondDouble: 2}, types)
}

func TestPerception_RingMembership(t *testing.T) {
	s := mustParse(t, "c1ccccc1CC")
	assert.True(t, s.Atom(5).InRing)
	assert.False(t, s.Atom(6).InRing)
	assert.False(t, bondBetween(t, s, 5, 6).InRing)
	assert.True(t, bondBetween(t, s, 0, 5).InRing)

	biphenyl := mustParse(t, "c1ccccc1-c1ccccc1")
	link := bondBetween(t, biphenyl, 5, 6)
	assert.Equal(t, BondSingle, link.Type)
	assert.False(t, link.InRing)
	assert.True(t, link.IsConjugated)

	implicitLink := bondBetween(t, mustParse(t, "c1ccccc1c1ccccc1"), 5, 6)
	assert.Equal(t, BondSingle, implicitLink.Type)
}

func TestPerception_Conjugation(t *testing.T) {
	butadiene := mustParse(t, "C=CC=C")
	for k := 0; k < butadiene.NumBonds(); k++ {
		assert.True(t, butadiene.Bond(k).IsConjugated, "bond %d", k)
	}

	propene := mustParse(t, "CC=C")
	for k := 0; k < propene.NumBonds(); k++ {
		assert.False(t, propene.Bond(k).IsConjugated, "bond %d", k)
	}

	acid := mustParse(t, "CC(=O)O")
	assert.False(t, bondBetween(t, acid, 0, 1).IsConjugated)
	assert.True(t, bondBetween(t, acid, 1, 2).IsConjugated)
	assert.True(t, bondBetween(t, acid, 1, 3).IsConjugated)

	toluene := mustParse(t, "Cc1ccccc1")
	assert.False(t, bondBetween(t, toluene, 0, 1).IsConjugated)
}

func TestPerception_Hybridization(t *testing.T) {
	tests := []struct {
		smiles string
		atom   int
		want   Hybridization
	}{
		{"CC", 0, HybridizationSP3},
		{"C=C", 0, HybridizationSP2},
		{"C#C", 0, HybridizationSP},
		{"C#N", 1, HybridizationSP},
		{"CC(=O)N", 3, HybridizationSP2},
		{"CC(=O)N", 2, HybridizationSP2},
		{"CCN", 2, HybridizationSP3},
		{"[NH4+]", 0, HybridizationSP3},
		{"[Na+]", 0, HybridizationS},
		{"[H][H]", 0, HybridizationS},
		{"*C", 0, HybridizationUnspecified},
		{"C=C=C", 1, HybridizationSP},
		{"F[S](F)(F)(F)(F)F", 1, HybridizationSP3D2},
		{"FP(F)(F)(F)F", 1, HybridizationSP3D},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.smiles).Atom(tt.atom).Hybridization)
		})
	}
}

func TestPerception_BondTypes(t *testing.T) {
	assert.Equal(t, BondDouble, mustParse(t, "C=C").Bond(0).Type)
	assert.Equal(t, BondTriple, mustParse(t, "C#C").Bond(0).Type)
	assert.Equal(t, BondQuadruple, mustParse(t, "[C]$[C]").Bond(0).Type)
	assert.Equal(t, BondSingle, mustParse(t, "C/C").Bond(0).Type)
}

func TestPerception_DoubleBondStereo(t *testing.T) {
	tests := []struct {
		smiles string
		bond   [2]int
		want   BondStereo
	}{
		{"F/C=C/F", [2]int{1, 2}, StereoE},
		{"F/C=C\\F", [2]int{1, 2}, StereoZ},
		{"F\\C=C/F", [2]int{1, 2}, StereoZ},
		{"C(\\F)=C/F", [2]int{0, 2}, StereoE},
		{"C/C=C/C", [2]int{1, 2}, StereoE},
		{"FC=CF", [2]int{1, 2}, StereoNone},
		{"F/C=CF", [2]int{1, 2}, StereoNone},
		{"F/C(Cl)=C/F", [2]int{1, 3}, StereoZ},
		{"C/C(C)=C/F", [2]int{1, 3}, StereoNone},
		{"C1=CCCCC/1", [2]int{0, 1}, StereoNone},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			s := mustParse(t, tt.smiles)
			b := bondBetween(t, s, tt.bond[0], tt.bond[1])
			assert.Equal(t, BondDouble, b.Type)
			assert.Equal(t, tt.want, b.Stereo)
		})
	}
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "SP3D2", HybridizationSP3D2.String())
	assert.Equal(t, "OTHER", HybridizationOther.String())
	assert.Equal(t, "CHI_TETRAHEDRAL_CCW", ChiralTetrahedralCCW.String())
	assert.Equal(t, "AROMATIC", BondAromatic.String())
	assert.Equal(t, "QUADRUPLE", BondQuadruple.String())
	assert.Equal(t, "STEREOZ", StereoZ.String())
	assert.Equal(t, "STEREONONE", BondStereo(42).String())
}
