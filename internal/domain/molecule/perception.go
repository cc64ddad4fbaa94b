package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// defaultValences lists the allowed valences per element, ascending.  The
// organic subset uses them for implicit hydrogens; the rest only bound
// charge-adjusted valence checks and radical counts.
var defaultValences = map[int][]int{
	1:  {1},
	5:  {3},
	6:  {4},
	7:  {3},
	8:  {2},
	9:  {1},
	14: {4},
	15: {3, 5, 7},
	16: {2, 4, 6},
	17: {1},
	33: {3, 5},
	34: {2, 4, 6},
	35: {1},
	52: {2, 4, 6},
	53: {1, 3, 5},
}

// enforcedValence is the set of elements whose valence is checked.
var enforcedValence = map[int]bool{
	1: true, 5: true, 6: true, 7: true, 8: true, 9: true,
	14: true, 15: true, 16: true, 17: true, 35: true, 53: true,
}

// kekulizeBudget caps the matching search on pathological aromatic systems.
const kekulizeBudget = 100000

// adjustValence shifts an allowed valence for a formal charge, treating a
// charged atom like its isoelectronic neighbour.
func adjustValence(atomicNum, charge, valence int) int {
	switch atomicNum {
	case 5:
		return valence - charge
	case 1, 6, 14:
		return valence - abs(charge)
	default:
		return valence + charge
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type adjEntry struct {
	nbr  int
	bond int
}

type ring struct {
	atoms []int
	bonds []int
}

// perceiver carries the working state of one perception pass.  Bond orders
// are kept in Kekulé form throughout; aromatic flags are layered on top.
type perceiver struct {
	table ElementTable
	atoms []rawAtom
	bonds []rawBond
	adj   [][]adjEntry
	index map[[2]int]int

	hs       []int
	order    []int
	aroAtom  []bool
	aroBond  []bool
	ringAtom []bool
	ringBond []bool
	ringSize []int
	rings    []ring
	conj     []bool
	radicals []int
}

// perceive turns raw parse output into a Structure or reports why the input
// is not a valid molecule.
func perceive(atoms []rawAtom, bonds []rawBond) (*Structure, error) {
	p := newPerceiver(atoms, bonds)
	p.findRingBonds()
	if err := p.applyAromaticInput(); err != nil {
		return nil, err
	}
	p.assignImplicitHs()
	if err := p.kekulize(); err != nil {
		return nil, err
	}
	if err := p.checkValences(); err != nil {
		return nil, err
	}
	p.findRings()
	p.perceiveAromaticity()
	p.assignRadicals()
	p.markConjugation()
	p.cleanChirality()

	return newStructure(p.buildAtoms(), p.buildBonds()).withoutHydrogenAtoms(), nil
}

func newPerceiver(atoms []rawAtom, bonds []rawBond) *perceiver {
	n, m := len(atoms), len(bonds)
	p := &perceiver{
		atoms:    atoms,
		bonds:    bonds,
		adj:      make([][]adjEntry, n),
		index:    make(map[[2]int]int, m),
		hs:       make([]int, n),
		order:    make([]int, m),
		aroAtom:  make([]bool, n),
		aroBond:  make([]bool, m),
		ringAtom: make([]bool, n),
		ringBond: make([]bool, m),
		ringSize: make([]int, m),
		conj:     make([]bool, m),
		radicals: make([]int, n),
	}
	for k, b := range bonds {
		p.adj[b.begin] = append(p.adj[b.begin], adjEntry{nbr: b.end, bond: k})
		p.adj[b.end] = append(p.adj[b.end], adjEntry{nbr: b.begin, bond: k})
		p.index[[2]int{min(b.begin, b.end), max(b.begin, b.end)}] = k
	}
	return p
}

func (p *perceiver) valence(i int) int {
	v := p.hs[i]
	for _, e := range p.adj[i] {
		v += p.order[e.bond]
	}
	return v
}

// ---------------------------------------------------------------------------
// Rings
// ---------------------------------------------------------------------------

// findRingBonds marks every bond that is not a bridge.  A bond lies on a ring
// iff its endpoints stay connected without it.
func (p *perceiver) findRingBonds() {
	n := len(p.atoms)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	bridge := make([]bool, len(p.bonds))
	timer := 0

	var dfs func(u, parentBond int)
	dfs = func(u, parentBond int) {
		disc[u], low[u] = timer, timer
		timer++
		for _, e := range p.adj[u] {
			if e.bond == parentBond {
				continue
			}
			if disc[e.nbr] < 0 {
				dfs(e.nbr, e.bond)
				low[u] = min(low[u], low[e.nbr])
				if low[e.nbr] > disc[u] {
					bridge[e.bond] = true
				}
			} else {
				low[u] = min(low[u], disc[e.nbr])
			}
		}
	}
	for i := 0; i < n; i++ {
		if disc[i] < 0 {
			dfs(i, -1)
		}
	}

	for k, b := range p.bonds {
		if !bridge[k] {
			p.ringBond[k] = true
			p.ringAtom[b.begin] = true
			p.ringAtom[b.end] = true
		}
	}
}

// findRings records the smallest ring through every ring bond.
func (p *perceiver) findRings() {
	seen := make(map[string]bool)
	for k, b := range p.bonds {
		if !p.ringBond[k] {
			continue
		}
		path := p.shortestPath(b.begin, b.end, k)
		if len(path) == 0 {
			continue
		}
		p.ringSize[k] = len(path)

		r := ring{atoms: path, bonds: make([]int, 0, len(path))}
		for i := 0; i+1 < len(path); i++ {
			r.bonds = append(r.bonds, p.index[[2]int{min(path[i], path[i+1]), max(path[i], path[i+1])}])
		}
		r.bonds = append(r.bonds, k)

		sorted := append([]int(nil), path...)
		sort.Ints(sorted)
		parts := make([]string, len(sorted))
		for i, a := range sorted {
			parts[i] = strconv.Itoa(a)
		}
		key := strings.Join(parts, ",")
		if !seen[key] {
			seen[key] = true
			p.rings = append(p.rings, r)
		}
	}
}

// shortestPath returns the atoms of the shortest from→to path that does not
// use bond skip, endpoints included.
func (p *perceiver) shortestPath(from, to, skip int) []int {
	prev := make([]int, len(p.atoms))
	for i := range prev {
		prev[i] = -2
	}
	prev[from] = -1
	queue := []int{from}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if u == to {
			break
		}
		for _, e := range p.adj[u] {
			if e.bond == skip || !p.ringBond[e.bond] || prev[e.nbr] != -2 {
				continue
			}
			prev[e.nbr] = u
			queue = append(queue, e.nbr)
		}
	}
	if prev[to] == -2 {
		return nil
	}
	var path []int
	for v := to; v != -1; v = prev[v] {
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ---------------------------------------------------------------------------
// Aromatic input, hydrogens, Kekulé form, valence
// ---------------------------------------------------------------------------

func (p *perceiver) applyAromaticInput() error {
	for k, b := range p.bonds {
		p.order[k] = b.order.order()
		if b.order == BondAromatic && p.ringBond[k] && p.atoms[b.begin].aromatic && p.atoms[b.end].aromatic {
			p.aroBond[k] = true
		}
	}
	for i, a := range p.atoms {
		if !a.aromatic {
			continue
		}
		hasAromaticBond := false
		for _, e := range p.adj[i] {
			hasAromaticBond = hasAromaticBond || p.aroBond[e.bond]
		}
		if !p.ringAtom[i] || !hasAromaticBond {
			return invalidf("non-ring atom %d marked aromatic", i)
		}
	}
	return nil
}

// assignImplicitHs fills hydrogen counts.  Bracket atoms carry their written
// count; organic-subset atoms take the lowest default valence that fits.
func (p *perceiver) assignImplicitHs() {
	for i, a := range p.atoms {
		if a.bracket || a.atomicNum == 0 {
			p.hs[i] = a.hCount
			continue
		}
		vals := defaultValences[a.atomicNum]
		if len(vals) == 0 {
			continue
		}
		arom, other, hasDouble := 0, 0, false
		for _, e := range p.adj[i] {
			if p.aroBond[e.bond] {
				arom++
				continue
			}
			other += p.order[e.bond]
			hasDouble = hasDouble || p.order[e.bond] >= 2
		}
		if a.aromatic {
			v := arom + other
			if arom > 0 && !hasDouble {
				v++
			}
			p.hs[i] = max(0, vals[0]-v)
			continue
		}
		for _, v := range vals {
			if v >= other {
				p.hs[i] = v - other
				break
			}
		}
	}
}

// kekulize assigns alternating double bonds to the aromatic input so that
// every aromatic atom short of its valence gets exactly one.
func (p *perceiver) kekulize() error {
	needs := make([]bool, len(p.atoms))
	for i, a := range p.atoms {
		if !a.aromatic {
			continue
		}
		vals := defaultValences[a.atomicNum]
		if len(vals) == 0 {
			continue
		}
		current := p.hs[i]
		for _, e := range p.adj[i] {
			if p.aroBond[e.bond] {
				current++
			} else {
				current += p.order[e.bond]
			}
		}
		needs[i] = adjustValence(a.atomicNum, a.charge, vals[0])-current >= 1
	}

	matched := make([]int, len(p.atoms))
	for i := range matched {
		matched[i] = -1
	}
	budget := kekulizeBudget
	if !p.match(needs, matched, &budget) {
		return invalidf("can't kekulize aromatic system")
	}

	for k := range p.bonds {
		if p.aroBond[k] {
			p.order[k] = 1
			p.aroBond[k] = false
		}
	}
	for _, k := range matched {
		if k >= 0 {
			p.order[k] = 2
		}
	}
	return nil
}

// match is a most-constrained-first backtracking perfect matching over the
// aromatic bonds between atoms that need a double bond.
func (p *perceiver) match(needs []bool, matched []int, budget *int) bool {
	*budget--
	if *budget < 0 {
		return false
	}
	best, bestOptions := -1, 0
	for i, need := range needs {
		if !need || matched[i] >= 0 {
			continue
		}
		options := 0
		for _, e := range p.adj[i] {
			if p.aroBond[e.bond] && needs[e.nbr] && matched[e.nbr] < 0 {
				options++
			}
		}
		if options == 0 {
			return false
		}
		if best < 0 || options < bestOptions {
			best, bestOptions = i, options
		}
	}
	if best < 0 {
		return true
	}
	for _, e := range p.adj[best] {
		if !p.aroBond[e.bond] || !needs[e.nbr] || matched[e.nbr] >= 0 {
			continue
		}
		matched[best], matched[e.nbr] = e.bond, e.bond
		if p.match(needs, matched, budget) {
			return true
		}
		matched[best], matched[e.nbr] = -1, -1
	}
	return false
}

func (p *perceiver) checkValences() error {
	for i, a := range p.atoms {
		if !enforcedValence[a.atomicNum] {
			continue
		}
		allowed := -1
		for _, base := range defaultValences[a.atomicNum] {
			allowed = max(allowed, adjustValence(a.atomicNum, a.charge, base))
		}
		if v := p.valence(i); v > allowed {
			return invalidf("explicit valence for atom %d %s, %d, is greater than permitted", i, a.symbol, v)
		}
	}
	return nil
}

func (p *perceiver) assignRadicals() {
	for i, a := range p.atoms {
		if !a.bracket {
			continue
		}
		v := p.valence(i)
		for _, base := range defaultValences[a.atomicNum] {
			if t := adjustValence(a.atomicNum, a.charge, base); t >= v {
				p.radicals[i] = t - v
				break
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Aromaticity
// ---------------------------------------------------------------------------

// piElectrons returns the electrons atom i donates to a ring π system and
// whether it can take part in one at all.
func (p *perceiver) piElectrons(i int) (int, bool) {
	a := p.atoms[i]
	if !p.ringAtom[i] || len(p.adj[i])+p.hs[i] > 3 {
		return 0, false
	}
	doubles, ringDouble, exo := 0, false, -1
	for _, e := range p.adj[i] {
		switch p.order[e.bond] {
		case 1:
		case 2:
			doubles++
			if p.ringBond[e.bond] {
				ringDouble = true
			} else {
				exo = e.nbr
			}
		default:
			return 0, false
		}
	}
	if doubles > 1 {
		return 0, false
	}
	if doubles == 1 {
		if ringDouble {
			return 1, true
		}
		switch p.atoms[exo].atomicNum {
		case 7, 8, 16:
			return 0, true
		}
		return 0, false
	}

	connections := len(p.adj[i]) + p.hs[i]
	switch a.atomicNum {
	case 6:
		switch a.charge {
		case -1:
			return 2, true
		case 1:
			return 0, true
		}
	case 7, 15:
		if (a.charge == 0 && connections == 3) || (a.charge == -1 && connections == 2) {
			return 2, true
		}
	case 8, 16, 34, 52:
		if a.charge == 0 && connections == 2 {
			return 2, true
		}
	case 5:
		if a.charge == 0 && connections == 3 {
			return 0, true
		}
	}
	return 0, false
}

func huckel(atoms []int, electrons []int, candidate []bool) bool {
	total := 0
	for _, a := range atoms {
		if !candidate[a] {
			return false
		}
		total += electrons[a]
	}
	return total >= 2 && total%4 == 2
}

// perceiveAromaticity marks single rings, then pairs of bond-sharing rings,
// that satisfy the 4n+2 rule.
func (p *perceiver) perceiveAromaticity() {
	n := len(p.atoms)
	electrons := make([]int, n)
	candidate := make([]bool, n)
	for i := 0; i < n; i++ {
		electrons[i], candidate[i] = p.piElectrons(i)
	}

	aromatic := make([]bool, len(p.rings))
	for r, rg := range p.rings {
		if huckel(rg.atoms, electrons, candidate) {
			aromatic[r] = true
			p.markAromatic(rg.atoms, rg.bonds)
		}
	}

	for r1 := range p.rings {
		for r2 := r1 + 1; r2 < len(p.rings); r2++ {
			if aromatic[r1] && aromatic[r2] {
				continue
			}
			atoms, bonds, shared := unionRings(p.rings[r1], p.rings[r2])
			if shared && huckel(atoms, electrons, candidate) {
				p.markAromatic(atoms, bonds)
			}
		}
	}
}

func (p *perceiver) markAromatic(atoms, bonds []int) {
	for _, a := range atoms {
		p.aroAtom[a] = true
	}
	for _, b := range bonds {
		p.aroBond[b] = true
	}
}

// unionRings merges two rings and reports whether they share a bond.
func unionRings(a, b ring) ([]int, []int, bool) {
	inA := make(map[int]bool, len(a.bonds))
	for _, k := range a.bonds {
		inA[k] = true
	}
	shared := false
	bonds := append([]int(nil), a.bonds...)
	for _, k := range b.bonds {
		if inA[k] {
			shared = true
			continue
		}
		bonds = append(bonds, k)
	}
	if !shared {
		return nil, nil, false
	}
	seen := make(map[int]bool, len(a.atoms)+len(b.atoms))
	var atoms []int
	for _, x := range append(append([]int(nil), a.atoms...), b.atoms...) {
		if !seen[x] {
			seen[x] = true
			atoms = append(atoms, x)
		}
	}
	return atoms, bonds, true
}

// ---------------------------------------------------------------------------
// Conjugation and hybridization
// ---------------------------------------------------------------------------

func (p *perceiver) isMultiple(k int) bool {
	return p.aroBond[k] || p.order[k] >= 2
}

func (p *perceiver) conjugationCandidate(i int) bool {
	z := p.atoms[i].atomicNum
	nouter := outerElectrons(z)
	return z <= 10 || (nouter != 5 && nouter != 6) || (nouter == 6 && len(p.adj[i]) < 2)
}

// markConjugation flags a multiple bond and its neighbouring bond as
// conjugated when both sit on atoms with at most three substituents.
func (p *perceiver) markConjugation() {
	for i := range p.atoms {
		if !p.conjugationCandidate(i) {
			continue
		}
		if sub := len(p.adj[i]) + p.hs[i]; sub < 2 || sub > 3 {
			continue
		}
		for _, e1 := range p.adj[i] {
			if !p.isMultiple(e1.bond) {
				continue
			}
			for _, e2 := range p.adj[i] {
				if e1.bond == e2.bond {
					continue
				}
				j := e2.nbr
				if len(p.adj[j])+p.hs[j] > 3 || !p.conjugationCandidate(j) {
					continue
				}
				p.conj[e1.bond] = true
				p.conj[e2.bond] = true
			}
		}
	}
}

func (p *perceiver) hasConjugatedBond(i int) bool {
	for _, e := range p.adj[i] {
		if p.conj[e.bond] {
			return true
		}
	}
	return false
}

// hybridization derives the state from the steric number: neighbours,
// hydrogens, lone pairs and radicals.
func (p *perceiver) hybridization(i int) Hybridization {
	a := p.atoms[i]
	if a.atomicNum == 0 {
		return HybridizationUnspecified
	}
	degree := len(p.adj[i]) + p.hs[i]
	orbitals := degree
	if a.atomicNum > 1 {
		nouter := outerElectrons(a.atomicNum)
		valence := p.valence(i)
		free := nouter - (valence + a.charge)
		if valence+nouter-a.charge < 8 {
			orbitals = degree + (free-p.radicals[i])/2 + p.radicals[i]
		} else {
			orbitals = degree + free/2
		}
	}

	switch orbitals {
	case 0, 1:
		return HybridizationS
	case 2:
		return HybridizationSP
	case 3:
		return HybridizationSP2
	case 4:
		if degree > 3 || !p.hasConjugatedBond(i) {
			return HybridizationSP3
		}
		return HybridizationSP2
	case 5:
		return HybridizationSP3D
	case 6:
		return HybridizationSP3D2
	default:
		return HybridizationUnspecified
	}
}

// ---------------------------------------------------------------------------
// Double-bond stereo
// ---------------------------------------------------------------------------

// priorityKey ranks neighbour y of x by atomic number, then by the sorted
// atomic numbers of y's own substituents.
func (p *perceiver) priorityKey(y, x int) []int {
	key := []int{p.atoms[y].atomicNum}
	var next []int
	for _, e := range p.adj[y] {
		if e.nbr != x {
			next = append(next, p.atoms[e.nbr].atomicNum)
		}
	}
	for h := 0; h < p.hs[y]; h++ {
		next = append(next, 1)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(next)))
	return append(key, next...)
}

func compareKeys(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	return len(a) - len(b)
}

// endSide returns on which side of the double bond x=partner the
// highest-priority substituent of x lies, as written with '/' and '\'.
func (p *perceiver) endSide(x, partner int) (int, bool) {
	var subs []int
	ref, refSide := -1, 0
	for _, e := range p.adj[x] {
		if e.nbr == partner {
			continue
		}
		subs = append(subs, e.nbr)
		rb := p.bonds[e.bond]
		if ref >= 0 || rb.dir == 0 {
			continue
		}
		up := rb.dir == '/'
		if rb.dirFrom != x {
			up = !up
		}
		ref, refSide = e.nbr, -1
		if up {
			refSide = 1
		}
	}
	if ref < 0 {
		return 0, false
	}

	top, tie := subs[0], false
	for _, s := range subs[1:] {
		switch c := compareKeys(p.priorityKey(s, x), p.priorityKey(top, x)); {
		case c > 0:
			top, tie = s, false
		case c == 0:
			tie = true
		}
	}
	if tie {
		return 0, false
	}
	if top == ref {
		return refSide, true
	}
	return -refSide, true
}

func (p *perceiver) stereo(k int) BondStereo {
	if p.aroBond[k] || p.order[k] != 2 {
		return StereoNone
	}
	if p.ringBond[k] && p.ringSize[k] < 8 {
		return StereoNone
	}
	b := p.bonds[k]
	su, ok1 := p.endSide(b.begin, b.end)
	sv, ok2 := p.endSide(b.end, b.begin)
	if !ok1 || !ok2 {
		return StereoNone
	}
	if su == sv {
		return StereoZ
	}
	return StereoE
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func (p *perceiver) buildAtoms() []Atom {
	out := make([]Atom, len(p.atoms))
	for i, a := range p.atoms {
		mass := p.table.Mass(a.atomicNum)
		if a.isotope > 0 {
			mass = p.table.IsotopeMass(a.atomicNum, a.isotope)
		}
		out[i] = Atom{
			Index:         i,
			Symbol:        a.symbol,
			AtomicNum:     a.atomicNum,
			Isotope:       a.isotope,
			FormalCharge:  a.charge,
			Degree:        len(p.adj[i]),
			TotalHs:       p.hs[i],
			Hybridization: p.hybridization(i),
			IsAromatic:    p.aroAtom[i],
			InRing:        p.ringAtom[i],
			Mass:          mass,
			ChiralTag:     a.chiral,
			AtomClass:     a.class,
		}
	}
	return out
}

func (p *perceiver) buildBonds() []Bond {
	out := make([]Bond, len(p.bonds))
	for k, b := range p.bonds {
		bt := BondSingle
		switch {
		case p.aroBond[k]:
			bt = BondAromatic
		case p.order[k] == 2:
			bt = BondDouble
		case p.order[k] == 3:
			bt = BondTriple
		case p.order[k] == 4:
			bt = BondQuadruple
		}
		out[k] = Bond{
			Index:        k,
			Begin:        b.begin,
			End:          b.end,
			Type:         bt,
			IsConjugated: p.conj[k],
			InRing:       p.ringBond[k],
			Stereo:       p.stereo(k),
		}
	}
	return out
}
