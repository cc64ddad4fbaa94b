package molecule

import "sort"

// ---------------------------------------------------------------------------
// Tetrahedral centres
// ---------------------------------------------------------------------------

// cleanChirality clears tetrahedral tags written on atoms that cannot be
// stereocentres: fewer than four substituents, more than one hydrogen, or two
// substituents that are topologically equivalent.  A pair of equivalent ring
// neighbours is tolerated when another tagged atom shares a ring with the
// centre, which keeps cis/trans ring stereo such as C[C@H]1CC[C@@H](C)CC1.
func (p *perceiver) cleanChirality() {
	tagged := make([]bool, len(p.atoms))
	found := false
	for i, a := range p.atoms {
		if a.chiral == ChiralTetrahedralCW || a.chiral == ChiralTetrahedralCCW {
			tagged[i] = true
			found = true
		}
	}
	if !found {
		return
	}

	classes := p.symmetryClasses()
	for i := range p.atoms {
		if tagged[i] && !p.stereoCentre(i, classes, tagged) {
			p.atoms[i].chiral = ChiralUnspecified
		}
	}
}

// lonePairCentre reports whether a three-coordinate atom of this element
// keeps its tag, the lone pair acting as the fourth substituent.
func lonePairCentre(atomicNum int) bool {
	switch atomicNum {
	case 15, 16, 33, 34:
		return true
	}
	return false
}

func (p *perceiver) stereoCentre(i int, classes []int, tagged []bool) bool {
	deg, hs := len(p.adj[i]), p.hs[i]
	switch {
	case deg+hs == 4 && hs <= 1:
	case deg == 3 && hs == 0 && lonePairCentre(p.atoms[i].atomicNum):
	default:
		return false
	}

	byClass := make(map[int][]adjEntry, deg)
	for _, e := range p.adj[i] {
		byClass[classes[e.nbr]] = append(byClass[classes[e.nbr]], e)
	}
	if len(byClass) == deg {
		return true
	}

	// Only a single tied pair of ring neighbours can still be a ring centre.
	if len(byClass) != deg-1 || !p.ringAtom[i] {
		return false
	}
	for _, group := range byClass {
		if len(group) == 2 && (!p.ringBond[group[0].bond] || !p.ringBond[group[1].bond]) {
			return false
		}
	}
	for _, r := range p.rings {
		if !containsAtom(r.atoms, i) {
			continue
		}
		for _, j := range r.atoms {
			if j != i && tagged[j] {
				return true
			}
		}
	}
	return false
}

func containsAtom(atoms []int, i int) bool {
	for _, a := range atoms {
		if a == i {
			return true
		}
	}
	return false
}

// symmetryClasses partitions the atoms into topologically equivalent classes
// by refining an atom invariant with the classes of its neighbours until the
// partition stops splitting.
func (p *perceiver) symmetryClasses() []int {
	n := len(p.atoms)
	keys := make([][]int, n)
	for i, a := range p.atoms {
		aro := 0
		if p.aroAtom[i] {
			aro = 1
		}
		keys[i] = []int{a.atomicNum, a.isotope, a.charge, len(p.adj[i]), p.hs[i], aro}
	}
	classes, count := rankKeys(keys)

	for iter := 0; iter < n; iter++ {
		for i := range p.atoms {
			nbrs := make([]int, 0, len(p.adj[i]))
			for _, e := range p.adj[i] {
				code := p.order[e.bond]
				if p.aroBond[e.bond] {
					code = 4
				}
				nbrs = append(nbrs, code*(n+1)+classes[e.nbr])
			}
			sort.Ints(nbrs)
			keys[i] = append([]int{classes[i]}, nbrs...)
		}
		next, nextCount := rankKeys(keys)
		classes = next
		if nextCount == count {
			break
		}
		count = nextCount
	}
	return classes
}

// rankKeys assigns dense ranks to keys, equal keys sharing a rank, and
// returns the number of distinct ranks.
func rankKeys(keys [][]int) ([]int, int) {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return compareKeys(keys[idx[a]], keys[idx[b]]) < 0
	})

	ranks := make([]int, len(keys))
	count := 0
	for pos, i := range idx {
		if pos == 0 || compareKeys(keys[idx[pos-1]], keys[i]) != 0 {
			count++
		}
		ranks[i] = count - 1
	}
	return ranks, count
}
