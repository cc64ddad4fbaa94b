package molecule

import (
	"fmt"
	"strings"

	"github.com/turtacn/molgraph/pkg/errors"
)

// ErrInvalidStructure is returned (with a detail) for every SMILES that does
// not describe a usable molecule.  Match it with errors.Is.
var ErrInvalidStructure = errors.New(errors.ErrCodeMoleculeInvalidSMILES, "invalid molecular structure")

func invalidf(format string, args ...interface{}) error {
	return ErrInvalidStructure.WithDetail(fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Raw parse output
// ---------------------------------------------------------------------------

// rawAtom is an atom as written, before perception.
type rawAtom struct {
	symbol    string
	atomicNum int
	aromatic  bool
	bracket   bool
	isotope   int
	charge    int
	hCount    int
	chiral    ChiralTag
	class     int
}

// rawBond is a bond as written.  Implicit bonds between two aromatic atoms
// and ':' bonds carry BondAromatic.
type rawBond struct {
	begin    int
	end      int
	order    BondType
	implicit bool

	// dir is '/' or '\\' when a directional single bond was written; dirFrom
	// is the atom the symbol is read from.
	dir     byte
	dirFrom int
}

type branchMark struct {
	atom        int
	atomsAtOpen int
}

type ringMark struct {
	atom int
	bond byte
}

// ---------------------------------------------------------------------------
// Tokeniser
// ---------------------------------------------------------------------------

type smilesParser struct {
	src      string
	pos      int
	table    ElementTable
	atoms    []rawAtom
	bonds    []rawBond
	bonded   map[[2]int]struct{}
	prev     int
	pending  byte
	branches []branchMark
	rings    map[int]ringMark
}

// parseSMILES tokenises smiles into raw atoms and bonds.  It checks grammar
// only; chemistry is validated by perceive.
func parseSMILES(smiles string) ([]rawAtom, []rawBond, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, nil, invalidf("empty SMILES")
	}
	p := &smilesParser{
		src:    s,
		prev:   -1,
		bonded: make(map[[2]int]struct{}),
		rings:  make(map[int]ringMark),
	}
	if err := p.run(); err != nil {
		return nil, nil, err
	}
	return p.atoms, p.bonds, nil
}

func (p *smilesParser) errorf(format string, args ...interface{}) error {
	return invalidf("%s at position %d", fmt.Sprintf(format, args...), p.pos)
}

func (p *smilesParser) run() error {
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case ch == '(':
			if p.prev < 0 {
				return p.errorf("branch opened without a preceding atom")
			}
			if p.pending != 0 {
				return p.errorf("bond symbol '%c' before branch", p.pending)
			}
			p.branches = append(p.branches, branchMark{atom: p.prev, atomsAtOpen: len(p.atoms)})
			p.pos++

		case ch == ')':
			if len(p.branches) == 0 {
				return p.errorf("unbalanced parenthesis")
			}
			if p.pending != 0 {
				return p.errorf("dangling bond '%c'", p.pending)
			}
			top := p.branches[len(p.branches)-1]
			if len(p.atoms) == top.atomsAtOpen {
				return p.errorf("empty branch")
			}
			p.branches = p.branches[:len(p.branches)-1]
			p.prev = top.atom
			p.pos++

		case isBondSymbol(ch):
			if p.prev < 0 {
				return p.errorf("bond symbol '%c' without a preceding atom", ch)
			}
			if p.pending != 0 {
				return p.errorf("consecutive bond symbols")
			}
			p.pending = ch
			p.pos++

		case ch == '.':
			if p.pending != 0 {
				return p.errorf("dangling bond '%c'", p.pending)
			}
			if p.prev < 0 {
				return p.errorf("empty fragment")
			}
			if len(p.branches) > 0 {
				return p.errorf("fragment separator inside branch")
			}
			p.prev = -1
			p.pos++

		case ch == '%' || isDigit(ch):
			n, err := p.ringNumber()
			if err != nil {
				return err
			}
			if err := p.ringClosure(n); err != nil {
				return err
			}

		case ch == '[':
			atom, err := p.bracketAtom()
			if err != nil {
				return err
			}
			if err := p.addAtom(atom); err != nil {
				return err
			}

		case ch == '*':
			p.pos++
			if err := p.addAtom(rawAtom{symbol: "*"}); err != nil {
				return err
			}

		default:
			atom, ok := p.organicAtom()
			if !ok {
				return p.errorf("unexpected character '%c'", ch)
			}
			if err := p.addAtom(atom); err != nil {
				return err
			}
		}
	}

	switch {
	case p.pending != 0:
		return invalidf("dangling bond '%c' at end of SMILES", p.pending)
	case len(p.branches) > 0:
		return invalidf("unbalanced parenthesis: %d branch(es) left open", len(p.branches))
	case len(p.rings) > 0:
		lowest := -1
		for n := range p.rings {
			if lowest < 0 || n < lowest {
				lowest = n
			}
		}
		return invalidf("unclosed ring %d", lowest)
	case p.prev < 0:
		return invalidf("empty fragment at end of SMILES")
	}
	return nil
}

func (p *smilesParser) addAtom(a rawAtom) error {
	if a.symbol != "*" {
		z, ok := p.table.AtomicNumber(a.symbol)
		if !ok {
			return p.errorf("unknown element %q", a.symbol)
		}
		a.atomicNum = z
	}
	idx := len(p.atoms)
	p.atoms = append(p.atoms, a)
	if p.prev >= 0 {
		if err := p.addBond(p.prev, idx, p.pending, p.prev); err != nil {
			return err
		}
	}
	p.pending = 0
	p.prev = idx
	return nil
}

func (p *smilesParser) addBond(a, b int, sym byte, from int) error {
	if a == b {
		return p.errorf("atom %d bonded to itself", a)
	}
	key := [2]int{min(a, b), max(a, b)}
	if _, dup := p.bonded[key]; dup {
		return p.errorf("duplicate bond between atoms %d and %d", a, b)
	}
	p.bonded[key] = struct{}{}

	bond := rawBond{begin: a, end: b, implicit: sym == 0, order: BondSingle}
	switch sym {
	case 0:
		if p.atoms[a].aromatic && p.atoms[b].aromatic {
			bond.order = BondAromatic
		}
	case '/', '\\':
		bond.dir = sym
		bond.dirFrom = from
	case '=':
		bond.order = BondDouble
	case '#':
		bond.order = BondTriple
	case '$':
		bond.order = BondQuadruple
	case ':':
		bond.order = BondAromatic
	}
	p.bonds = append(p.bonds, bond)
	return nil
}

func (p *smilesParser) ringNumber() (int, error) {
	if p.src[p.pos] != '%' {
		n := int(p.src[p.pos] - '0')
		p.pos++
		return n, nil
	}
	if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
		return 0, p.errorf("'%%' must be followed by two digits")
	}
	n := int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
	p.pos += 3
	return n, nil
}

func (p *smilesParser) ringClosure(n int) error {
	if p.prev < 0 {
		return p.errorf("ring closure %d without a preceding atom", n)
	}
	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringMark{atom: p.prev, bond: p.pending}
		p.pending = 0
		return nil
	}
	delete(p.rings, n)

	sym, from := p.pending, p.prev
	switch {
	case sym == 0:
		sym, from = open.bond, open.atom
	case open.bond != 0 && open.bond != sym && !(isDirection(sym) && isDirection(open.bond)):
		return p.errorf("conflicting bond symbols for ring closure %d", n)
	}
	p.pending = 0
	return p.addBond(open.atom, p.prev, sym, from)
}

// organicAtom reads an organic-subset atom, aromatic or not.
func (p *smilesParser) organicAtom() (rawAtom, bool) {
	rest := p.src[p.pos:]
	for _, two := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, two) {
			p.pos += 2
			return rawAtom{symbol: two}, true
		}
	}
	switch ch := rest[0]; ch {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		p.pos++
		return rawAtom{symbol: string(ch)}, true
	case 'b', 'c', 'n', 'o', 'p', 's':
		p.pos++
		return rawAtom{symbol: strings.ToUpper(string(ch)), aromatic: true}, true
	}
	return rawAtom{}, false
}

// bracketAtom parses [isotope? symbol chiral? hcount? charge? class?].
func (p *smilesParser) bracketAtom() (rawAtom, error) {
	start := p.pos
	closeAt := strings.IndexByte(p.src[start:], ']')
	if closeAt < 0 {
		return rawAtom{}, p.errorf("unclosed bracket atom")
	}
	body := p.src[start+1 : start+closeAt]
	bad := func() (rawAtom, error) {
		return rawAtom{}, p.errorf("invalid bracket atom [%s]", body)
	}

	a := rawAtom{bracket: true}
	i := 0
	for i < len(body) && isDigit(body[i]) {
		a.isotope = a.isotope*10 + int(body[i]-'0')
		i++
	}
	if i >= len(body) {
		return bad()
	}

	switch c := body[i]; {
	case c == '*':
		a.symbol = "*"
		i++
	case isUpper(c):
		if i+1 < len(body) && isLower(body[i+1]) {
			if _, ok := p.table.AtomicNumber(body[i : i+2]); ok {
				a.symbol = body[i : i+2]
				i += 2
				break
			}
		}
		if _, ok := p.table.AtomicNumber(body[i : i+1]); !ok {
			sym := body[i : i+1]
			if i+1 < len(body) && isLower(body[i+1]) {
				sym = body[i : i+2]
			}
			return rawAtom{}, p.errorf("unknown element %q", sym)
		}
		a.symbol = body[i : i+1]
		i++
	case isLower(c):
		for _, sym := range []string{"se", "as", "te", "b", "c", "n", "o", "p", "s"} {
			if strings.HasPrefix(body[i:], sym) {
				a.symbol = strings.ToUpper(sym[:1]) + sym[1:]
				a.aromatic = true
				i += len(sym)
				break
			}
		}
		if a.symbol == "" {
			return bad()
		}
	default:
		return bad()
	}

	if i < len(body) && body[i] == '@' {
		i++
		rest := body[i:]
		switch {
		case strings.HasPrefix(rest, "@"):
			a.chiral = ChiralTetrahedralCW
			i++
		case strings.HasPrefix(rest, "TH1"):
			a.chiral = ChiralTetrahedralCCW
			i += 3
		case strings.HasPrefix(rest, "TH2"):
			a.chiral = ChiralTetrahedralCW
			i += 3
		case strings.HasPrefix(rest, "AL"), strings.HasPrefix(rest, "SP"),
			strings.HasPrefix(rest, "TB"), strings.HasPrefix(rest, "OH"):
			a.chiral = ChiralOther
			i += 2
			for i < len(body) && isDigit(body[i]) {
				i++
			}
		default:
			a.chiral = ChiralTetrahedralCCW
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.hCount = 1
		if i < len(body) && isDigit(body[i]) {
			a.hCount = 0
			for i < len(body) && isDigit(body[i]) {
				a.hCount = a.hCount*10 + int(body[i]-'0')
				i++
			}
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := body[i]
		i++
		switch {
		case i < len(body) && isDigit(body[i]):
			n := 0
			for i < len(body) && isDigit(body[i]) {
				n = n*10 + int(body[i]-'0')
				i++
			}
			a.charge = n
		default:
			a.charge = 1
			for i < len(body) && body[i] == sign {
				a.charge++
				i++
			}
		}
		if sign == '-' {
			a.charge = -a.charge
		}
	}

	if i < len(body) && body[i] == ':' {
		i++
		if i >= len(body) || !isDigit(body[i]) {
			return bad()
		}
		for i < len(body) && isDigit(body[i]) {
			a.class = a.class*10 + int(body[i]-'0')
			i++
		}
	}

	if i != len(body) {
		return bad()
	}
	p.pos = start + closeAt + 1
	return a, nil
}

func isBondSymbol(c byte) bool {
	switch c {
	case '-', '=', '#', '$', ':', '/', '\\':
		return true
	}
	return false
}

func isDirection(c byte) bool { return c == '/' || c == '\\' }
func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isUpper(c byte) bool     { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool     { return c >= 'a' && c <= 'z' }
