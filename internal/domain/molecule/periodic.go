package molecule

// element holds the per-element constants used by perception and
// featurization.  Radii are in Ångström.
type element struct {
	Symbol string
	Mass   float64
	RCov   float64
	RVdW   float64
	NOuter int
}

// elements is indexed by atomic number.  Index 0 is the SMILES wildcard '*'.
// Covalent radii follow Alvarez (2008) up to Cm and Pyykkö (2009) beyond; van
// der Waals radii use the Bondi set for main-group elements, Alvarez (2013)
// elsewhere and 2.0 past Cf where no measurement exists.
var elements = []element{
	{"*", 0, 0, 0, 0},
	{"H", 1.008, 0.31, 1.20, 1},
	{"He", 4.003, 0.28, 1.40, 2},
	{"Li", 6.941, 1.28, 1.82, 1},
	{"Be", 9.012, 0.96, 1.53, 2},
	{"B", 10.812, 0.84, 1.92, 3},
	{"C", 12.011, 0.76, 1.70, 4},
	{"N", 14.007, 0.71, 1.60, 5},
	{"O", 15.999, 0.66, 1.55, 6},
	{"F", 18.998, 0.57, 1.50, 7},
	{"Ne", 20.180, 0.58, 1.54, 8},
	{"Na", 22.990, 1.66, 2.27, 1},
	{"Mg", 24.305, 1.41, 1.73, 2},
	{"Al", 26.982, 1.21, 1.84, 3},
	{"Si", 28.086, 1.11, 2.10, 4},
	{"P", 30.974, 1.07, 1.95, 5},
	{"S", 32.067, 1.05, 1.80, 6},
	{"Cl", 35.453, 1.02, 1.80, 7},
	{"Ar", 39.948, 1.06, 1.88, 8},
	{"K", 39.098, 2.03, 2.75, 1},
	{"Ca", 40.078, 1.76, 2.31, 2},
	{"Sc", 44.956, 1.70, 2.15, 3},
	{"Ti", 47.867, 1.60, 2.11, 4},
	{"V", 50.942, 1.53, 2.07, 5},
	{"Cr", 51.996, 1.39, 2.06, 6},
	{"Mn", 54.938, 1.39, 2.05, 7},
	{"Fe", 55.845, 1.32, 2.04, 8},
	{"Co", 58.933, 1.26, 2.00, 9},
	{"Ni", 58.693, 1.24, 1.97, 10},
	{"Cu", 63.546, 1.32, 1.96, 11},
	{"Zn", 65.390, 1.22, 2.01, 2},
	{"Ga", 69.723, 1.22, 1.87, 3},
	{"Ge", 72.610, 1.20, 2.11, 4},
	{"As", 74.922, 1.19, 1.85, 5},
	{"Se", 78.960, 1.20, 1.90, 6},
	{"Br", 79.904, 1.20, 1.90, 7},
	{"Kr", 83.800, 1.16, 2.02, 8},
	{"Rb", 85.468, 2.20, 3.03, 1},
	{"Sr", 87.620, 1.95, 2.49, 2},
	{"Y", 88.906, 1.90, 2.32, 3},
	{"Zr", 91.224, 1.75, 2.23, 4},
	{"Nb", 92.906, 1.64, 2.18, 5},
	{"Mo", 95.940, 1.54, 2.17, 6},
	{"Tc", 98.000, 1.47, 2.16, 7},
	{"Ru", 101.070, 1.46, 2.13, 8},
	{"Rh", 102.906, 1.42, 2.10, 9},
	{"Pd", 106.420, 1.39, 2.10, 10},
	{"Ag", 107.868, 1.45, 2.11, 11},
	{"Cd", 112.411, 1.44, 2.18, 2},
	{"In", 114.818, 1.42, 1.93, 3},
	{"Sn", 118.710, 1.39, 2.17, 4},
	{"Sb", 121.760, 1.39, 2.06, 5},
	{"Te", 127.600, 1.38, 2.06, 6},
	{"I", 126.904, 1.39, 2.10, 7},
	{"Xe", 131.290, 1.40, 2.16, 8},
	{"Cs", 132.905, 2.44, 3.43, 1},
	{"Ba", 137.328, 2.15, 2.68, 2},
	{"La", 138.906, 2.07, 2.43, 3},
	{"Ce", 140.116, 2.04, 2.42, 3},
	{"Pr", 140.908, 2.03, 2.40, 3},
	{"Nd", 144.240, 2.01, 2.39, 3},
	{"Pm", 145.000, 1.99, 2.38, 3},
	{"Sm", 150.360, 1.98, 2.36, 3},
	{"Eu", 151.964, 1.98, 2.35, 3},
	{"Gd", 157.250, 1.96, 2.34, 3},
	{"Tb", 158.925, 1.94, 2.33, 3},
	{"Dy", 162.500, 1.92, 2.31, 3},
	{"Ho", 164.930, 1.92, 2.30, 3},
	{"Er", 167.260, 1.89, 2.29, 3},
	{"Tm", 168.934, 1.90, 2.27, 3},
	{"Yb", 173.040, 1.87, 2.26, 3},
	{"Lu", 174.967, 1.87, 2.24, 3},
	{"Hf", 178.490, 1.75, 2.23, 4},
	{"Ta", 180.948, 1.70, 2.22, 5},
	{"W", 183.840, 1.62, 2.18, 6},
	{"Re", 186.207, 1.51, 2.16, 7},
	{"Os", 190.230, 1.44, 2.16, 8},
	{"Ir", 192.217, 1.41, 2.13, 9},
	{"Pt", 195.078, 1.36, 2.13, 10},
	{"Au", 196.967, 1.36, 2.14, 11},
	{"Hg", 200.590, 1.32, 2.23, 2},
	{"Tl", 204.383, 1.45, 1.96, 3},
	{"Pb", 207.200, 1.46, 2.02, 4},
	{"Bi", 208.980, 1.48, 2.07, 5},
	{"Po", 209.000, 1.40, 1.97, 6},
	{"At", 210.000, 1.50, 2.02, 7},
	{"Rn", 222.000, 1.50, 2.20, 8},
	{"Fr", 223.000, 2.60, 3.48, 1},
	{"Ra", 226.000, 2.21, 2.83, 2},
	{"Ac", 227.000, 2.15, 2.47, 3},
	{"Th", 232.038, 2.06, 2.45, 3},
	{"Pa", 231.036, 2.00, 2.43, 3},
	{"U", 238.029, 1.96, 2.41, 3},
	{"Np", 237.000, 1.90, 2.39, 3},
	{"Pu", 244.000, 1.87, 2.43, 3},
	{"Am", 243.000, 1.80, 2.44, 3},
	{"Cm", 247.000, 1.69, 2.45, 3},
	{"Bk", 247.000, 1.68, 2.44, 3},
	{"Cf", 251.000, 1.68, 2.45, 3},
	{"Es", 252.000, 1.65, 2.00, 3},
	{"Fm", 257.000, 1.67, 2.00, 3},
	{"Md", 258.000, 1.73, 2.00, 3},
	{"No", 259.000, 1.76, 2.00, 3},
	{"Lr", 262.000, 1.61, 2.00, 3},
	{"Rf", 267.000, 1.57, 2.00, 4},
	{"Db", 268.000, 1.49, 2.00, 5},
	{"Sg", 269.000, 1.43, 2.00, 6},
	{"Bh", 270.000, 1.41, 2.00, 7},
	{"Hs", 277.000, 1.34, 2.00, 8},
	{"Mt", 278.000, 1.29, 2.00, 9},
	{"Ds", 281.000, 1.28, 2.00, 10},
	{"Rg", 282.000, 1.21, 2.00, 11},
	{"Cn", 285.000, 1.22, 2.00, 2},
	{"Nh", 286.000, 1.36, 2.00, 3},
	{"Fl", 289.000, 1.43, 2.00, 4},
	{"Mc", 290.000, 1.62, 2.00, 5},
	{"Lv", 293.000, 1.75, 2.00, 6},
	{"Ts", 294.000, 1.65, 2.00, 7},
	{"Og", 294.000, 1.57, 2.00, 8},
}

// isotopeMasses holds exact masses of the isotopes commonly written in SMILES,
// keyed by atomic number and mass number.
var isotopeMasses = map[[2]int]float64{
	{1, 1}:    1.007825,
	{1, 2}:    2.014102,
	{1, 3}:    3.016049,
	{6, 11}:   11.011434,
	{6, 12}:   12.000000,
	{6, 13}:   13.003355,
	{6, 14}:   14.003242,
	{7, 13}:   13.005739,
	{7, 14}:   14.003074,
	{7, 15}:   15.000109,
	{8, 15}:   15.003066,
	{8, 16}:   15.994915,
	{8, 17}:   16.999132,
	{8, 18}:   17.999160,
	{9, 18}:   18.000938,
	{9, 19}:   18.998403,
	{15, 31}:  30.973762,
	{15, 32}:  31.973908,
	{16, 32}:  31.972071,
	{16, 34}:  33.967867,
	{16, 35}:  34.969032,
	{17, 35}:  34.968853,
	{17, 37}:  36.965903,
	{35, 79}:  78.918338,
	{35, 81}:  80.916291,
	{53, 123}: 122.905589,
	{53, 125}: 124.904630,
	{53, 127}: 126.904473,
	{53, 131}: 130.906125,
}

var symbolToAtomicNum = func() map[string]int {
	m := make(map[string]int, len(elements))
	for z, e := range elements {
		m[e.Symbol] = z
	}
	return m
}()

// PeriodicTable supplies element radii by atomic number.
type PeriodicTable interface {
	VanDerWaalsRadius(atomicNum int) float64
	CovalentRadius(atomicNum int) float64
}

// ElementTable is the built-in PeriodicTable.  Unknown atomic numbers yield
// zero radii and mass.
type ElementTable struct{}

// NewElementTable returns the built-in periodic table.
func NewElementTable() *ElementTable { return &ElementTable{} }

func (ElementTable) lookup(z int) (element, bool) {
	if z < 0 || z >= len(elements) {
		return element{}, false
	}
	return elements[z], true
}

// VanDerWaalsRadius returns the van der Waals radius of element z.
func (t ElementTable) VanDerWaalsRadius(z int) float64 {
	e, _ := t.lookup(z)
	return e.RVdW
}

// CovalentRadius returns the single-bond covalent radius of element z.
func (t ElementTable) CovalentRadius(z int) float64 {
	e, _ := t.lookup(z)
	return e.RCov
}

// Mass returns the standard atomic weight of element z.
func (t ElementTable) Mass(z int) float64 {
	e, _ := t.lookup(z)
	return e.Mass
}

// IsotopeMass returns the mass of the isotope of element z with the given
// mass number.  Isotopes without a tabulated exact mass fall back to the mass
// number itself.
func (t ElementTable) IsotopeMass(z, massNumber int) float64 {
	if m, ok := isotopeMasses[[2]int{z, massNumber}]; ok {
		return m
	}
	return float64(massNumber)
}

// Symbol returns the element symbol for z, or "" when unknown.
func (t ElementTable) Symbol(z int) string {
	e, ok := t.lookup(z)
	if !ok {
		return ""
	}
	return e.Symbol
}

// AtomicNumber returns the atomic number of symbol and whether it is known.
func (ElementTable) AtomicNumber(symbol string) (int, bool) {
	z, ok := symbolToAtomicNum[symbol]
	return z, ok
}

// outerElectrons returns the valence-shell electron count of element z.
func outerElectrons(z int) int {
	if z <= 0 || z >= len(elements) {
		return 0
	}
	return elements[z].NOuter
}
