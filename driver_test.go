package fcirdm

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"testing"

	"fcirdm/cistring"
)

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}

// refSystem evaluates density matrices the slow way: apply p†q to the
// CI vector determinant by determinant and take overlaps.
type refSystem struct {
	norb           int
	nelecA, nelecB int
	na, nb         int
	strsA, strsB   []uint64
}

func newRefSystem(norb, nelecA, nelecB int) refSystem {
	return refSystem{
		norb: norb, nelecA: nelecA, nelecB: nelecB,
		na: cistring.NumStrings(norb, nelecA), nb: cistring.NumStrings(norb, nelecB),
		strsA: cistring.Strings(norb, nelecA), strsB: cistring.Strings(norb, nelecB),
	}
}

// applyEa returns p†q acting on the alpha strings of ci.
func (s refSystem) applyEa(p, q int, ci []float64) []float64 {
	out := make([]float64, s.na*s.nb)
	for addr0, str0 := range s.strsA {
		if str0&(1<<uint(q)) == 0 {
			continue
		}
		if p != q && str0&(1<<uint(p)) != 0 {
			continue
		}
		str1 := str0&^(1<<uint(q)) | 1<<uint(p)
		addr1 := cistring.StrToAddr(str1, s.norb, s.nelecA)
		sign := float64(cistring.CreDesSign(p, q, str0))
		for k := 0; k < s.nb; k++ {
			out[addr1*s.nb+k] += sign * ci[addr0*s.nb+k]
		}
	}
	return out
}

// applyEb returns p†q acting on the beta strings of ci.
func (s refSystem) applyEb(p, q int, ci []float64) []float64 {
	out := make([]float64, s.na*s.nb)
	for addr0, str0 := range s.strsB {
		if str0&(1<<uint(q)) == 0 {
			continue
		}
		if p != q && str0&(1<<uint(p)) != 0 {
			continue
		}
		str1 := str0&^(1<<uint(q)) | 1<<uint(p)
		addr1 := cistring.StrToAddr(str1, s.norb, s.nelecB)
		sign := float64(cistring.CreDesSign(p, q, str0))
		for i := 0; i < s.na; i++ {
			out[i*s.nb+addr1] += sign * ci[i*s.nb+addr0]
		}
	}
	return out
}

// applyE is the spin-summed excitation.
func (s refSystem) applyE(p, q int, ci []float64) []float64 {
	out := s.applyEa(p, q, ci)
	for i, v := range s.applyEb(p, q, ci) {
		out[i] += v
	}
	return out
}

func dot(a, b []float64) float64 {
	var d float64
	for i, v := range a {
		d += v * b[i]
	}
	return d
}

type applyFunc func(p, q int, ci []float64) []float64

// refRDM12 computes rdm1[p,q] = ⟨bra|p†q|ket⟩ and
// rdm2[(p,q),(r,s)] = ⟨bra|p†q r†s|ket⟩ with the given excitation.
func refRDM12(bra, ket []float64, norb int, apply applyFunc) (rdm1, rdm2 []float64) {
	nnorb := norb * norb
	rdm1 = make([]float64, nnorb)
	rdm2 = make([]float64, nnorb*nnorb)
	for p := 0; p < norb; p++ {
		for q := 0; q < norb; q++ {
			eket := apply(p, q, ket)
			rdm1[p*norb+q] = dot(bra, eket)
			ebra := apply(q, p, bra)
			for r := 0; r < norb; r++ {
				for s := 0; s < norb; s++ {
					rdm2[(p*norb+q)*nnorb+r*norb+s] = dot(ebra, apply(r, s, ket))
				}
			}
		}
	}
	return rdm1, rdm2
}

// refRDM2Cross computes the ⟨pα†qα rβ†sβ⟩ cross block.
func refRDM2Cross(bra, ket []float64, norb int, sys refSystem) []float64 {
	nnorb := norb * norb
	rdm2 := make([]float64, nnorb*nnorb)
	for p := 0; p < norb; p++ {
		for q := 0; q < norb; q++ {
			ebra := sys.applyEa(q, p, bra)
			for r := 0; r < norb; r++ {
				for s := 0; s < norb; s++ {
					rdm2[(p*norb+q)*nnorb+r*norb+s] = dot(ebra, sys.applyEb(r, s, ket))
				}
			}
		}
	}
	return rdm2
}

func randVec(n int, seed uint64) []float64 {
	rnd := rand.New(rand.NewPCG(seed, 0))
	v := make([]float64, n)
	var norm float64
	for i := range v {
		v[i] = rnd.NormFloat64()
		norm += v[i] * v[i]
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// symmetrized returns (ci + ciᵀ)/2, normalized.
func symmetrized(ci []float64, na int) []float64 {
	out := make([]float64, na*na)
	var norm float64
	for i := 0; i < na; i++ {
		for j := 0; j < na; j++ {
			out[i*na+j] = (ci[i*na+j] + ci[j*na+i]) / 2
			norm += out[i*na+j] * out[i*na+j]
		}
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func maxDiff(a, b []float64) float64 {
	var d float64
	for i, v := range a {
		if m := math.Abs(v - b[i]); m > d {
			d = m
		}
	}
	return d
}

func TestMakeRDM12MS0(t *testing.T) {
	t.Parallel()
	tests := []struct {
		norb, nelec int
	}{
		{3, 1},
		{4, 2},
		{5, 2},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d_%d", test.norb, test.nelec), func(t *testing.T) {
			t.Parallel()
			sys := newRefSystem(test.norb, test.nelec, test.nelec)
			nlink := cistring.NumLinks(test.norb, test.nelec)
			link := cistring.GenLinkIndex(test.norb, test.nelec)
			ci := randVec(sys.na*sys.nb, 7)

			rdm1, rdm2 := MakeRDM12MS0(ci, test.norb, sys.na, nlink, link, NewOptions())
			want1, want2 := refRDM12(ci, ci, test.norb, sys.applyE)
			if d := maxDiff(rdm1, want1); d > 1e-12 {
				t.Fatalf("rdm1 differs by %v, expected %v", rdm1, want1)
			}
			if d := maxDiff(rdm2, want2); d > 1e-12 {
				t.Fatalf("rdm2 differs by %g", d)
			}
		})
	}
}

func TestMakeRDM12Spin0(t *testing.T) {
	t.Parallel()
	tests := []struct {
		norb, nelec int
		blockSize   int
	}{
		{4, 2, 320},
		{4, 2, 2},
		{5, 2, 3},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", test.norb, test.nelec, test.blockSize), func(t *testing.T) {
			t.Parallel()
			na := cistring.NumStrings(test.norb, test.nelec)
			nlink := cistring.NumLinks(test.norb, test.nelec)
			link := cistring.GenLinkIndex(test.norb, test.nelec)
			ci := symmetrized(randVec(na*na, 11), na)

			opts := NewOptions().BlockSize(test.blockSize)
			rdm1, rdm2 := MakeRDM12Spin0(ci, test.norb, na, nlink, link, opts)
			want1, want2 := MakeRDM12MS0(ci, test.norb, na, nlink, link, NewOptions())
			if d := maxDiff(rdm1, want1); d > 1e-12 {
				t.Fatalf("rdm1 differs by %v, expected %v", rdm1, want1)
			}
			if d := maxDiff(rdm2, want2); d > 1e-12 {
				t.Fatalf("rdm2 differs by %g", d)
			}
		})
	}
}

func TestMakeRDM12Channels(t *testing.T) {
	t.Parallel()
	const norb, nelecA, nelecB = 4, 2, 1
	sys := newRefSystem(norb, nelecA, nelecB)
	nlinka := cistring.NumLinks(norb, nelecA)
	nlinkb := cistring.NumLinks(norb, nelecB)
	linka := cistring.GenLinkIndex(norb, nelecA)
	linkb := cistring.GenLinkIndex(norb, nelecB)
	ci := randVec(sys.na*sys.nb, 13)

	rdm1a, rdm2a := MakeRDM12A(ci, norb, sys.na, sys.nb, nlinka, nlinkb, linka, linkb, NewOptions())
	want1, want2 := refRDM12(ci, ci, norb, sys.applyEa)
	if d := maxDiff(rdm1a, want1); d > 1e-12 {
		t.Fatalf("alpha rdm1 %v, expected %v", rdm1a, want1)
	}
	if d := maxDiff(rdm2a, want2); d > 1e-12 {
		t.Fatalf("alpha rdm2 differs by %g", d)
	}

	rdm1b, rdm2b := MakeRDM12B(ci, norb, sys.na, sys.nb, nlinka, nlinkb, linka, linkb, NewOptions())
	want1, want2 = refRDM12(ci, ci, norb, sys.applyEb)
	if d := maxDiff(rdm1b, want1); d > 1e-12 {
		t.Fatalf("beta rdm1 %v, expected %v", rdm1b, want1)
	}
	if d := maxDiff(rdm2b, want2); d > 1e-12 {
		t.Fatalf("beta rdm2 differs by %g", d)
	}
}

func TestTransRDM12MS0(t *testing.T) {
	t.Parallel()
	const norb, nelec = 4, 2
	sys := newRefSystem(norb, nelec, nelec)
	nlink := cistring.NumLinks(norb, nelec)
	link := cistring.GenLinkIndex(norb, nelec)
	bra := randVec(sys.na*sys.nb, 17)
	ket := randVec(sys.na*sys.nb, 19)

	rdm1, rdm2 := TransRDM12MS0(bra, ket, norb, sys.na, nlink, link, NewOptions())
	want1, want2 := refRDM12(bra, ket, norb, sys.applyE)
	if d := maxDiff(rdm1, want1); d > 1e-12 {
		t.Fatalf("rdm1 %v, expected %v", rdm1, want1)
	}
	if d := maxDiff(rdm2, want2); d > 1e-12 {
		t.Fatalf("rdm2 differs by %g", d)
	}
}

func TestTransRDM12Channels(t *testing.T) {
	t.Parallel()
	const norb, nelecA, nelecB = 4, 2, 1
	sys := newRefSystem(norb, nelecA, nelecB)
	nlinka := cistring.NumLinks(norb, nelecA)
	nlinkb := cistring.NumLinks(norb, nelecB)
	linka := cistring.GenLinkIndex(norb, nelecA)
	linkb := cistring.GenLinkIndex(norb, nelecB)
	bra := randVec(sys.na*sys.nb, 23)
	ket := randVec(sys.na*sys.nb, 29)

	rdm1, rdm2 := TransRDM12A(bra, ket, norb, sys.na, sys.nb, nlinka, nlinkb, linka, linkb, NewOptions())
	want1, want2 := refRDM12(bra, ket, norb, sys.applyEa)
	if d := maxDiff(rdm1, want1); d > 1e-12 {
		t.Fatalf("alpha rdm1 %v, expected %v", rdm1, want1)
	}
	if d := maxDiff(rdm2, want2); d > 1e-12 {
		t.Fatalf("alpha rdm2 differs by %g", d)
	}

	rdm1, rdm2 = TransRDM12B(bra, ket, norb, sys.na, sys.nb, nlinka, nlinkb, linka, linkb, NewOptions())
	want1, want2 = refRDM12(bra, ket, norb, sys.applyEb)
	if d := maxDiff(rdm1, want1); d > 1e-12 {
		t.Fatalf("beta rdm1 %v, expected %v", rdm1, want1)
	}
	if d := maxDiff(rdm2, want2); d > 1e-12 {
		t.Fatalf("beta rdm2 differs by %g", d)
	}

	rdm2 = TransRDM2AB(bra, ket, norb, sys.na, sys.nb, nlinka, nlinkb, linka, linkb, NewOptions())
	want2 = refRDM2Cross(bra, ket, norb, sys)
	if d := maxDiff(rdm2, want2); d > 1e-12 {
		t.Fatalf("cross rdm2 differs by %g", d)
	}
}

func TestDriverTilingInvariance(t *testing.T) {
	t.Parallel()
	const norb, nelec = 5, 2
	na := cistring.NumStrings(norb, nelec)
	nlink := cistring.NumLinks(norb, nelec)
	link := cistring.GenLinkIndex(norb, nelec)
	ci := randVec(na*na, 31)

	base1, base2 := MakeRDM12MS0(ci, norb, na, nlink, link, NewOptions())
	tests := []Options{
		NewOptions().BlockSize(1),
		NewOptions().BlockSize(3),
		NewOptions().BlockSize(7),
		NewOptions().Workers(1),
		NewOptions().Workers(4).BlockSize(2),
	}
	for i, opts := range tests {
		rdm1, rdm2 := MakeRDM12MS0(ci, norb, na, nlink, link, opts)
		if d := maxDiff(rdm1, base1); d > 1e-12 {
			t.Fatalf("case %d: rdm1 differs by %g", i, d)
		}
		if d := maxDiff(rdm2, base2); d > 1e-12 {
			t.Fatalf("case %d: rdm2 differs by %g", i, d)
		}
	}
}

func TestSymmetrizeExact(t *testing.T) {
	t.Parallel()
	const norb, nelec = 4, 2
	na := cistring.NumStrings(norb, nelec)
	nlink := cistring.NumLinks(norb, nelec)
	link := cistring.GenLinkIndex(norb, nelec)
	ci := randVec(na*na, 53)

	// The raw driver output is symmetric by direct copy, bit for bit.
	rdm1, rdm2 := RDM12(ci, ci, norb, na, na, nlink, nlink, link, link, KernMakeMS0, true, NewOptions())
	for p := 0; p < norb; p++ {
		for q := 0; q < norb; q++ {
			if rdm1[p*norb+q] != rdm1[q*norb+p] {
				t.Fatalf("rdm1[%d,%d] = %v, expected %v", p, q, rdm1[p*norb+q], rdm1[q*norb+p])
			}
		}
	}
	nnorb := norb * norb
	for p := 0; p < nnorb; p++ {
		for q := 0; q < nnorb; q++ {
			if rdm2[p*nnorb+q] != rdm2[q*nnorb+p] {
				t.Fatalf("rdm2[%d,%d] = %v, expected %v", p, q, rdm2[p*nnorb+q], rdm2[q*nnorb+p])
			}
		}
	}
}

func TestClosedShellTwoOrbitals(t *testing.T) {
	t.Parallel()
	const norb, nelec = 2, 1
	na := cistring.NumStrings(norb, nelec)
	if na != 2 {
		t.Fatalf("%d, expected 2", na)
	}
	nlink := cistring.NumLinks(norb, nelec)
	link := cistring.GenLinkIndex(norb, nelec)
	// Both electrons in orbital 0.
	ci := []float64{1, 0, 0, 0}

	rdm1, rdm2 := MakeRDM12MS0(ci, norb, na, nlink, link, NewOptions())
	want1 := []float64{2, 0, 0, 0}
	if d := maxDiff(rdm1, want1); d > 1e-12 {
		t.Fatalf("%v, expected %v", rdm1, want1)
	}
	nnorb := norb * norb
	want2 := make([]float64, nnorb*nnorb)
	want2[0] = 4                         // ⟨E00 E00⟩
	want2[(0*norb+1)*nnorb+1*norb+0] = 2 // ⟨E01 E10⟩
	if d := maxDiff(rdm2, want2); d > 1e-12 {
		t.Fatalf("%v, expected %v", rdm2, want2)
	}

	// The alpha channel alone sees a single electron.
	rdm1a, rdm2a := MakeRDM12A(ci, norb, na, na, nlink, nlink, link, link, NewOptions())
	want1 = []float64{1, 0, 0, 0}
	if d := maxDiff(rdm1a, want1); d > 1e-12 {
		t.Fatalf("%v, expected %v", rdm1a, want1)
	}
	if rdm2a[0] != 1 {
		t.Fatalf("%v, expected 1", rdm2a[0])
	}

	// Particle order: Γ[(0,0),(0,0)] = ⟨0†0†0 0⟩ = N(N−1)/orbital.
	_, ord2 := ReorderRDM12(rdm1, rdm2, norb)
	if math.Abs(ord2[0]-2) > 1e-12 {
		t.Fatalf("%v, expected 2", ord2[0])
	}
}

func TestReorderRDM12Traces(t *testing.T) {
	t.Parallel()
	const norb, nelec = 4, 2
	const nelecTot = 2 * nelec
	na := cistring.NumStrings(norb, nelec)
	nlink := cistring.NumLinks(norb, nelec)
	link := cistring.GenLinkIndex(norb, nelec)
	ci := randVec(na*na, 37)

	rdm1, rdm2 := MakeRDM12MS0(ci, norb, na, nlink, link, NewOptions())
	rdm1, rdm2 = ReorderRDM12(rdm1, rdm2, norb)

	var tr1 float64
	for p := 0; p < norb; p++ {
		tr1 += rdm1[p*norb+p]
	}
	if math.Abs(tr1-nelecTot) > 1e-12 {
		t.Fatalf("%v, expected %v", tr1, nelecTot)
	}

	nnorb := norb * norb
	var tr2 float64
	for p := 0; p < norb; p++ {
		for q := 0; q < norb; q++ {
			tr2 += rdm2[(p*norb+p)*nnorb+q*norb+q]
		}
	}
	if want := float64(nelecTot * (nelecTot - 1)); math.Abs(tr2-want) > 1e-12 {
		t.Fatalf("%v, expected %v", tr2, want)
	}
}
