// Package fcirdm computes one- and two-particle reduced density
// matrices from full-CI wavefunction vectors.
//
// A wavefunction is a dense row-major na×nb matrix of determinant
// amplitudes, alpha strings on rows and beta strings on columns, with
// string ordering and excitation link tables supplied by the cistring
// package. The package offers same-state builders (MakeRDM12MS0,
// MakeRDM12Spin0, MakeRDM12A, MakeRDM12B), transition builders between
// two states (TransRDM12MS0, TransRDM12A, TransRDM12B, TransRDM2AB),
// direct one-body builders that skip the two-body machinery, and
// ReorderRDM12 to convert the two-body matrix to particle order.
//
// All returned matrices use the convention rdm1[p*norb+q] = ⟨p†q⟩ and
// rdm2[((p*norb+q)*norb+r)*norb+s] = ⟨p†q r†s⟩ (spin-summed for the
// ms0/spin0 variants, per-channel for the a/b variants).
package fcirdm

// braTranspose swaps the first orbital pair of a raw driver two-body
// matrix: the contraction produces the bra-side pair conjugated, so
// out[(p,q),(r,s)] = raw[(q,p),(r,s)] restores ⟨p†q r†s⟩ order.
func braTranspose(raw []float64, norb int) []float64 {
	nnorb := norb * norb
	out := make([]float64, nnorb*nnorb)
	for p := 0; p < norb; p++ {
		for q := 0; q < norb; q++ {
			dst := out[(p*norb+q)*nnorb : (p*norb+q+1)*nnorb]
			src := raw[(q*norb+p)*nnorb : (q*norb+p+1)*nnorb]
			copy(dst, src)
		}
	}
	return out
}

// MakeRDM12MS0 computes the spin-summed one- and two-body density
// matrices of a wavefunction with equal alpha and beta electron counts.
// The shared link table serves both spin channels.
func MakeRDM12MS0(ci []float64, norb, na, nlink int, link []int, opts Options) (rdm1, rdm2 []float64) {
	rdm1, raw := RDM12(ci, ci, norb, na, na, nlink, nlink, link, link, KernMakeMS0, true, opts)
	return rdm1, braTranspose(raw, norb)
}

// MakeRDM12Spin0 computes the spin-summed density matrices of a
// spin-restricted wavefunction, one whose amplitude matrix equals its
// transpose. It visits only half the string pairs of MakeRDM12MS0.
func MakeRDM12Spin0(ci []float64, norb, na, nlink int, link []int, opts Options) (rdm1, rdm2 []float64) {
	rdm1, raw := RDM12(ci, ci, norb, na, na, nlink, nlink, link, link, KernMakeSpin0, true, opts)
	return rdm1, braTranspose(raw, norb)
}

// MakeRDM12A computes the alpha-channel density matrices: rdm1 is
// ⟨pα†qα⟩ and rdm2 the alpha-alpha block ⟨pα†qα rα†sα⟩.
func MakeRDM12A(ci []float64, norb, na, nb, nlinka, nlinkb int, linka, linkb []int, opts Options) (rdm1, rdm2 []float64) {
	rdm1, raw := RDM12(ci, ci, norb, na, nb, nlinka, nlinkb, linka, linkb, KernMakeA, true, opts)
	return rdm1, braTranspose(raw, norb)
}

// MakeRDM12B computes the beta-channel density matrices.
func MakeRDM12B(ci []float64, norb, na, nb, nlinka, nlinkb int, linka, linkb []int, opts Options) (rdm1, rdm2 []float64) {
	rdm1, raw := RDM12(ci, ci, norb, na, nb, nlinka, nlinkb, linka, linkb, KernMakeB, true, opts)
	return rdm1, braTranspose(raw, norb)
}

// TransRDM12MS0 computes the spin-summed transition density matrices
// ⟨bra|p†q|ket⟩ and ⟨bra|p†q r†s|ket⟩ between two wavefunctions with
// equal alpha and beta electron counts.
func TransRDM12MS0(bra, ket []float64, norb, na, nlink int, link []int, opts Options) (rdm1, rdm2 []float64) {
	rdm1, raw := RDM12(bra, ket, norb, na, na, nlink, nlink, link, link, KernTransMS0, false, opts)
	return rdm1, braTranspose(raw, norb)
}

// TransRDM12A computes the alpha-channel transition density matrices.
func TransRDM12A(bra, ket []float64, norb, na, nb, nlinka, nlinkb int, linka, linkb []int, opts Options) (rdm1, rdm2 []float64) {
	rdm1, raw := RDM12(bra, ket, norb, na, nb, nlinka, nlinkb, linka, linkb, KernTransA, false, opts)
	return rdm1, braTranspose(raw, norb)
}

// TransRDM12B computes the beta-channel transition density matrices.
func TransRDM12B(bra, ket []float64, norb, na, nb, nlinka, nlinkb int, linka, linkb []int, opts Options) (rdm1, rdm2 []float64) {
	rdm1, raw := RDM12(bra, ket, norb, na, nb, nlinka, nlinkb, linka, linkb, KernTransB, false, opts)
	return rdm1, braTranspose(raw, norb)
}

// TransRDM2AB computes the alpha-beta cross block of the two-body
// transition density matrix, ⟨bra|pα†qα rβ†sβ|ket⟩. There is no
// one-body cross term.
func TransRDM2AB(bra, ket []float64, norb, na, nb, nlinka, nlinkb int, linka, linkb []int, opts Options) []float64 {
	_, raw := RDM12(bra, ket, norb, na, nb, nlinka, nlinkb, linka, linkb, KernTransAB, false, opts)
	return braTranspose(raw, norb)
}

// ReorderRDM12 converts a two-body matrix from operator order ⟨p†q r†s⟩
// to particle order ⟨p†r†s q⟩ by subtracting the one-body contraction
// term, out2[(p,k),(k,s)] -= rdm1[p,s]. rdm1 passes through unchanged.
func ReorderRDM12(rdm1, rdm2 []float64, norb int) (out1, out2 []float64) {
	nnorb := norb * norb
	out1 = make([]float64, nnorb)
	copy(out1, rdm1)
	out2 = make([]float64, nnorb*nnorb)
	copy(out2, rdm2)
	for p := 0; p < norb; p++ {
		for k := 0; k < norb; k++ {
			row := out2[(p*norb+k)*nnorb+k*norb : (p*norb+k)*nnorb+k*norb+norb]
			for s := 0; s < norb; s++ {
				row[s] -= rdm1[p*norb+s]
			}
		}
	}
	return out1, out2
}
