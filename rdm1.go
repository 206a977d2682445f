package fcirdm

// The direct one-body builders bypass the t1 machinery: each link entry
// contributes one bra·ket overlap, placed at rdm1[Cre*norb+Des], which
// is already ⟨p†q⟩ at [p,q].

// TransRDM1A computes the alpha one-body transition density matrix
// ⟨bra|a†_p a_q|ket⟩ for alpha orbitals p, q.
func TransRDM1A(bra, ket []float64, norb, na, nb, nlinka int, linka []int) []float64 {
	rdm1 := make([]float64, norb*norb)
	clinka := compressLink(linka, na, nlinka)
	for str0 := 0; str0 < na; str0++ {
		pket := ket[str0*nb : str0*nb+nb]
		for _, e := range clinka[str0*nlinka : (str0+1)*nlinka] {
			pbra := bra[int(e.Addr)*nb : int(e.Addr)*nb+nb]
			var dot float64
			for k, v := range pket {
				dot += pbra[k] * v
			}
			rdm1[int(e.Cre)*norb+int(e.Des)] += float64(e.Sign) * dot
		}
	}
	return rdm1
}

// TransRDM1B computes the beta one-body transition density matrix.
func TransRDM1B(bra, ket []float64, norb, na, nb, nlinkb int, linkb []int) []float64 {
	rdm1 := make([]float64, norb*norb)
	clinkb := compressLink(linkb, nb, nlinkb)
	for str0 := 0; str0 < na; str0++ {
		pbra := bra[str0*nb : str0*nb+nb]
		pket := ket[str0*nb : str0*nb+nb]
		for k, v := range pket {
			for _, e := range clinkb[k*nlinkb : (k+1)*nlinkb] {
				rdm1[int(e.Cre)*norb+int(e.Des)] += float64(e.Sign) * v * pbra[e.Addr]
			}
		}
	}
	return rdm1
}

// MakeRDM1A computes the alpha one-body density matrix of a single
// state. Only Cre ≥ Des entries are contracted; the result is symmetric
// so the strict upper triangle is mirrored from the lower.
func MakeRDM1A(ci []float64, norb, na, nb, nlinka int, linka []int) []float64 {
	rdm1 := make([]float64, norb*norb)
	clinka := compressLink(linka, na, nlinka)
	for str0 := 0; str0 < na; str0++ {
		pci0 := ci[str0*nb : str0*nb+nb]
		for _, e := range clinka[str0*nlinka : (str0+1)*nlinka] {
			if e.Cre < e.Des {
				continue
			}
			pci1 := ci[int(e.Addr)*nb : int(e.Addr)*nb+nb]
			var dot float64
			for k, v := range pci0 {
				dot += pci1[k] * v
			}
			rdm1[int(e.Cre)*norb+int(e.Des)] += float64(e.Sign) * dot
		}
	}
	mirrorLower(rdm1, norb)
	return rdm1
}

// MakeRDM1B computes the beta one-body density matrix of a single
// state.
func MakeRDM1B(ci []float64, norb, na, nb, nlinkb int, linkb []int) []float64 {
	rdm1 := make([]float64, norb*norb)
	clinkb := compressLink(linkb, nb, nlinkb)
	for str0 := 0; str0 < na; str0++ {
		pci := ci[str0*nb : str0*nb+nb]
		for k, v := range pci {
			for _, e := range clinkb[k*nlinkb : (k+1)*nlinkb] {
				if e.Cre < e.Des {
					continue
				}
				rdm1[int(e.Cre)*norb+int(e.Des)] += float64(e.Sign) * v * pci[e.Addr]
			}
		}
	}
	mirrorLower(rdm1, norb)
	return rdm1
}

// mirrorLower copies the row-major lower triangle of an n×n matrix into
// its strict upper triangle.
func mirrorLower(m []float64, n int) {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m[i*n+j] = m[j*n+i]
		}
	}
}
