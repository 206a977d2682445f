package fcirdm

// The single-excitation expanders turn a CI vector into a "t1" buffer of
// fillcnt planes, each plane norb² wide. A link entry excites cre† des,
// so summed over entries the plane element at offset i*norb+a holds the
// amplitudes of a†_i a_a |ci⟩, where i is the entry's annihilation
// orbital and a its creation orbital.

// expandAlpha walks the alpha link entries of string straID and, for
// each entry, accumulates the fillcnt-long beta-contiguous slice of ci
// at the entry's result string into the plane row of the entry's orbital
// pair. It does not zero t1 first, so the alpha and beta channels can be
// composed in a single buffer. Returns the summed squared amplitudes
// touched.
func expandAlpha(ci, t1 []float64, fillcnt, straID, norb, nstrb, nlink int, clink []Link) float64 {
	nnorb := norb * norb
	var csum float64
	for _, e := range clink[straID*nlink : (straID+1)*nlink] {
		pci := ci[int(e.Addr)*nstrb:]
		pt1 := t1[int(e.Des)*norb+int(e.Cre):]
		if e.Sign > 0 {
			for k := 0; k < fillcnt; k++ {
				v := pci[k]
				pt1[k*nnorb] += v
				csum += v * v
			}
		} else {
			for k := 0; k < fillcnt; k++ {
				v := pci[k]
				pt1[k*nnorb] -= v
				csum += v * v
			}
		}
	}
	return csum
}

// expandBetaZero builds one zeroed plane per string in the batch,
// scattering sign-weighted amplitudes of row straID of ci through the
// beta link entries. clink must already point at the run of the batch's
// first beta string.
func expandBetaZero(ci, t1 []float64, fillcnt, straID, norb, nstrb, nlink int, clink []Link) float64 {
	nnorb := norb * norb
	pci := ci[straID*nstrb : straID*nstrb+nstrb]
	var csum float64
	for str0 := 0; str0 < fillcnt; str0++ {
		plane := t1[str0*nnorb : (str0+1)*nnorb]
		clear(plane)
		for _, e := range clink[str0*nlink : (str0+1)*nlink] {
			v := pci[e.Addr]
			plane[int(e.Des)*norb+int(e.Cre)] += float64(e.Sign) * v
			csum += v * v
		}
	}
	return csum
}

// expandAB composes both spin channels for an na == nb vector: the
// zeroing beta expansion establishes the planes, then the alpha
// expansion accumulates on top. The shared link table serves both
// channels.
func expandAB(ci, t1 []float64, fillcnt, straID, strbID, norb, na, nlink int, clink []Link) float64 {
	csum := expandBetaZero(ci, t1, fillcnt, straID, norb, na, nlink, clink[strbID*nlink:])
	csum += expandAlpha(ci[strbID:], t1, fillcnt, straID, norb, na, nlink, clink)
	return csum
}
