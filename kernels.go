package fcirdm

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// accumRDM1 contracts the batch dimension of a t1 buffer against the
// matching CI amplitudes: dm1 += scale × t1ᵀ·ci.
func accumRDM1(dm1, t1, ci []float64, fillcnt, nnorb int, scale float64) {
	a := blas64.General{Rows: fillcnt, Cols: nnorb, Stride: nnorb, Data: t1}
	x := blas64.Vector{N: fillcnt, Inc: 1, Data: ci}
	y := blas64.Vector{N: nnorb, Inc: 1, Data: dm1}
	blas64.Gemv(blas.Trans, scale, a, x, 1, y)
}

// accumRDM2Sym accumulates the squared outer product of a t1 buffer,
// dm2 += scale × t1ᵀ·t1, populating the row-major upper triangle only.
func accumRDM2Sym(dm2, t1 []float64, fillcnt, nnorb int, scale float64) {
	a := blas64.General{Rows: fillcnt, Cols: nnorb, Stride: nnorb, Data: t1}
	c := blas64.Symmetric{Uplo: blas.Upper, N: nnorb, Stride: nnorb, Data: dm2}
	blas64.Syrk(blas.Trans, scale, a, 1, c)
}

// accumRDM2Gen accumulates the cross outer product of independently
// built bra and ket buffers, dm2 += scale × t1braᵀ·t1ket, full matrix.
func accumRDM2Gen(dm2, t1bra, t1ket []float64, fillcnt, nnorb int, scale float64) {
	a := blas64.General{Rows: fillcnt, Cols: nnorb, Stride: nnorb, Data: t1bra}
	b := blas64.General{Rows: fillcnt, Cols: nnorb, Stride: nnorb, Data: t1ket}
	c := blas64.General{Rows: nnorb, Cols: nnorb, Stride: nnorb, Data: dm2}
	blas64.Gemm(blas.Trans, blas.NoTrans, scale, a, b, 1, c)
}

// KernMakeMS0 is the same-state kernel for vectors with equal alpha and
// beta electron counts, not necessarily singlet.
func KernMakeMS0(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int) {
	nnorb := sys.norb * sys.norb
	buf := sc.buf0[:nnorb*fillcnt]
	csum := expandAB(sys.ket, buf, fillcnt, straID, strbID, sys.norb, sys.na, sys.nlinka, sys.clinka)
	if csum < csumThreshold {
		return
	}
	ci := sys.ket[straID*sys.nb+strbID:]
	accumRDM1(dm1, buf, ci, fillcnt, nnorb, 1)
	accumRDM2Sym(dm2, buf, fillcnt, nnorb, 1)
}

// KernMakeSpin0 exploits the alpha↔beta exchange symmetry of a
// spin-restricted wavefunction: only stra ≥ strb pairs are visited, at
// twice the weight. The pair exactly on the diagonal carries only the
// alpha half of its buffer, so it is rescaled by √2 before the rank-k
// update to keep the implicit squaring consistent with the ×2 weight.
func KernMakeSpin0(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int) {
	if straID < strbID {
		return
	}
	nnorb := sys.norb * sys.norb
	var fill0, fill1 int
	buf := sc.buf0
	if strbID+fillcnt <= straID {
		// Diagonal pair lies beyond this tile.
		fill0, fill1 = fillcnt, fillcnt
	} else {
		fill0 = straID - strbID
		fill1 = fill0 + 1
		clear(buf[fill0*nnorb : fill1*nnorb])
	}
	csum := expandBetaZero(sys.ket, buf, fill0, straID, sys.norb, sys.na, sys.nlinka, sys.clinka[strbID*sys.nlinka:])
	csum += expandAlpha(sys.ket[strbID:], buf, fill1, straID, sys.norb, sys.na, sys.nlinka, sys.clinka)
	if csum < csumThreshold {
		return
	}
	ci := sys.ket[straID*sys.nb+strbID:]
	accumRDM1(dm1, buf, ci, fill1, nnorb, 2)
	for i := fill0 * nnorb; i < fill1*nnorb; i++ {
		buf[i] *= math.Sqrt2
	}
	accumRDM2Sym(dm2, buf, fill1, nnorb, 2)
}

// KernTransMS0 is the transition kernel for ms=0 bra and ket vectors.
// Both buffers must clear the amplitude threshold or the whole batch is
// skipped.
func KernTransMS0(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int) {
	nnorb := sys.norb * sys.norb
	bufK := sc.buf0[:nnorb*fillcnt]
	bufB := sc.buf1[:nnorb*fillcnt]
	if csum := expandAB(sys.bra, bufB, fillcnt, straID, strbID, sys.norb, sys.na, sys.nlinka, sys.clinka); csum < csumThreshold {
		return
	}
	if csum := expandAB(sys.ket, bufK, fillcnt, straID, strbID, sys.norb, sys.na, sys.nlinka, sys.clinka); csum < csumThreshold {
		return
	}
	ci := sys.bra[straID*sys.nb+strbID:]
	accumRDM1(dm1, bufK, ci, fillcnt, nnorb, 1)
	accumRDM2Gen(dm2, bufB, bufK, fillcnt, nnorb, 1)
}

// KernMakeA is the alpha-channel same-state kernel, valid for any
// alpha/beta electron counts.
func KernMakeA(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int) {
	nnorb := sys.norb * sys.norb
	buf := sc.buf0[:nnorb*fillcnt]
	clear(buf)
	csum := expandAlpha(sys.ket[strbID:], buf, fillcnt, straID, sys.norb, sys.nb, sys.nlinka, sys.clinka)
	if csum < csumThreshold {
		return
	}
	ci := sys.ket[straID*sys.nb+strbID:]
	accumRDM1(dm1, buf, ci, fillcnt, nnorb, 1)
	accumRDM2Sym(dm2, buf, fillcnt, nnorb, 1)
}

// KernMakeB is the beta-channel same-state kernel.
func KernMakeB(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int) {
	nnorb := sys.norb * sys.norb
	buf := sc.buf0[:nnorb*fillcnt]
	csum := expandBetaZero(sys.ket, buf, fillcnt, straID, sys.norb, sys.nb, sys.nlinkb, sys.clinkb[strbID*sys.nlinkb:])
	if csum < csumThreshold {
		return
	}
	ci := sys.ket[straID*sys.nb+strbID:]
	accumRDM1(dm1, buf, ci, fillcnt, nnorb, 1)
	accumRDM2Sym(dm2, buf, fillcnt, nnorb, 1)
}

// KernTransA is the alpha-channel transition kernel.
func KernTransA(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int) {
	nnorb := sys.norb * sys.norb
	bufK := sc.buf0[:nnorb*fillcnt]
	bufB := sc.buf1[:nnorb*fillcnt]
	clear(bufB)
	if csum := expandAlpha(sys.bra[strbID:], bufB, fillcnt, straID, sys.norb, sys.nb, sys.nlinka, sys.clinka); csum < csumThreshold {
		return
	}
	clear(bufK)
	if csum := expandAlpha(sys.ket[strbID:], bufK, fillcnt, straID, sys.norb, sys.nb, sys.nlinka, sys.clinka); csum < csumThreshold {
		return
	}
	ci := sys.bra[straID*sys.nb+strbID:]
	accumRDM1(dm1, bufK, ci, fillcnt, nnorb, 1)
	accumRDM2Gen(dm2, bufB, bufK, fillcnt, nnorb, 1)
}

// KernTransB is the beta-channel transition kernel.
func KernTransB(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int) {
	nnorb := sys.norb * sys.norb
	bufK := sc.buf0[:nnorb*fillcnt]
	bufB := sc.buf1[:nnorb*fillcnt]
	if csum := expandBetaZero(sys.bra, bufB, fillcnt, straID, sys.norb, sys.nb, sys.nlinkb, sys.clinkb[strbID*sys.nlinkb:]); csum < csumThreshold {
		return
	}
	if csum := expandBetaZero(sys.ket, bufK, fillcnt, straID, sys.norb, sys.nb, sys.nlinkb, sys.clinkb[strbID*sys.nlinkb:]); csum < csumThreshold {
		return
	}
	ci := sys.bra[straID*sys.nb+strbID:]
	accumRDM1(dm1, bufK, ci, fillcnt, nnorb, 1)
	accumRDM2Gen(dm2, bufB, bufK, fillcnt, nnorb, 1)
}

// KernTransAB is the alpha-beta cross transition kernel. It only
// produces the cross term of the two-body matrix and never touches dm1.
func KernTransAB(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int) {
	nnorb := sys.norb * sys.norb
	bufA := sc.buf0[:nnorb*fillcnt]
	bufB := sc.buf1[:nnorb*fillcnt]
	clear(bufA)
	if csum := expandAlpha(sys.bra[strbID:], bufA, fillcnt, straID, sys.norb, sys.nb, sys.nlinka, sys.clinka); csum < csumThreshold {
		return
	}
	if csum := expandBetaZero(sys.ket, bufB, fillcnt, straID, sys.norb, sys.nb, sys.nlinkb, sys.clinkb[strbID*sys.nlinkb:]); csum < csumThreshold {
		return
	}
	accumRDM2Gen(dm2, bufA, bufB, fillcnt, nnorb, 1)
}
