package fcirdm

import (
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	// csumThreshold is the noise floor below which a whole t1 batch is
	// skipped: the summed squared amplitudes cannot contribute above
	// round-off.
	csumThreshold = 1e-28

	// defaultBlockSize is the beta-string tile width of the driver loop.
	defaultBlockSize = 320

	// chunk is how many alpha strings a worker claims per counter
	// fetch.
	chunk = 2
)

// system bundles the wavefunctions and link tables a kernel needs.
// Same-state kernels read only ket; bra == ket in that case.
type system struct {
	bra, ket       []float64
	norb           int
	na, nb         int
	nlinka, nlinkb int
	clinka, clinkb []Link
}

// scratch is one worker's t1 buffers, blockSize planes each.
type scratch struct {
	buf0, buf1 []float64
}

func newScratch(nnorb, blockSize int) *scratch {
	return &scratch{
		buf0: make([]float64, nnorb*blockSize),
		buf1: make([]float64, nnorb*blockSize),
	}
}

// A KernelFunc accumulates one (alpha string, beta batch) tile into the
// worker's private dm1 and dm2. fillcnt is the batch width, straID the
// alpha string, strbID the batch's first beta string.
type KernelFunc func(sys *system, sc *scratch, dm1, dm2 []float64, fillcnt, straID, strbID int)

// Options configure the density-matrix driver.
type Options struct {
	workers   int
	blockSize int
}

// NewOptions returns the default driver options: one worker per CPU and
// a beta tile of 320 strings.
func NewOptions() Options {
	return Options{workers: runtime.NumCPU(), blockSize: defaultBlockSize}
}

// Workers sets the number of worker goroutines.
func (o Options) Workers(n int) Options {
	o.workers = n
	return o
}

// BlockSize sets the beta-string tile width.
func (o Options) BlockSize(n int) Options {
	o.blockSize = n
	return o
}

// RDM12 runs kern over every (alpha string, beta tile) pair of the
// bra/ket grid and returns the accumulated one- and two-body density
// matrices, rdm1 of length norb² and rdm2 of length norb⁴.
//
// The raw output follows the internal contraction layout:
// rdm1[p*norb+q] = ⟨p†q⟩ already, but rdm2's first orbital pair is
// bra-conjugated, raw[(q,p),(r,s)] = ⟨p†q r†s⟩. The public wrappers
// fix the latter up. Symmetric kernels fill only the row-major upper
// triangle of rdm2 in its composite (norb²×norb²) shape; pass symm to
// mirror it (and rdm1) into the lower triangle.
//
// linka and linkb are raw link tables, four ints per entry in the order
// (createOrbital, annihilateOrbital, resultString, sign), nlinka and
// nlinkb entries per string.
func RDM12(bra, ket []float64, norb, na, nb, nlinka, nlinkb int, linka, linkb []int, kern KernelFunc, symm bool, opts Options) (rdm1, rdm2 []float64) {
	nnorb := norb * norb
	sys := &system{
		bra: bra, ket: ket,
		norb: norb, na: na, nb: nb,
		nlinka: nlinka, nlinkb: nlinkb,
		clinka: compressLink(linka, na, nlinka),
		clinkb: compressLink(linkb, nb, nlinkb),
	}

	rdm1 = make([]float64, nnorb)
	rdm2 = make([]float64, nnorb*nnorb)

	blockSize := opts.blockSize
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	nblk := (nb + blockSize - 1) / blockSize
	ntask := nblk * na

	workers := opts.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > ntask {
		workers = ntask
	}

	var next atomic.Int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc := newScratch(nnorb, blockSize)
			pdm1 := make([]float64, nnorb)
			pdm2 := make([]float64, nnorb*nnorb)
			for {
				t0 := int(next.Add(chunk)) - chunk
				if t0 >= ntask {
					break
				}
				t1 := t0 + chunk
				if t1 > ntask {
					t1 = ntask
				}
				for t := t0; t < t1; t++ {
					strbID := (t / na) * blockSize
					straID := t % na
					fillcnt := nb - strbID
					if fillcnt > blockSize {
						fillcnt = blockSize
					}
					kern(sys, sc, pdm1, pdm2, fillcnt, straID, strbID)
				}
			}
			mu.Lock()
			for i, v := range pdm1 {
				rdm1[i] += v
			}
			for i, v := range pdm2 {
				rdm2[i] += v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if symm {
		mirrorUpper(rdm1, norb)
		mirrorUpper(rdm2, nnorb)
	}
	return rdm1, rdm2
}

// mirrorUpper copies the row-major upper triangle of an n×n matrix into
// its strict lower triangle.
func mirrorUpper(m []float64, n int) {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m[j*n+i] = m[i*n+j]
		}
	}
}
