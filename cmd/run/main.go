// Command run computes density matrices of random CI vectors over a
// grid of system sizes, archives them, and prints summary statistics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"fcirdm"
	"fcirdm/cistring"
	"fcirdm/store"
)

const (
	fnameArchive    = "rdm.db"
	fnameDone       = "done.txt"
	fnameStatistics = "statistics.txt"
)

var (
	runDir = flag.String("d", filepath.Join("runs", "fcirdm"), "run directory")
)

type Statistics struct {
	norb  int
	nelec int
	seed  uint64

	// TraceRDM1 is Tr ⟨p†q⟩, expected to equal the electron count.
	TraceRDM1 float64
	// PairTrace is the full pair trace of the particle-ordered
	// two-body matrix, expected to equal N(N−1).
	PairTrace float64
	// CrossCheck is the largest deviation between the blocked driver's
	// one-body matrix and the sum of the direct per-channel builders.
	CrossCheck float64
	// NatOcc are the natural orbital occupations, descending.
	NatOcc []float64
}

// randomCI returns a normalized symmetric na×na amplitude matrix.
func randomCI(na int, seed uint64) []float64 {
	rnd := rand.New(rand.NewPCG(seed, 0))
	ci := make([]float64, na*na)
	for i := 0; i < na; i++ {
		for j := 0; j <= i; j++ {
			v := rnd.NormFloat64()
			ci[i*na+j] = v
			ci[j*na+i] = v
		}
	}
	var norm float64
	for _, v := range ci {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range ci {
		ci[i] /= norm
	}
	return ci
}

// naturalOccupations diagonalizes the one-body matrix and returns its
// eigenvalues in descending order.
func naturalOccupations(rdm1 []float64, norb int) ([]float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(norb, rdm1), false); !ok {
		return nil, errors.Errorf("eigendecomposition failed")
	}
	occ := eig.Values(nil)
	for i, j := 0, len(occ)-1; i < j; i, j = i+1, j-1 {
		occ[i], occ[j] = occ[j], occ[i]
	}
	return occ, nil
}

func compute(dir string, norb, nelec int, seed uint64) error {
	na := cistring.NumStrings(norb, nelec)
	nlink := cistring.NumLinks(norb, nelec)
	link := cistring.GenLinkIndex(norb, nelec)
	ci := randomCI(na, seed)

	rdm1, rdm2 := fcirdm.MakeRDM12MS0(ci, norb, na, nlink, link, fcirdm.NewOptions())

	rdm1a := fcirdm.MakeRDM1A(ci, norb, na, na, nlink, link)
	rdm1b := fcirdm.MakeRDM1B(ci, norb, na, na, nlink, link)
	var crossCheck float64
	for i, v := range rdm1 {
		if d := math.Abs(v - rdm1a[i] - rdm1b[i]); d > crossCheck {
			crossCheck = d
		}
	}

	rdm1, rdm2 = fcirdm.ReorderRDM12(rdm1, rdm2, norb)

	s, err := store.Open(filepath.Join(dir, fnameArchive))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer s.Close()
	if err := s.Put("rdm1", rdm1); err != nil {
		return errors.Wrap(err, "")
	}
	if err := s.Put("rdm2", rdm2); err != nil {
		return errors.Wrap(err, "")
	}

	stats := Statistics{CrossCheck: crossCheck}
	for p := 0; p < norb; p++ {
		stats.TraceRDM1 += rdm1[p*norb+p]
	}
	nnorb := norb * norb
	for p := 0; p < norb; p++ {
		for q := 0; q < norb; q++ {
			stats.PairTrace += rdm2[(p*norb+p)*nnorb+q*norb+q]
		}
	}
	stats.NatOcc, err = naturalOccupations(rdm1, norb)
	if err != nil {
		return errors.Wrap(err, "")
	}

	b, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(dir, fnameStatistics), b, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func solve(dir string, norb, nelec int, seed uint64) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	if err := compute(dir, norb, nelec, seed); err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func gather(dir string) ([]Statistics, error) {
	stats := make([]Statistics, 0)
	sysEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	for _, sent := range sysEntries {
		var norb, nelec int
		if _, err := fmt.Sscanf(sent.Name(), "%do%de", &norb, &nelec); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%#v", sent))
		}

		sdir := filepath.Join(dir, sent.Name())
		seedEntries, err := os.ReadDir(sdir)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%#v", sent))
		}
		for _, dent := range seedEntries {
			seed, err := strconv.ParseUint(dent.Name(), 10, 64)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", sent, dent))
			}

			sb, err := os.ReadFile(filepath.Join(sdir, dent.Name(), fnameStatistics))
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", sent, dent))
			}
			s := Statistics{norb: norb, nelec: nelec, seed: seed}
			if err := json.Unmarshal(sb, &s); err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", sent, dent))
			}
			stats = append(stats, s)
		}
	}
	return stats, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	configs := make([]Statistics, 0)
	for _, c := range []struct{ norb, nelec int }{
		{4, 2}, {5, 2}, {6, 3}, {7, 3}, {8, 4},
	} {
		for seed := uint64(0); seed < 3; seed++ {
			configs = append(configs, Statistics{norb: c.norb, nelec: c.nelec, seed: seed})
		}
	}

	for _, c := range configs {
		sysStr := fmt.Sprintf("%do%de", c.norb, c.nelec)
		dir := filepath.Join(*runDir, sysStr, strconv.FormatUint(c.seed, 10))

		if err := solve(dir, c.norb, c.nelec, c.seed); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %d", sysStr, c.seed))
		}
		log.Printf("%s seed %d", sysStr, c.seed)
	}

	stats, err := gather(*runDir)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("norb,nelec,seed,trace1,pairTrace,crossCheck,natOccMax\n")
	for _, s := range stats {
		fmt.Printf("%d,%d,%d,%f,%g,%g,%f\n", s.norb, s.nelec, s.seed, s.TraceRDM1, s.PairTrace, s.CrossCheck, s.NatOcc[0])
	}
	return nil
}
