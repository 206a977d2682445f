package fcirdm

// Link is one compressed excitation record: applying the operator
// cre† des to the run's source string yields string Addr with fermionic
// sign Sign.
type Link struct {
	Addr int32
	Cre  uint8
	Des  uint8
	Sign int8
}

// compressLink repacks a raw link table, four ints per entry in the
// order (createOrbital, annihilateOrbital, resultString, sign), into
// nstr contiguous runs of nlink Link records.
func compressLink(raw []int, nstr, nlink int) []Link {
	clink := make([]Link, nstr*nlink)
	for k := range clink {
		e := raw[k*4 : k*4+4]
		clink[k] = Link{
			Cre:  uint8(e[0]),
			Des:  uint8(e[1]),
			Addr: int32(e[2]),
			Sign: int8(e[3]),
		}
	}
	return clink
}
