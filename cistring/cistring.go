// Package cistring enumerates and addresses determinant strings.
//
// A string is a bitmask of occupied orbitals. Strings of nelec
// electrons in norb orbitals are ordered ascending as integers, and
// each has an address, its index in that ordering. The link tables map
// each string to every string reachable by one cre†·des move, with the
// fermionic sign of the move.
package cistring

import "math/bits"

// NumStrings returns the number of nelec-electron strings over norb
// orbitals, the binomial coefficient C(norb, nelec).
func NumStrings(norb, nelec int) int {
	if nelec < 0 || nelec > norb {
		return 0
	}
	n := 1
	for i := 0; i < nelec; i++ {
		n = n * (norb - i) / (i + 1)
	}
	return n
}

// Strings lists every nelec-electron string over norb orbitals in
// address order.
func Strings(norb, nelec int) []uint64 {
	ns := NumStrings(norb, nelec)
	strs := make([]uint64, 0, ns)
	if nelec == 0 {
		return append(strs, 0)
	}
	// Gosper's hack walks same-popcount masks in ascending order.
	s := uint64(1)<<nelec - 1
	for i := 0; i < ns; i++ {
		strs = append(strs, s)
		c := s & -s
		r := s + c
		s = (((r ^ s) >> 2) / c) | r
	}
	return strs
}

// StrToAddr returns the address of str in the nelec-electron ordering:
// each set bit at orbital p with k electrons left to place contributes
// the count of strings confined below p.
func StrToAddr(str uint64, norb, nelec int) int {
	addr := 0
	left := nelec
	for orb := norb - 1; orb >= 0 && left > 0; orb-- {
		if str&(1<<uint(orb)) != 0 {
			addr += NumStrings(orb, left)
			left--
		}
	}
	return addr
}

// AddrToStr is the inverse of StrToAddr.
func AddrToStr(addr, norb, nelec int) uint64 {
	var str uint64
	left := nelec
	for orb := norb - 1; orb >= 0 && left > 0; orb-- {
		n := NumStrings(orb, left)
		if addr >= n {
			str |= 1 << uint(orb)
			addr -= n
			left--
		}
	}
	return str
}

// CreDesSign returns the fermionic sign of applying cre†_p des_q to
// str0, the parity of the occupied orbitals strictly between p and q.
func CreDesSign(p, q int, str0 uint64) int {
	if p == q {
		return 1
	}
	lo, hi := p, q
	if lo > hi {
		lo, hi = hi, lo
	}
	mask := uint64(1)<<uint(hi) - uint64(1)<<uint(lo+1)
	if bits.OnesCount64(str0&mask)&1 == 1 {
		return -1
	}
	return 1
}

// NumLinks returns the number of link entries per string: one diagonal
// entry per electron plus one per electron-hole pair.
func NumLinks(norb, nelec int) int {
	return nelec + nelec*(norb-nelec)
}

// GenLinkIndex builds the excitation link table for nelec-electron
// strings over norb orbitals: NumLinks entries per string in address
// order, four ints per entry in the order (createOrbital,
// annihilateOrbital, resultAddress, sign). The diagonal moves come
// first, then for each occupied q and empty p the move p†q to the
// string str0 with q replaced by p.
func GenLinkIndex(norb, nelec int) []int {
	strs := Strings(norb, nelec)
	nlink := NumLinks(norb, nelec)
	link := make([]int, 0, len(strs)*nlink*4)
	for addr0, str0 := range strs {
		for q := 0; q < norb; q++ {
			if str0&(1<<uint(q)) != 0 {
				link = append(link, q, q, addr0, 1)
			}
		}
		for q := 0; q < norb; q++ {
			if str0&(1<<uint(q)) == 0 {
				continue
			}
			for p := 0; p < norb; p++ {
				if str0&(1<<uint(p)) != 0 {
					continue
				}
				str1 := str0&^(1<<uint(q)) | 1<<uint(p)
				link = append(link, p, q, StrToAddr(str1, norb, nelec), CreDesSign(p, q, str0))
			}
		}
	}
	return link
}
