// Package naturalsort orders strings the way a person reading filenames
// expects: embedded digit runs compare as integers, everything else compares
// case-insensitively. "page2.jpg" sorts before "page10.jpg".
package naturalsort

import (
	"sort"
	"strings"
)

// Compare returns -1, 0, or 1 comparing a and b in natural order.
//
// Each string is treated as an alternating sequence of numeric and
// non-numeric runs. Numeric runs compare as unsigned integers; non-numeric
// runs compare case-insensitively. The run sequences compare
// lexicographically.
func Compare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			an, ai := takeNumber(a, i)
			bn, bj := takeNumber(b, j)
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			i, j = ai, bj
			continue
		}

		ar, ai := takeText(a, i)
		br, bj := takeText(b, j)
		if c := strings.Compare(strings.ToLower(ar), strings.ToLower(br)); c != 0 {
			return c
		}
		i, j = ai, bj
	}

	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	return 0
}

// Less reports whether a sorts before b in natural order.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Strings sorts ss in place in natural order.
func Strings(ss []string) {
	sort.Slice(ss, func(i, j int) bool {
		return Less(ss[i], ss[j])
	})
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// takeNumber consumes the digit run starting at i and returns its integer
// value. Values are capped at the uint64 range; leading zeros are ignored so
// "007" equals "7".
func takeNumber(s string, i int) (uint64, int) {
	var n uint64
	for i < len(s) && isDigit(s[i]) {
		d := uint64(s[i] - '0')
		if n > (1<<64-1-d)/10 {
			// Saturate instead of overflowing; runs this long are
			// not meaningful filenames anyway.
			n = 1<<64 - 1
		} else {
			n = n*10 + d
		}
		i++
	}
	return n, i
}

// takeText consumes the non-digit run starting at i.
func takeText(s string, i int) (string, int) {
	start := i
	for i < len(s) && !isDigit(s[i]) {
		i++
	}
	return s[start:i], i
}
