package sliceutil

import "strings"

func Contains[T comparable](array []T, value T) bool {
	for _, item := range array {
		if item == value {
			return true
		}
	}
	return false
}

// ContainsStringIgnoreCase reports whether s holds v under Unicode case folding.
func ContainsStringIgnoreCase(s []string, v string) bool {
	for _, i := range s {
		if strings.EqualFold(i, v) {
			return true
		}
	}
	return false
}
