package utils

import (
	"strconv"
	"strings"
)

// FormatAccountID renders the n-th account id. Ids are the decimal form of
// a counter that starts at 1.
func FormatAccountID(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// ValidateAccountID reports whether id could have been issued by
// FormatAccountID: digits only, no sign, no leading zero.
func ValidateAccountID(id string) bool {
	if id == "" || strings.HasPrefix(id, "0") {
		return false
	}
	n, err := strconv.ParseUint(id, 10, 64)
	return err == nil && n > 0
}
