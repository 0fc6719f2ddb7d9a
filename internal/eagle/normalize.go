// SPDX-License-Identifier: MIT

package eagle

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a user-assigned device name: Unicode NFC
// form with runs of whitespace collapsed to single spaces. Hub firmware
// returns whatever was typed into the vendor app, including combining
// characters and padded spaces.
func NormalizeName(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}
