package termgrid

import (
	"github.com/rivo/uniseg"
	"github.com/unilibs/uniwidth"
)

// runeWidth returns the display width of r: 2 for wide characters
// (CJK ideographs, fullwidth forms, most emoji), 1 for normal
// characters, 0 for combining marks and other zero-width codepoints.
func runeWidth(r rune) int {
	return uniwidth.RuneWidth(r)
}

// vs16, vs15 are the variation selectors print's grapheme-attach path
// treats specially: VS16 requests the emoji-presentation (wide) form
// of the preceding base character, VS15 requests the text
// (narrow) form.
const (
	vs16 rune = 0xFE0F
	vs15 rune = 0xFE0E
)

// isExtendedPictographic reports whether r is a base character that
// can take VS16 to become a wide emoji presentation. uniseg does not
// expose the Extended_Pictographic property table directly, so this
// measures r followed by VS16 with uniseg's grapheme segmenter: VS16
// joins the cluster of any base, but uniseg widens the cluster to 2
// columns only for an Extended_Pictographic base (the heart becomes
// 2 wide, 'a' stays 1). A base that is already wide also measures 2;
// print only asks about bases that are not wide.
func isExtendedPictographic(r rune) bool {
	s := string(r) + string(vs16)
	_, rest, width, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	return rest == "" && width == 2
}

// graphemeBreak reports whether appending next to the cluster whose
// text so far is prefix would start a *new* grapheme cluster (true)
// or extend the existing one (false), per UAX #29 as implemented by
// uniseg.
func graphemeBreak(prefix string, next rune) bool {
	_, rest, _, _ := uniseg.FirstGraphemeClusterInString(prefix+string(next), -1)
	// If the whole string collapses to a single cluster, "rest" (the
	// remainder after the first cluster) is empty: no break.
	return rest != ""
}
