package pagelet

import "strings"

// AnchorAttribute marks the element a fragment's markup is spliced into.
const AnchorAttribute = "data-pagelet"

// anchor attribute value syntaxes recognized by Inject.
var anchorVariants = [...]struct{ prefix, suffix string }{
	{AnchorAttribute + "='", "'"},
	{AnchorAttribute + `="`, `"`},
	{AnchorAttribute + "=", ""},
}

// Inject splices view into base immediately after the opening tag of every
// element carrying a data-pagelet attribute equal to name. Single-quoted,
// double-quoted and bare attribute values are recognized. Inserted markup
// is never rescanned, so a view may itself contain anchors without
// triggering re-injection. When no anchor matches, base is returned
// unchanged.
//
// The bare variant matches on prefix, so unquoted anchor names must not be
// prefixes of one another.
func Inject(base, view, name string) string {
	var out strings.Builder
	pos := 0

	for pos < len(base) {
		at, width := findAnchor(base[pos:], name)
		if at < 0 {
			break
		}

		gt := strings.IndexByte(base[pos+at+width:], '>')
		if gt < 0 {
			break
		}

		end := pos + at + width + gt + 1
		out.WriteString(base[pos:end])
		out.WriteString(view)
		pos = end
	}

	if pos == 0 {
		return base
	}
	out.WriteString(base[pos:])
	return out.String()
}

// findAnchor locates the earliest occurrence of any anchor variant for
// name in s and returns its offset and the matched attribute width.
func findAnchor(s, name string) (int, int) {
	best, bestWidth := -1, 0
	for _, v := range anchorVariants {
		needle := v.prefix + name + v.suffix
		if i := strings.Index(s, needle); i >= 0 && (best < 0 || i < best) {
			best, bestWidth = i, len(needle)
		}
	}
	return best, bestWidth
}
