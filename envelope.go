package pagelet

import "fmt"

// ViewAttribute marks a streamed envelope's template with the fragment it
// carries. The client runtime looks it up and moves the content into the
// matching anchor.
const ViewAttribute = "data-pagelet-view"

// Envelope wraps an asynchronously rendered view into the chunk streamed to
// the client after the initial flush: an inert template carrying the markup
// plus the arrival call the client runtime hooks.
func Envelope(fragmentID, view string) string {
	return fmt.Sprintf(
		"<template %s=%q>%s</template><script>window.pagelet&&window.pagelet.arrive(%q);</script>",
		ViewAttribute, fragmentID, view, fragmentID,
	)
}
