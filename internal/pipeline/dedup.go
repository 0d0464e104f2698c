package pipeline

import "github.com/aliskhannn/deck-generator/internal/model"

// fallbackQueries replace repeated visual queries so consecutive slides
// do not all render the same image. Assignment is deterministic: the
// list is consumed in order and cycled when exhausted.
var fallbackQueries = []string{
	"geometric compass drawing circles",
	"vintage abacus with wooden beads",
	"neon mathematical symbols glowing",
	"graph paper with equations",
	"scientific calculator closeup",
	"protractor measuring angles",
	"chalkboard with colorful formulas",
	"digital LED number display",
	"ruler and pencil on engineering drawing",
	"mathematical textbook open",
	"student solving problem on tablet",
	"3D geometric shapes floating",
	"Fibonacci spiral in nature",
	"binary code matrix",
	"ancient counting stones",
	"math teacher at whiteboard",
	"trigonometry triangle diagram",
	"algebra symbols on paper",
	"statistics graph chart",
	"geometry set tools",
}

// DedupVisualQueries rewrites repeated visual queries left to right: the
// first occurrence keeps its query, every repeat gets the next unused
// fallback entry, which is then itself recorded as seen. Two slides can
// only end up with the same query once the fallback list wraps.
func DedupVisualQueries(slides []model.SlideRecord) {
	seen := make(map[string]struct{}, len(slides))
	next := 0

	for i := range slides {
		q := slides[i].VisualQuery
		if _, dup := seen[q]; dup {
			q = fallbackQueries[next%len(fallbackQueries)]
			next++
			slides[i].VisualQuery = q
		}
		seen[q] = struct{}{}
	}
}
