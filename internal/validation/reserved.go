package validation

// reservedSlugs are first path segments owned by fixed routes. A post with one of
// these slugs would be unreachable at /<slug>/.
var reservedSlugs = map[string]struct{}{
	"about":      {},
	"admin":      {},
	"archive":    {},
	"category":   {},
	"contact":    {},
	"health":     {},
	"media":      {},
	"metrics":    {},
	"newsletter": {},
	"search":     {},
	"static":     {},
	"tag":        {},
}

// IsReservedSlug reports whether slug collides with a fixed top-level route.
func IsReservedSlug(slug string) bool {
	_, ok := reservedSlugs[slug]
	return ok
}
