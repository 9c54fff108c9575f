package route

import (
	"sort"
	"strings"
)

// Action is a before- or after-handler step registered against a path
// prefix pattern (e.g. "/admin/*", "/users/:id"). Every action whose
// pattern is a prefix of the resolved route's pattern participates in
// that exchange, ordered by BeforeFor/AfterFor (see sortActions).
type Action struct {
	Pattern string
	// Run executes the action against ctx (the exchange package's *Request).
	// For a before-action, a non-nil result short-circuits the remaining
	// chain (the caller interprets it as an early response); for an
	// after-action, a non-nil *Response result replaces the response and
	// the remaining after-actions still run. A non-nil error routes to the
	// caller's exception handling instead of continuing the chain.
	Run func(ctx any) (result any, err error)

	index int
	depth int
}

// ActionRegistry holds the before- and after-action lists for a Tree.
// Kept separate from the route trie itself (actions apply across many
// routes by prefix, unlike a route registration's single exact pattern),
// grounded on the ordering rules a chained middleware pipeline needs:
// general-to-specific before the handler, specific-to-general after it.
type ActionRegistry struct {
	before  []*Action
	after   []*Action
	nextIdx int
}

// NewActionRegistry returns an empty ActionRegistry.
func NewActionRegistry() *ActionRegistry { return &ActionRegistry{} }

// Before registers an action to run prior to the handler for every route
// whose pattern starts with the action's pattern prefix.
func (r *ActionRegistry) Before(pattern string, run func(ctx any) (any, error)) *Action {
	a := &Action{Pattern: pattern, Run: run, index: r.next(), depth: patternDepth(pattern)}
	r.before = append(r.before, a)
	return a
}

// After registers an action to run following the handler (and following
// any more-specific after-action), for every route whose pattern starts
// with the action's pattern prefix.
func (r *ActionRegistry) After(pattern string, run func(ctx any) (any, error)) *Action {
	a := &Action{Pattern: pattern, Run: run, index: r.next(), depth: patternDepth(pattern)}
	r.after = append(r.after, a)
	return a
}

func (r *ActionRegistry) next() int {
	r.nextIdx++
	return r.nextIdx
}

// BeforeFor returns the before-actions applicable to pattern, ordered
// least-specific (shallowest depth) to most-specific; at equal depth by
// the kind of the pattern's last segment, then by registration index (see
// sortActions) — the general-setup-first, specific-setup-last ordering a
// request should observe walking toward its handler.
func (r *ActionRegistry) BeforeFor(pattern string) []*Action {
	matched := filterApplicable(r.before, pattern)
	sortActions(matched, true)
	return matched
}

// AfterFor returns the after-actions applicable to pattern, ordered
// most-specific to least-specific — the reverse of BeforeFor, so an
// after-action "closest" to the handler observes the response first,
// mirroring a call-stack unwind.
func (r *ActionRegistry) AfterFor(pattern string) []*Action {
	matched := filterApplicable(r.after, pattern)
	sortActions(matched, false)
	return matched
}

func filterApplicable(actions []*Action, routePattern string) []*Action {
	var out []*Action
	for _, a := range actions {
		if patternPrefixMatches(a.Pattern, routePattern) {
			out = append(out, a)
		}
	}
	return out
}

// patternPrefixMatches reports whether every segment of prefix matches
// the corresponding segment of full, segment-for-segment, treating a
// trailing "*" segment in prefix as matching any remaining depth.
func patternPrefixMatches(prefix, full string) bool {
	pSegs := splitClean(prefix)
	fSegs := splitClean(full)
	for i, ps := range pSegs {
		if ps == "*" {
			return true
		}
		if i >= len(fSegs) {
			return false
		}
		if ps != fSegs[i] && !strings.HasPrefix(ps, ":") {
			return false
		}
	}
	return true
}

func splitClean(pattern string) []string {
	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func patternDepth(pattern string) int { return len(splitClean(pattern)) }

// actionSegmentKind classifies an action pattern's own segment syntax —
// a bare "*" (unnamed, matching any remaining depth) is a catch-all, a
// ":name" segment is a param, anything else is static.
func actionSegmentKind(seg string) segmentKind {
	switch {
	case seg == "*":
		return segCatchAll
	case strings.HasPrefix(seg, ":"):
		return segParam
	default:
		return segStatic
	}
}

// actionSpecificityKey ranks pattern's own last segment for the equal-
// depth tiebreak of spec.md §4.4: before-actions run catch-all, then
// param, then static (ascending key, smallest first); after-actions run
// the reverse (static, then param, then catch-all).
func actionSpecificityKey(pattern string, leastFirst bool) int {
	segs := splitClean(pattern)
	if len(segs) == 0 {
		return 1 // root pattern "/" has no segment to classify; treat as param-equivalent
	}
	kind := actionSegmentKind(segs[len(segs)-1])
	if leastFirst {
		switch kind {
		case segCatchAll:
			return 0
		case segParam:
			return 1
		default:
			return 2
		}
	}
	switch kind {
	case segStatic:
		return 0
	case segParam:
		return 1
	default:
		return 2
	}
}

// sortActions orders actions by depth (ascending if leastFirst, else
// descending); at equal depth, by actionSpecificityKey (catch-all <
// param < static for before-actions, reversed for after-actions, per
// spec.md §4.4); at equal specificity, by ascending registration index
// for both directions.
func sortActions(actions []*Action, leastFirst bool) {
	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.depth != b.depth {
			if leastFirst {
				return a.depth < b.depth
			}
			return a.depth > b.depth
		}
		ak, bk := actionSpecificityKey(a.Pattern, leastFirst), actionSpecificityKey(b.Pattern, leastFirst)
		if ak != bk {
			return ak < bk
		}
		return a.index < b.index
	})
}
