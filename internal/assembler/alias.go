package assembler

import "strconv"

// Alias prefixes.
const (
	rootAlias      = "t0"
	hopPrefix      = "t"
	ancestorPrefix = "anc"
	rankPrefix     = "rank"
	scopePrefix    = "s"
)

// arena hands out aliases for one assembly. Counters are per prefix and
// start at 1; the root alias is fixed.
type arena struct {
	next map[string]int
}

func newArena() arena {
	return arena{next: map[string]int{}}
}

func (a *arena) alias(prefix string) string {
	a.next[prefix]++
	return prefix + strconv.Itoa(a.next[prefix])
}

func (a arena) clone() arena {
	c := newArena()
	for k, v := range a.next {
		c.next[k] = v
	}
	return c
}
