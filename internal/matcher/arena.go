package matcher

// arena holds one consumed marker per record of each source list. A marker is set once and never cleared.
type arena struct {
	used [][]bool
}

func newArena(sources []BookmakerEvents) *arena {
	a := &arena{used: make([][]bool, len(sources))}
	for i, s := range sources {
		a.used[i] = make([]bool, len(s.Events))
	}
	return a
}

func (a *arena) isTaken(src, idx int) bool {
	return a.used[src][idx]
}

// take marks a record consumed and reports whether it was free.
func (a *arena) take(src, idx int) bool {
	if a.used[src][idx] {
		return false
	}
	a.used[src][idx] = true
	return true
}
