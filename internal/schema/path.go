package schema

import (
	"slices"
)

// Path is a route between two hierarchies.
type Path struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Hops lists the hierarchies visited after From, ending with To.
	Hops []string `json:"hops"`

	// Singular is true when one From object reaches at most one To object.
	Singular bool `json:"singular"`

	// Upward is true for child→parent paths.
	Upward bool `json:"upward"`
}

// PathBetween resolves the route from one object to another.
//
// Names may be singular or plural and any case. Child→parent routes are
// preferred; parent→child routes are used only when none exists. Among
// routes in the chosen direction only the shortest are considered.
//
// Errors:
//   - UnknownNameError if either name is not an object
//   - AmbiguousPathError if more than one shortest route exists
//   - NoPathError if the objects are unrelated
//   - CardinalityError if wantSingular and the route yields several objects
func (s *Schema) PathBetween(from, to string, wantSingular bool) (Path, error) {
	src, _, err := s.Resolve(from)
	if err != nil {
		return Path{}, err
	}
	dst, _, err := s.Resolve(to)
	if err != nil {
		return Path{}, err
	}
	if src == dst {
		return Path{From: src, To: dst, Singular: true, Upward: true}, nil
	}

	p := Path{From: src, To: dst, Upward: true}
	routes := shortestPaths(src, dst, s.parentsOf)
	if len(routes) == 0 {
		p.Upward = false
		routes = shortestPaths(src, dst, s.childrenOf)
	}
	switch len(routes) {
	case 0:
		return Path{}, &NoPathError{From: src, To: dst}
	case 1:
	default:
		return Path{}, &AmbiguousPathError{From: src, To: dst, Paths: routes}
	}

	p.Hops = routes[0]
	p.Singular = s.singular(src, p.Hops, p.Upward)
	if wantSingular && !p.Singular {
		return Path{}, &CardinalityError{From: src, To: dst}
	}
	return p, nil
}

// singular reports whether every hop along the route is singular in the
// direction travelled.
func (s *Schema) singular(from string, hops []string, upward bool) bool {
	prev := from
	for _, next := range hops {
		child, parent := prev, next
		if !upward {
			child, parent = next, prev
		}
		for _, link := range s.hierarchies[child].Parents {
			if link.Name != parent {
				continue
			}
			if upward && !link.Singular() {
				return false
			}
			if !upward && !link.One2One {
				return false
			}
		}
		prev = next
	}
	return true
}

func (s *Schema) parentsOf(name string) []string {
	var names []string
	for _, p := range s.hierarchies[name].Parents {
		if !slices.Contains(names, p.Name) {
			names = append(names, p.Name)
		}
	}
	slices.Sort(names)
	return names
}

func (s *Schema) childrenOf(name string) []string {
	names := slices.Clone(s.children[name])
	slices.Sort(names)
	return slices.Compact(names)
}

// shortestPaths returns every shortest route from src to dst following next.
// Each route lists the nodes after src. Routes are in lexical order.
func shortestPaths(src, dst string, next func(string) []string) [][]string {
	dist := map[string]int{src: 0}
	preds := make(map[string][]string)
	queue := []string{src}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if u == dst {
			continue
		}
		for _, v := range next(u) {
			d, seen := dist[v]
			switch {
			case !seen:
				dist[v] = dist[u] + 1
				preds[v] = []string{u}
				queue = append(queue, v)
			case d == dist[u]+1:
				preds[v] = append(preds[v], u)
			}
		}
	}
	if _, ok := dist[dst]; !ok {
		return nil
	}

	var routes [][]string
	var walk func(node string, suffix []string)
	walk = func(node string, suffix []string) {
		if node == src {
			routes = append(routes, slices.Clone(suffix))
			return
		}
		for _, p := range preds[node] {
			walk(p, append([]string{node}, suffix...))
		}
	}
	walk(dst, nil)
	slices.SortFunc(routes, slices.Compare[[]string])
	return routes
}
