package target

import (
	"fmt"
	"slices"
	"strings"
)

// Graph holds targets in declaration order.
type Graph struct {
	targets []*Target
	index   map[string]int
}

func NewGraph(targets ...Target) (*Graph, error) {
	g := &Graph{
		targets: make([]*Target, 0, len(targets)),
		index:   make(map[string]int, len(targets)),
	}
	for i := range targets {
		t := targets[i]
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("%w: target #%d has no name", ErrInvalidGraph, i+1)
		}
		if _, dup := g.index[t.Name]; dup {
			return nil, fmt.Errorf("%w: target %s declared twice", ErrInvalidGraph, t.Name)
		}
		g.index[t.Name] = len(g.targets)
		g.targets = append(g.targets, &t)
	}

	for _, t := range g.targets {
		for _, refs := range [][]string{t.DependsOn, t.Before} {
			for _, ref := range refs {
				if ref == t.Name {
					return nil, fmt.Errorf("%w: target %s references itself", ErrInvalidGraph, t.Name)
				}
				if _, ok := g.index[ref]; !ok {
					return nil, fmt.Errorf("%w: %s referenced by %s", ErrUnknownTarget, ref, t.Name)
				}
			}
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
	}
	return g, nil
}

// Target returns the declared target or nil.
func (g *Graph) Target(name string) *Target {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.targets[i]
}

// Targets returns every target in declaration order.
func (g *Graph) Targets() []Target {
	out := make([]Target, len(g.targets))
	for i, t := range g.targets {
		out[i] = *t
	}
	return out
}

func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// prerequisites lists every target that must run before t: its
// dependencies plus anything declaring Before t.
func (g *Graph) prerequisites(t *Target) []int {
	var out []int
	for _, dep := range t.DependsOn {
		out = append(out, g.index[dep])
	}
	for i, other := range g.targets {
		if slices.Contains(other.Before, t.Name) {
			out = append(out, i)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (g *Graph) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(g.targets))
	var stack []int
	var cycle []string

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = grey
		stack = append(stack, i)
		for _, p := range g.prerequisites(g.targets[i]) {
			switch color[p] {
			case grey:
				start := slices.Index(stack, p)
				for _, s := range stack[start:] {
					cycle = append(cycle, g.targets[s].Name)
				}
				cycle = append(cycle, g.targets[p].Name)
				return true
			case white:
				if visit(p) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := range g.targets {
		if color[i] == white && visit(i) {
			return cycle
		}
	}
	return nil
}

// Plan is the ordered set of targets for one request.
type Plan struct {
	Targets []string
	Invoked []string
	Skipped []string
}

func (p Plan) Contains(name string) bool {
	return slices.Contains(p.Targets, name)
}

func (p Plan) IsInvoked(name string) bool {
	return slices.Contains(p.Invoked, name)
}

func (p Plan) IsSkipped(name string) bool {
	return slices.Contains(p.Skipped, name)
}

// Plan computes the transitive closure of requested over DependsOn and
// orders it so that dependencies and Before edges are honoured. Ties are
// broken by declaration order.
func (g *Graph) Plan(requested []string, skip []string) (Plan, error) {
	if len(requested) == 0 {
		return Plan{}, fmt.Errorf("%w: no target requested", ErrInvalidGraph)
	}
	for _, name := range slices.Concat(requested, skip) {
		if !g.Has(name) {
			return Plan{}, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
		}
	}

	inPlan := make([]bool, len(g.targets))
	queue := make([]int, 0, len(requested))
	for _, name := range requested {
		queue = append(queue, g.index[name])
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if inPlan[i] {
			continue
		}
		inPlan[i] = true
		for _, dep := range g.targets[i].DependsOn {
			queue = append(queue, g.index[dep])
		}
	}

	pending := make([]int, len(g.targets))
	for i, t := range g.targets {
		if !inPlan[i] {
			continue
		}
		for _, p := range g.prerequisites(t) {
			if inPlan[p] {
				pending[i]++
			}
		}
	}

	plan := Plan{}
	for _, name := range requested {
		if !slices.Contains(plan.Invoked, name) {
			plan.Invoked = append(plan.Invoked, name)
		}
	}
	for _, name := range skip {
		if inPlan[g.index[name]] && !slices.Contains(plan.Skipped, name) {
			plan.Skipped = append(plan.Skipped, name)
		}
	}

	done := make([]bool, len(g.targets))
	for {
		next := -1
		for i := range g.targets {
			if inPlan[i] && !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		plan.Targets = append(plan.Targets, g.targets[next].Name)
		for i, t := range g.targets {
			if inPlan[i] && !done[i] && slices.Contains(g.prerequisites(t), next) {
				pending[i]--
			}
		}
	}
	return plan, nil
}
