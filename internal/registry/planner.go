package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrHardCycle means the curated table declares a dependency cycle that is
// not covered by soft references. That is a table bug, not a runtime
// condition, so planning fails before any network activity.
var ErrHardCycle = errors.New("registry: dependency cycle among hard edges")

// Plan orders specs so that every hard dependency precedes its dependents.
// Soft references are ignored. Among collections whose dependencies are
// all satisfied, declaration order decides, which makes the plan
// deterministic for an unchanged table.
func Plan(specs []Spec) ([]Spec, error) {
	index := make(map[string]int, len(specs))
	for i, s := range specs {
		index[s.Name] = i
	}

	indegree := make([]int, len(specs))
	dependents := make(map[string][]int)
	for i, s := range specs {
		for _, dep := range s.DependsOn() {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("registry: collection %q references unknown collection %q", s.Name, dep)
			}
			if j == i {
				continue
			}
			indegree[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	ordered := make([]Spec, 0, len(specs))
	emitted := make([]bool, len(specs))
	for len(ordered) < len(specs) {
		picked := -1
		for i := range specs {
			if !emitted[i] && indegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			var stuck []string
			for i, s := range specs {
				if !emitted[i] {
					stuck = append(stuck, s.Name)
				}
			}
			sort.Strings(stuck)
			return nil, fmt.Errorf("%w: %s", ErrHardCycle, strings.Join(stuck, ", "))
		}
		emitted[picked] = true
		ordered = append(ordered, specs[picked])
		for _, i := range dependents[specs[picked].Name] {
			indegree[i]--
		}
	}
	return ordered, nil
}

// PlanAll plans the full curated table.
func PlanAll() ([]Spec, error) {
	return Plan(All())
}
