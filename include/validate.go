package include

import (
	"fmt"
	"strings"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/schema"
	"github.com/syssam/veloxdb/schema/edge"
)

// Validator checks the include paths of one query. It records every path it
// accepts and is not safe for concurrent use; create one per query or Reset
// it between queries.
type Validator struct {
	reg      *schema.Registry
	root     *schema.Descriptor
	maxDepth int
	seen     map[string]struct{}
}

// NewValidator returns a validator for paths rooted at root. A non-positive
// maxDepth selects DefaultMaxDepth.
func NewValidator(reg *schema.Registry, root *schema.Descriptor, maxDepth int) *Validator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Validator{
		reg:      reg,
		root:     root,
		maxDepth: maxDepth,
		seen:     make(map[string]struct{}),
	}
}

// Reset forgets the paths accepted so far.
func (v *Validator) Reset() {
	clear(v.seen)
}

// Validate resolves the dotted path and registers it. Duplicates are
// reported first, then depth, then unresolvable navigations and cycles in
// chain order.
//
// A navigation from a type to itself may be taken once per path, so a tree
// can load its direct children. Re-entering any type already on the chain
// otherwise, or taking a second self reference, is a cycle.
func (v *Validator) Validate(raw string) (*Path, error) {
	if _, ok := v.seen[raw]; ok {
		return nil, &veloxdb.DuplicateIncludeError{Path: raw}
	}
	names := strings.Split(raw, ".")
	if len(names) > v.maxDepth {
		return nil, &veloxdb.DepthExceededError{Path: raw, Depth: len(names), Max: v.maxDepth}
	}
	var (
		cur      = v.root
		chain    = []string{cur.Name}
		visited  = map[string]bool{cur.Name: true}
		selfLoop bool
		path     = &Path{Steps: make([]Step, 0, len(names))}
	)
	for _, name := range names {
		step, err := v.resolve(cur, name)
		if err != nil {
			return nil, err
		}
		target := step.Target.Name
		chain = append(chain, target)
		switch {
		case target == cur.Name && !selfLoop:
			selfLoop = true
		case visited[target]:
			return nil, &veloxdb.CycleDetectedError{Path: raw, Chain: chain}
		}
		visited[target] = true
		path.Steps = append(path.Steps, step)
		cur = step.Target
	}
	v.seen[raw] = struct{}{}
	return path, nil
}

// resolve looks up the navigation name on src and the descriptors it
// needs to be loaded.
func (v *Validator) resolve(src *schema.Descriptor, name string) (Step, error) {
	missing := func(format string, args ...any) (Step, error) {
		return Step{}, &veloxdb.MissingNavigationMetadataError{
			Entity:     src.Name,
			Navigation: name,
			Reason:     fmt.Sprintf(format, args...),
		}
	}
	if name == "" {
		return missing("empty navigation name")
	}
	nav, ok := src.Navigation(name)
	if !ok {
		return missing("no such navigation")
	}
	target, err := v.reg.Resolve(nav.Target)
	if err != nil {
		return missing("target %q: %v", nav.Target, err)
	}
	step := Step{Navigation: nav, Source: src, Target: target}
	switch nav.Kind {
	case edge.OneToMany:
		if _, err := target.Lookup(nav.ForeignKey); err != nil {
			return missing("foreign key: %v", err)
		}
	case edge.ManyToOne:
		if _, err := src.Lookup(nav.ForeignKey); err != nil {
			return missing("foreign key: %v", err)
		}
	case edge.ManyToMany:
		if nav.Junction == "" || nav.JunctionOwner == "" || nav.JunctionTarget == "" {
			return missing("many-to-many navigation without junction metadata")
		}
		junction, err := v.reg.Resolve(nav.Junction)
		if err != nil {
			return missing("junction %q: %v", nav.Junction, err)
		}
		for _, col := range []string{nav.JunctionOwner, nav.JunctionTarget} {
			if _, err := junction.Lookup(col); err != nil {
				return missing("junction key: %v", err)
			}
		}
		step.Junction = junction
	default:
		return missing("unknown navigation kind %s", nav.Kind)
	}
	return step, nil
}
