package include

import (
	"strings"

	"github.com/syssam/veloxdb/schema"
	"github.com/syssam/veloxdb/schema/edge"
)

// DefaultMaxDepth is the include depth allowed when none is configured.
const DefaultMaxDepth = 5

// Step is one resolved navigation of an include path.
type Step struct {
	Navigation *schema.Navigation
	Source     *schema.Descriptor
	Target     *schema.Descriptor
	Junction   *schema.Descriptor // ManyToMany only
}

// Name returns the navigation name.
func (s Step) Name() string { return s.Navigation.Name }

// Kind returns the navigation kind.
func (s Step) Kind() edge.Kind { return s.Navigation.Kind }

// IsCollection reports whether the step loads many entities per owner.
func (s Step) IsCollection() bool { return s.Navigation.Collection() }

// JunctionTable returns the junction table of a many-to-many step, or "".
func (s Step) JunctionTable() string {
	if s.Junction == nil {
		return ""
	}
	return s.Junction.Table
}

// Path is a validated include path.
type Path struct {
	Steps []Step
}

// Depth returns the number of navigations in the path.
func (p *Path) Depth() int { return len(p.Steps) }

// String returns the dotted form of the path.
func (p *Path) String() string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name()
	}
	return strings.Join(names, ".")
}
