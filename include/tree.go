package include

import "github.com/syssam/veloxdb/schema"

// Node is one navigation of a Tree with the includes nested below it.
type Node struct {
	Step     Step
	Children []*Node
}

// Tree is a set of include paths merged by common prefix.
type Tree struct {
	Root  *schema.Descriptor
	Nodes []*Node
}

// Build validates paths with a fresh Validator and merges them into a tree.
func Build(reg *schema.Registry, root *schema.Descriptor, maxDepth int, paths ...string) (*Tree, error) {
	v := NewValidator(reg, root, maxDepth)
	t := &Tree{Root: root}
	for _, raw := range paths {
		p, err := v.Validate(raw)
		if err != nil {
			return nil, err
		}
		t.Add(p)
	}
	return t, nil
}

// Add merges a validated path into the tree.
func (t *Tree) Add(p *Path) {
	nodes := &t.Nodes
	for _, s := range p.Steps {
		var next *Node
		for _, n := range *nodes {
			if n.Step.Name() == s.Name() {
				next = n
				break
			}
		}
		if next == nil {
			next = &Node{Step: s}
			*nodes = append(*nodes, next)
		}
		nodes = &next.Children
	}
}

// Empty reports whether the tree has no includes.
func (t *Tree) Empty() bool { return t == nil || len(t.Nodes) == 0 }

// Paths returns the dotted paths of the tree leaves in insertion order.
func (t *Tree) Paths() []string {
	var out []string
	var walk func(prefix string, nodes []*Node)
	walk = func(prefix string, nodes []*Node) {
		for _, n := range nodes {
			p := n.Step.Name()
			if prefix != "" {
				p = prefix + "." + p
			}
			if len(n.Children) == 0 {
				out = append(out, p)
				continue
			}
			walk(p, n.Children)
		}
	}
	if t != nil {
		walk("", t.Nodes)
	}
	return out
}
