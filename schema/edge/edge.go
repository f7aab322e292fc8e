package edge

// Kind is the cardinality of a navigation.
type Kind uint8

// Navigation kinds.
const (
	Invalid Kind = iota
	OneToMany
	ManyToMany
	ManyToOne
)

// String returns the edge kind name.
func (k Kind) String() string {
	switch k {
	case OneToMany:
		return "O2M"
	case ManyToMany:
		return "M2M"
	case ManyToOne:
		return "M2O"
	default:
		return "invalid"
	}
}

// Collection reports whether navigations of this kind hold many entities.
func (k Kind) Collection() bool {
	return k == OneToMany || k == ManyToMany
}
