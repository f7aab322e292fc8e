package include

// keyFunc extracts a grouping key from an entity.
type keyFunc[K comparable, V any] func(V) (K, error)

// groupByKey groups values by key, keeping the order of values in each group.
func groupByKey[K comparable, V any](values []V, keyFn keyFunc[K, V]) (map[K][]V, error) {
	groups := make(map[K][]V)
	for _, v := range values {
		k, err := keyFn(v)
		if err != nil {
			return nil, err
		}
		groups[k] = append(groups[k], v)
	}
	return groups, nil
}

// keySet collects distinct keys in first-seen order along with the bound
// value of each key.
type keySet struct {
	keys   []any
	values []any
	index  map[any]int
}

func newKeySet() *keySet {
	return &keySet{index: make(map[any]int)}
}

// add records key with its statement value unless already present.
func (s *keySet) add(key, value any) {
	if _, ok := s.index[key]; ok {
		return
	}
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
	s.values = append(s.values, value)
}

func (s *keySet) len() int { return len(s.keys) }

// chunks splits values into consecutive slices of at most size elements.
func chunks[V any](values []V, size int) [][]V {
	if size <= 0 {
		size = len(values)
	}
	var out [][]V
	for len(values) > 0 {
		n := min(size, len(values))
		out = append(out, values[:n:n])
		values = values[n:]
	}
	return out
}
