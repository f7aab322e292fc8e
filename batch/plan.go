package batch

import "github.com/syssam/veloxdb"

// Size returns the number of rows written by one statement: as many rows as
// fit in maxParams, capped at maxRows and never below one.
func Size(cols, maxRows, maxParams int) (int, error) {
	if cols <= 0 || maxRows <= 0 || maxParams <= 0 {
		return 0, &veloxdb.InvalidBatchConfigurationError{
			MaxRows:   maxRows,
			MaxParams: maxParams,
			Columns:   cols,
		}
	}
	return max(1, min(maxRows, maxParams/cols)), nil
}

// Plan is an ordered partition of the entities of one insert. Concatenating
// Batches yields the input in its original order.
type Plan[E any] struct {
	Size    int
	Batches [][]E
}

// Len returns the number of entities in the plan.
func (p *Plan[E]) Len() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b)
	}
	return n
}

// Partition splits entities into batches of Size rows. Only the last batch
// may be shorter.
func Partition[E any](entities []E, cols, maxRows, maxParams int) (*Plan[E], error) {
	size, err := Size(cols, maxRows, maxParams)
	if err != nil {
		return nil, err
	}
	p := &Plan[E]{Size: size}
	for len(entities) > 0 {
		n := min(size, len(entities))
		p.Batches = append(p.Batches, entities[:n:n])
		entities = entities[n:]
	}
	return p, nil
}
