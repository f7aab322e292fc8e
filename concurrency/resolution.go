package concurrency

// MergeFunc builds the entity to retry with from the stored row, the
// attempted entity and the attempted entity as originally loaded. A nil
// result with a nil error gives up with the conflict error.
type MergeFunc func(current, attempted, original any) (any, error)

type strategy uint8

const (
	throw strategy = iota
	preferIncoming
	preferStored
	merge
)

// Resolution selects how an update conflict is handled. The zero value is
// Throw.
type Resolution struct {
	strategy strategy
	merge    MergeFunc
}

// Throw fails the update with the conflict error.
func Throw() Resolution { return Resolution{strategy: throw} }

// PreferIncoming retries the update on top of the stored version, so the
// caller's values win.
func PreferIncoming() Resolution { return Resolution{strategy: preferIncoming} }

// PreferStored discards the caller's changes and copies the stored row into
// the caller's entity.
func PreferStored() Resolution { return Resolution{strategy: preferStored} }

// Merge retries with the entity returned by fn.
func Merge(fn MergeFunc) Resolution { return Resolution{strategy: merge, merge: fn} }

// String returns the name of the resolution.
func (r Resolution) String() string {
	switch r.strategy {
	case preferIncoming:
		return "PreferIncoming"
	case preferStored:
		return "PreferStored"
	case merge:
		return "Merge"
	default:
		return "Throw"
	}
}
