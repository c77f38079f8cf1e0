package models

// IDList is a set of record ids stored as a JSON array column.
// All mutations keep set semantics: no duplicates, order irrelevant.
type IDList []uint

// Contains reports whether id is in the list.
func (l IDList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Add returns the list with id inserted. Adding an existing id is a no-op.
func (l IDList) Add(id uint) IDList {
	if l.Contains(id) {
		return l
	}
	return append(l, id)
}

// Remove returns a new list with id removed, leaving the receiver intact so
// callers may still be iterating it. Removing a missing id is a no-op.
func (l IDList) Remove(id uint) IDList {
	out := make(IDList, 0, len(l))
	for _, v := range l {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
