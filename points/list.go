// Package points converts point clouds into sparse volumes and maintains
// per-voxel point indexing with named group membership.
package points

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// List is an in-memory point cloud: world-space positions plus named groups
// with a per-point membership flag.
type List struct {
	positions []r3.Vector
	groups    map[string][]bool
	order     []string
}

// NewList returns an empty point list.
func NewList() *List {
	return &List{groups: make(map[string][]bool)}
}

// Len returns the number of points.
func (l *List) Len() int { return len(l.positions) }

// Position returns the world-space position of point i.
func (l *List) Position(i int) r3.Vector { return l.positions[i] }

// Add appends a point and returns its index. Existing group memberships are
// extended with a false entry.
func (l *List) Add(p r3.Vector) int {
	l.positions = append(l.positions, p)
	for name := range l.groups {
		l.groups[name] = append(l.groups[name], false)
	}
	return len(l.positions) - 1
}

// AddGroup registers a named group with no members. Registering an existing
// group is an error.
func (l *List) AddGroup(name string) error {
	if _, ok := l.groups[name]; ok {
		return errors.Errorf("group %q already exists", name)
	}
	l.groups[name] = make([]bool, len(l.positions))
	l.order = append(l.order, name)
	return nil
}

// SetGroup marks the given point indices as members of the group.
func (l *List) SetGroup(name string, indices ...int) error {
	members, ok := l.groups[name]
	if !ok {
		return errors.Errorf("unknown group %q", name)
	}
	for _, i := range indices {
		if i < 0 || i >= len(l.positions) {
			return errors.Errorf("point index %d out of range [0, %d)", i, len(l.positions))
		}
		members[i] = true
	}
	return nil
}

// InGroup reports whether point i belongs to the group. Unknown groups have
// no members.
func (l *List) InGroup(name string, i int) bool {
	members, ok := l.groups[name]
	return ok && members[i]
}

// HasGroup reports whether the group is registered.
func (l *List) HasGroup(name string) bool {
	_, ok := l.groups[name]
	return ok
}

// Groups returns the registered group names in registration order.
func (l *List) Groups() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}
