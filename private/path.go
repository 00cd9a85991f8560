package private

import "strings"

// Path is a platform-agnostic path through the private directory
// hierarchy, stored as an ordered slice of segment names — grounded
// directly on the teacher's P type (path.go), carried over unchanged in
// shape since the "ordered slice of path components" representation
// fits the private tree exactly as well as it fit the teacher's bolt
// tree.
type Path []string

// Root is the empty path, denoting the directory a Directory value
// itself represents.
var Root = Path{}

// Validate rejects path components containing a path separator,
// mirroring the teacher's P.Validate.
func (p Path) Validate() error {
	for _, c := range p {
		if strings.Contains(c, "/") || c == "" {
			return ErrInvalidPath
		}
	}
	return nil
}

// Parent returns every segment but the last; the root's parent is
// itself.
func (p Path) Parent() Path {
	if len(p) < 2 {
		return Root
	}
	return p[:len(p)-1]
}

// Base returns the last segment, or "/" for the root.
func (p Path) Base() string {
	if len(p) < 1 {
		return "/"
	}
	return p[len(p)-1]
}

// String renders the path the way the teacher's P.String does.
func (p Path) String() string {
	return "/" + strings.Join(p, "/")
}
