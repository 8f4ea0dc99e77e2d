// Package scope decides which declared graphs apply to the current process.
package scope

import "fmt"

// Scope selects processes by their primary flag.
type Scope int

const (
	// All matches every process.
	All Scope = iota
	// Primary matches only the primary process.
	Primary
	// Secondary matches every process except the primary one.
	Secondary
)

func (s Scope) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "all"
	}
}

// Parse maps a descriptor scope string to a Scope. Empty means All.
func Parse(s string) (Scope, error) {
	switch s {
	case "", "all":
		return All, nil
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	default:
		return All, fmt.Errorf("unknown scope %q, expected all, primary or secondary", s)
	}
}

// Predicate answers questions about the current process. Implementations
// must be pure.
type Predicate interface {
	IsPrimary() bool
	Matches(processName string) bool
}

// Process is a Predicate for a named process.
type Process struct {
	Name    string
	Primary bool
}

func (p Process) IsPrimary() bool { return p.Primary }

// Matches reports whether processName names this process.
func (p Process) Matches(processName string) bool {
	return processName != "" && processName == p.Name
}

// Matches reports whether s applies to the process described by pred.
func Matches(s Scope, pred Predicate) bool {
	switch s {
	case Primary:
		return pred.IsPrimary()
	case Secondary:
		return !pred.IsPrimary()
	default:
		return true
	}
}
