package policy

import "fmt"

// Wildcard is the resource value that grants access to every resource.
const Wildcard = "*"

// ResolvedResource is the optional single string found in a statement's
// Resource field. The zero value is absent.
type ResolvedResource struct {
	value   string
	present bool
}

// Some returns a present ResolvedResource holding v.
func Some(v string) ResolvedResource {
	return ResolvedResource{value: v, present: true}
}

// None returns an absent ResolvedResource.
func None() ResolvedResource {
	return ResolvedResource{}
}

// Get returns the resource and whether it is present.
func (r ResolvedResource) Get() (string, bool) {
	return r.value, r.present
}

func (r ResolvedResource) IsPresent() bool {
	return r.present
}

func (r ResolvedResource) String() string {
	if !r.present {
		return "<none>"
	}
	return fmt.Sprintf("%q", r.value)
}

// IsWildcard reports whether r is present and exactly "*".
func IsWildcard(r ResolvedResource) bool {
	v, ok := r.Get()
	return ok && v == Wildcard
}
