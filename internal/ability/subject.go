package ability

import "strings"

// Resource names a type of entity exposed by the API.
type Resource string

// Known resources. ResourceAll is reserved and matches any resource.
const (
	ResourceAll      Resource = "all"
	ResourceUser     Resource = "User"
	ResourceProduct  Resource = "Product"
	ResourceCategory Resource = "Category"
	ResourceOrder    Resource = "Order"
	ResourceReview   Resource = "Review"
)

// Subject is what an action targets: a whole resource, or a single attribute of
// it when finer-grained control is needed (User.role, User.status).
type Subject struct {
	Resource  Resource
	Attribute string
}

// All is the wildcard subject.
var All = Subject{Resource: ResourceAll}

// On returns the subject covering the whole resource.
func On(r Resource) Subject {
	return Subject{Resource: r}
}

// Attr narrows s to a single attribute.
func (s Subject) Attr(name string) Subject {
	return Subject{Resource: s.Resource, Attribute: name}
}

// ParseSubject reads the dotted form produced by String. Only the first dot
// separates resource from attribute.
func ParseSubject(raw string) Subject {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Subject{}
	}
	resource, attr, _ := strings.Cut(raw, ".")
	return Subject{Resource: Resource(resource), Attribute: attr}
}

// String renders the subject as Resource or Resource.attribute.
func (s Subject) String() string {
	if s.Attribute == "" {
		return string(s.Resource)
	}
	return string(s.Resource) + "." + s.Attribute
}

// IsZero reports whether no resource is set.
func (s Subject) IsZero() bool {
	return s.Resource == ""
}

// IsAll reports whether s is the wildcard subject.
func (s Subject) IsAll() bool {
	return s.Resource == ResourceAll
}
