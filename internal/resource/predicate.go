package resource

// Predicate is the relation type linking two resources.
type Predicate string

const (
	// PredicateDerived: subject was derived from object.
	PredicateDerived Predicate = "derived"
	// PredicateContains: subject contains object.
	PredicateContains Predicate = "contains"
	// PredicateUses: subject uses object.
	PredicateUses Predicate = "uses"
	// PredicateVersion: subject is a version of object.
	PredicateVersion Predicate = "version"
)

// Predicates lists the enumerated relation predicates.
func Predicates() []Predicate {
	return []Predicate{PredicateDerived, PredicateContains, PredicateUses, PredicateVersion}
}

// ValidPredicate reports whether p is one of the enumerated predicates.
func ValidPredicate(p Predicate) bool {
	switch p {
	case PredicateDerived, PredicateContains, PredicateUses, PredicateVersion:
		return true
	}
	return false
}
