package query

// Spec is an immutable description of a query against a document
// collection. Adapters compile it to whatever their backend speaks; the
// services composing specs never see backend types.
type Spec struct {
	Where   Predicate
	Sort    []Sort
	Skip    int64
	Limit   int64
	Resolve []string
}

type Sort struct {
	Field      string
	Descending bool
}

type Predicate interface {
	isPredicate()
}

// Eq matches documents whose field equals the given value.
type Eq struct {
	Field string
	Value any
}

// In matches documents whose field equals any of the given values.
type In struct {
	Field  string
	Values []any
}

// Or matches documents satisfying at least one sub-predicate.
type Or []Predicate

// And matches documents satisfying every sub-predicate.
type And []Predicate

func (Eq) isPredicate()  {}
func (In) isPredicate()  {}
func (Or) isPredicate()  {}
func (And) isPredicate() {}
