package models

// FieldUpdates maps dotted document paths (for example "topics.electrical.currentDay")
// to their new values
type FieldUpdates map[string]any

// ArrayUnion is a field value that adds elements to an array field unless they are already present
type ArrayUnion struct {
	Values []any
}

// ArrayUnionOf creates an ArrayUnion of the given values
func ArrayUnionOf(values ...any) ArrayUnion {
	return ArrayUnion{Values: values}
}
