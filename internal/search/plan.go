package search

import "strings"

// Condition is one AND-ed predicate with its own positional arguments.
// Clause placeholders are written as '?'.
type Condition struct {
	Key    string
	Clause string
	Args   []any
}

// Plan is the compiled form of a filter token list.
type Plan struct {
	Conditions []Condition
	Page       int
}

// Where joins every condition with AND. Arguments are appended in the same
// pass so their order always follows the placeholders. An empty plan yields
// an empty clause that matches everything.
func (p Plan) Where() (string, []any) {
	if len(p.Conditions) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(p.Conditions))
	var args []any
	for _, cond := range p.Conditions {
		clauses = append(clauses, cond.Clause)
		args = append(args, cond.Args...)
	}
	return strings.Join(clauses, " AND "), args
}
