package query

import "strings"

// Operator is a comparison a Cond lowers to.
type Operator string

const (
	OpEqual Operator = "="
	OpLike  Operator = "LIKE"
)

// Cond compares one column against a bound value.
type Cond struct {
	Column string
	Op     Operator
	Value  any
}

// Eq returns column = value.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Op: OpEqual, Value: value}
}

// Like returns column LIKE pattern with the package escape character.
func Like(column, pattern string) Cond {
	return Cond{Column: column, Op: OpLike, Value: pattern}
}

// Group is a disjunction of conditions.
type Group []Cond

// Predicate is a conjunction of groups. Values never reach the SQL text:
// every condition lowers to a ? placeholder.
type Predicate struct {
	Groups []Group
}

// And appends one OR-group. Empty groups are ignored.
func (p *Predicate) And(conds ...Cond) {
	if len(conds) == 0 {
		return
	}
	p.Groups = append(p.Groups, Group(conds))
}

// IsEmpty reports whether the predicate has no groups.
func (p Predicate) IsEmpty() bool {
	return len(p.Groups) == 0
}

// SQL lowers the predicate to "(a OR b) AND (c)" with columns qualified by
// table. Column and table names must already be validated identifiers.
func (p Predicate) SQL(table string) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	for i, g := range p.Groups {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteByte('(')
		for j, c := range g {
			if j > 0 {
				sb.WriteString(" OR ")
			}
			sb.WriteString(table)
			sb.WriteByte('.')
			sb.WriteString(c.Column)
			sb.WriteByte(' ')
			sb.WriteString(string(c.Op))
			sb.WriteString(" ?")
			if c.Op == OpLike {
				sb.WriteString(` ESCAPE '` + likeEscape + `'`)
			}
			args = append(args, c.Value)
		}
		sb.WriteByte(')')
	}
	return sb.String(), args
}
