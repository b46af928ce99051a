package store

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder assembles a parameterized WHERE clause. Conditions with an
// empty value are skipped, so optional filters can be added unconditionally.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n" unless value is empty.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.add(fmt.Sprintf("%s = $%d", column, wb.argIndex), value)
}

// AddSince appends "column >= $n" unless since is zero.
func (wb *WhereBuilder) AddSince(column string, since time.Time) {
	if since.IsZero() {
		return
	}
	wb.add(fmt.Sprintf("%s >= $%d", column, wb.argIndex), since.UTC())
}

// AddBefore appends "column < $n" unless before is zero.
func (wb *WhereBuilder) AddBefore(column string, before time.Time) {
	if before.IsZero() {
		return
	}
	wb.add(fmt.Sprintf("%s < $%d", column, wb.argIndex), before.UTC())
}

func (wb *WhereBuilder) add(cond string, arg any) {
	wb.conditions = append(wb.conditions, cond)
	wb.args = append(wb.args, arg)
	wb.argIndex++
}

// NextArgIndex returns the placeholder number the next argument will take.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the clause (with a leading " WHERE ") and its arguments.
// With no conditions it returns "" and nil.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
