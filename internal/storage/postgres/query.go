package postgres

import (
	"fmt"
	"strings"
)

// whereClause собирает условия WHERE с позиционными параметрами.
type whereClause struct {
	conds []string
	args  []any
}

// add добавляет условие; "?" в выражении заменяется на следующий $N.
func (w *whereClause) add(expr string, value any) {
	w.args = append(w.args, value)
	w.conds = append(w.conds, strings.Replace(expr, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

// addRaw добавляет условие без параметров.
func (w *whereClause) addRaw(expr string) {
	w.conds = append(w.conds, expr)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
