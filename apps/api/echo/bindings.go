package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kikundi/core"
	"github.com/trezcool/kikundi/core/student"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindStudentFilter reads the student.QueryFilter from the query string.
// An unparsable `ungrouped` value is ignored.
func bindStudentFilter(ctx echo.Context) *student.QueryFilter {
	filter := &student.QueryFilter{
		Search:     ctx.QueryParam("search"),
		Department: ctx.QueryParam("department"),
		Year:       ctx.QueryParam("year"),
		Skill:      ctx.QueryParam("skill"),
	}
	if val := ctx.QueryParam("ungrouped"); val != "" {
		if ungrouped, err := strconv.ParseBool(val); err == nil {
			filter.Ungrouped = &ungrouped
		}
	}
	filter.Clean()
	return filter
}
