package util

import (
	"fmt"
	"strings"
	"time"
)

// ToPlainStrings renders a row for display. NULL is shown as "NULL",
// byte slices as text and times without zone.
func ToPlainStrings(row []interface{}) []string {
	vals := make([]string, 0, len(row))
	for _, v := range row {
		switch x := v.(type) {
		case nil:
			vals = append(vals, "NULL")
		case []byte:
			vals = append(vals, strings.TrimRight(string(x), " "))
		case string:
			vals = append(vals, strings.TrimRight(x, " "))
		case time.Time:
			vals = append(vals, x.Format("2006-01-02 15:04:05.000"))
		default:
			vals = append(vals, fmt.Sprint(x))
		}
	}
	return vals
}
