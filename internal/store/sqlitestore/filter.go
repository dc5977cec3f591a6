package sqlitestore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/catalog/internal/core"
)

// buildFilter renders filter as " AND ..." clauses over the JSON body.
// Keys are sorted so equal filters produce identical SQL.
func buildFilter(filter core.Record) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		sb   strings.Builder
		args []any
	)
	for _, k := range keys {
		path := jsonPath(k)
		switch v := filter[k].(type) {
		case nil:
			sb.WriteString(" AND (json_type(body, ?) IS NULL OR json_type(body, ?) = 'null')")
			args = append(args, path, path)
		case bool:
			sb.WriteString(" AND json_type(body, ?) = ?")
			if v {
				args = append(args, path, "true")
			} else {
				args = append(args, path, "false")
			}
		case map[string]any, core.Record, []any:
			raw, err := json.Marshal(v)
			if err != nil {
				return "", nil, fmt.Errorf("encode filter %s: %w", k, err)
			}
			sb.WriteString(" AND json_extract(body, ?) = json(?)")
			args = append(args, path, string(raw))
		default:
			sb.WriteString(" AND json_extract(body, ?) = ?")
			args = append(args, path, v)
		}
	}
	return sb.String(), args, nil
}

// jsonPath quotes a field name as a single-segment JSON path.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}
