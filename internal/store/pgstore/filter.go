package pgstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/catalog/internal/core"
)

// buildFilter renders filter as " AND ..." clauses over the JSONB body.
// Placeholders start at $first; keys are sorted for stable SQL.
func buildFilter(filter core.Record, first int) (string, []any, error) {
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
	n := first
	for _, k := range keys {
		v := filter[k]
		if v == nil {
			fmt.Fprintf(&sb, " AND coalesce(jsonb_typeof(body -> $%d::text), 'null') = 'null'", n)
			args = append(args, k)
			n++
			continue
		}

		raw, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter %s: %w", k, err)
		}
		fmt.Fprintf(&sb, " AND body -> $%d::text = $%d::jsonb", n, n+1)
		args = append(args, k, string(raw))
		n += 2
	}
	return sb.String(), args, nil
}
