package table

import (
	"fmt"
	"os"
	"sort"

	"github.com/parquet-go/parquet-go"
)

type colKind int

const (
	kindString colKind = iota
	kindDouble
	kindInt64
	kindBool
)

// inferKinds picks one physical type per column from the observed values.
// Mixed int/float columns widen to double; anything else falls back to
// string.
func (t *Table) inferKinds() map[string]colKind {
	kinds := make(map[string]colKind, len(t.cols))
	for _, c := range t.cols {
		kind, seen := kindString, false
		for _, row := range t.rows {
			v, ok := row[c]
			if !ok || v == nil {
				continue
			}
			var k colKind
			switch v.(type) {
			case float64, float32:
				k = kindDouble
			case int, int64:
				k = kindInt64
			case bool:
				k = kindBool
			default:
				k = kindString
			}
			if !seen {
				kind, seen = k, true
				continue
			}
			if kind != k {
				if (kind == kindDouble && k == kindInt64) || (kind == kindInt64 && k == kindDouble) {
					kind = kindDouble
				} else {
					kind = kindString
				}
			}
		}
		kinds[c] = kind
	}
	return kinds
}

// WriteParquet writes the table as a parquet file at path. Every column is
// optional; nil cells become nulls.
func (t *Table) WriteParquet(path string) error {
	kinds := t.inferKinds()

	// parquet groups order fields by name; mirror that for row assembly
	sorted := append([]string(nil), t.cols...)
	sort.Strings(sorted)

	fields := parquet.Group{}
	for _, c := range sorted {
		var node parquet.Node
		switch kinds[c] {
		case kindDouble:
			node = parquet.Leaf(parquet.DoubleType)
		case kindInt64:
			node = parquet.Leaf(parquet.Int64Type)
		case kindBool:
			node = parquet.Leaf(parquet.BooleanType)
		default:
			node = parquet.String()
		}
		fields[c] = parquet.Optional(node)
	}
	schema := parquet.NewSchema("table", fields)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[any](f, schema)
	rows := make([]parquet.Row, 0, len(t.rows))
	for _, r := range t.rows {
		row := make(parquet.Row, 0, len(sorted))
		for i, c := range sorted {
			v, ok := r[c]
			if !ok || v == nil {
				row = append(row, parquet.NullValue().Level(0, 0, i))
				continue
			}
			row = append(row, parquet.ValueOf(coerce(v, kinds[c])).Level(0, 1, i))
		}
		rows = append(rows, row)
	}
	if _, err := w.WriteRows(rows); err != nil {
		w.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

func coerce(v any, kind colKind) any {
	switch kind {
	case kindDouble:
		switch x := v.(type) {
		case float64:
			return x
		case float32:
			return float64(x)
		case int:
			return float64(x)
		case int64:
			return float64(x)
		}
	case kindInt64:
		switch x := v.(type) {
		case int:
			return int64(x)
		case int64:
			return x
		}
	case kindString:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return v
}
