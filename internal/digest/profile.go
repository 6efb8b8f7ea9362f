package digest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Cardinality classes from the distinct/non-null ratio.
const (
	cardUnique   = "unique"
	cardHigh     = "high"
	cardMedium   = "medium"
	cardLow      = "low"
	cardConstant = "constant"

	highCardinalityRatio   = 0.9
	mediumCardinalityRatio = 0.3

	// dominantTypeFrac is the share of sampled non-null values a single
	// runtime type must reach before it is reported as the actual type.
	dominantTypeFrac = 0.8

	// entropySampleCap bounds the concatenated text the entropy estimate
	// reads; beyond this the estimate has converged anyway.
	entropySampleCap = 8192
)

type columnMeta struct {
	Name     string
	DeclType string
	PK       bool
}

func (d *Digestor) profileTable(ctx context.Context, q Querier, name string) (TableDigest, error) {
	cols, err := tableColumns(ctx, q, name)
	if err != nil {
		return TableDigest{}, err
	}
	table := TableDigest{Name: name}

	rows, cancel, err := q.Query(ctx, `SELECT count(*) FROM `+quoteIdent(name))
	if err != nil {
		return TableDigest{}, fmt.Errorf("count rows: %w", err)
	}
	if rows.Next() {
		if err := rows.Scan(&table.RowCount); err != nil {
			rows.Close()
			cancel()
			return TableDigest{}, fmt.Errorf("scan row count: %w", err)
		}
	}
	rows.Close()
	cancel()

	if len(cols) > d.opts.MaxColumns {
		cols = cols[:d.opts.MaxColumns]
		table.ColumnsTruncated = true
	}

	samples, err := d.sampleRows(ctx, q, name, cols)
	if err != nil {
		return TableDigest{}, err
	}
	for i, meta := range cols {
		table.Columns = append(table.Columns, profileColumn(meta, samples[i]))
	}
	return table, nil
}

func tableColumns(ctx context.Context, q Querier, name string) ([]columnMeta, error) {
	rows, cancel, err := q.Query(ctx, `SELECT name, type, pk FROM pragma_table_info(?)`, name)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var cols []columnMeta
	for rows.Next() {
		var c columnMeta
		var pk int
		if err := rows.Scan(&c.Name, &c.DeclType, &pk); err != nil {
			return nil, fmt.Errorf("scan column info: %w", err)
		}
		c.PK = pk > 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// sampleRows pulls a random sample and splits it into per-column value
// slices, index-aligned with cols.
func (d *Digestor) sampleRows(ctx context.Context, q Querier, name string, cols []columnMeta) ([][]any, error) {
	selected := make([]string, len(cols))
	for i, c := range cols {
		selected[i] = quoteIdent(c.Name)
	}
	rows, cancel, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY RANDOM() LIMIT %d`,
		strings.Join(selected, ", "), quoteIdent(name), d.opts.SampleRows))
	if err != nil {
		return nil, fmt.Errorf("sample rows: %w", err)
	}
	defer cancel()
	defer rows.Close()

	samples := make([][]any, len(cols))
	scan := make([]any, len(cols))
	for i := range scan {
		scan[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		for i := range cols {
			samples[i] = append(samples[i], *scan[i].(*any))
		}
	}
	return samples, rows.Err()
}

func profileColumn(meta columnMeta, values []any) ColumnDigest {
	col := ColumnDigest{
		Name:         meta.Name,
		DeclaredType: meta.DeclType,
		PrimaryKey:   meta.PK,
	}

	var nulls int
	typeCounts := make(map[string]int)
	distinct := make(map[string]bool)
	var texts []string
	var numMin, numMax float64
	var haveNum bool

	for _, v := range values {
		if v == nil {
			nulls++
			continue
		}
		kind, text, num, isNum := runtimeType(v, meta.DeclType)
		typeCounts[kind]++
		distinct[kind+"\x00"+text] = true
		if kind == "text" {
			texts = append(texts, text)
		}
		if isNum {
			if !haveNum || num < numMin {
				numMin = num
			}
			if !haveNum || num > numMax {
				numMax = num
			}
			haveNum = true
		}
	}

	total := len(values)
	nonNull := total - nulls
	if total > 0 {
		col.NullFrac = float64(nulls) / float64(total)
	}
	if nonNull == 0 {
		col.ActualType = "empty"
		col.Cardinality = cardConstant
		return col
	}

	col.ActualType = "mixed"
	for kind, n := range typeCounts {
		if float64(n) >= dominantTypeFrac*float64(nonNull) {
			col.ActualType = kind
			break
		}
	}
	col.Cardinality = cardinality(len(distinct), nonNull)

	if haveNum {
		col.Min = &numMin
		col.Max = &numMax
	}
	if len(texts) > 0 {
		minLen, maxLen, sum := len(texts[0]), len(texts[0]), 0
		for _, s := range texts {
			if len(s) < minLen {
				minLen = len(s)
			}
			if len(s) > maxLen {
				maxLen = len(s)
			}
			sum += len(s)
		}
		col.MinLen = minLen
		col.MaxLen = maxLen
		col.AvgLen = float64(sum) / float64(len(texts))
		col.Entropy = entropy(texts)
		// Patterns only mean something when text dominates the sample.
		if 2*len(texts) > nonNull {
			col.Pattern = classifyPattern(texts)
		}
	}
	return col
}

// runtimeType maps a driver value to an actual-type label, its textual form
// for distinct counting, and its numeric value when it has one.
func runtimeType(v any, declType string) (kind, text string, num float64, isNum bool) {
	switch t := v.(type) {
	case int64:
		return "integer", fmt.Sprintf("%d", t), float64(t), true
	case float64:
		return "real", fmt.Sprintf("%g", t), t, true
	case bool:
		return "integer", fmt.Sprintf("%t", t), 0, false
	case time.Time:
		return "datetime", t.Format(time.RFC3339Nano), 0, false
	case string:
		return "text", t, 0, false
	case []byte:
		if strings.Contains(strings.ToUpper(declType), "BLOB") {
			return "blob", string(t), 0, false
		}
		return "text", string(t), 0, false
	default:
		return "unknown", fmt.Sprintf("%v", t), 0, false
	}
}

func cardinality(distinct, nonNull int) string {
	if distinct <= 1 {
		return cardConstant
	}
	if distinct == nonNull {
		return cardUnique
	}
	ratio := float64(distinct) / float64(nonNull)
	switch {
	case ratio >= highCardinalityRatio:
		return cardHigh
	case ratio >= mediumCardinalityRatio:
		return cardMedium
	default:
		return cardLow
	}
}

// entropy estimates Shannon entropy in bits per byte over a bounded
// concatenation of the sampled text. Rough signal only: low for ids and
// enums, mid for prose, high for compressed or random data.
func entropy(texts []string) float64 {
	var counts [256]int
	total := 0
	for _, s := range texts {
		for i := 0; i < len(s) && total < entropySampleCap; i++ {
			counts[s[i]]++
			total++
		}
		if total >= entropySampleCap {
			break
		}
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}
