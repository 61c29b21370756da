package catalog

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pc-build-advisor-be/internal/constant"
	"pc-build-advisor-be/internal/entity"
)

// ErrEmptyResult means the whole dump produced zero components. Individual
// malformed rows are skipped and counted; only a fully barren input is fatal
// because it signals a format mismatch upstream.
var ErrEmptyResult = errors.New("catalog: no components parsed from input")

// ParseStats reports what happened during one parse run.
type ParseStats struct {
	Statements int
	Rows       int
	RowErrors  int
	Tables     map[string]int
}

// Parser turns a relational dump stream into Components. It understands
// MySQL-style dumps: CREATE TABLE statements define per-table column order,
// INSERT statements (with or without explicit column lists) carry the rows,
// and vendor comment syntax is stripped before interpretation.
type Parser struct {
	columnsByTable map[string][]string
	stats          ParseStats
}

func NewParser() *Parser {
	return &Parser{
		columnsByTable: make(map[string][]string),
		stats:          ParseStats{Tables: make(map[string]int)},
	}
}

// Stats returns counters from the last Parse call.
func (p *Parser) Stats() ParseStats {
	return p.stats
}

// Parse consumes the dump and returns every parseable row as a Component.
// Malformed rows are skipped, never aborting the run. Returns ErrEmptyResult
// only when the entire input yields nothing.
func (p *Parser) Parse(r io.Reader) ([]entity.Component, error) {
	p.stats = ParseStats{Tables: make(map[string]int)}

	var components []entity.Component
	scanner := newStatementScanner(r)
	for {
		stmt, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read input: %w", err)
		}
		p.stats.Statements++

		upper := strings.ToUpper(stmt)
		switch {
		case strings.HasPrefix(upper, "CREATE TABLE"):
			p.handleCreateTable(stmt)
		case strings.HasPrefix(upper, "INSERT INTO"):
			components = append(components, p.handleInsert(stmt)...)
		}
	}

	if len(components) == 0 {
		return nil, ErrEmptyResult
	}
	return components, nil
}

// handleCreateTable records the column order of a table so later positional
// INSERTs can be mapped to field names.
func (p *Parser) handleCreateTable(stmt string) {
	open := strings.Index(stmt, "(")
	if open < 0 {
		return
	}
	table := parseTableName(stmt[len("CREATE TABLE"):open])
	if table == "" {
		return
	}

	body := stmt[open+1:]
	if close := strings.LastIndex(body, ")"); close >= 0 {
		body = body[:close]
	}

	var columns []string
	for _, def := range splitTopLevel(body) {
		col := parseColumnName(def)
		if col != "" {
			columns = append(columns, col)
		}
	}
	if len(columns) > 0 {
		p.columnsByTable[table] = columns
	}
}

// handleInsert maps every value tuple of an INSERT onto the column order,
// skipping tuples whose arity or nesting is broken.
func (p *Parser) handleInsert(stmt string) []entity.Component {
	rest := stmt[len("INSERT INTO"):]

	valuesIdx := indexWordOutsideQuotes(rest, "VALUES")
	if valuesIdx < 0 {
		p.stats.RowErrors++
		return nil
	}

	head := rest[:valuesIdx]
	table := ""
	columns := []string(nil)

	if open := strings.Index(head, "("); open >= 0 {
		// Explicit column list: INSERT INTO t (a, b, c) VALUES ...
		table = parseTableName(head[:open])
		body := head[open+1:]
		if close := strings.LastIndex(body, ")"); close >= 0 {
			body = body[:close]
		}
		for _, c := range splitTopLevel(body) {
			columns = append(columns, unquoteIdentifier(c))
		}
	} else {
		table = parseTableName(head)
		columns = p.columnsByTable[table]
	}

	if table == "" {
		p.stats.RowErrors++
		return nil
	}
	if len(columns) == 0 {
		// Positional insert with no schema seen for this table: every row
		// of the statement is unmappable.
		p.stats.RowErrors++
		return nil
	}

	tuples, ok := parseTuples(rest[valuesIdx+len("VALUES"):])
	if !ok {
		// A corrupt trailing tuple loses only itself; complete tuples
		// before it still map to rows.
		p.stats.RowErrors++
		if len(tuples) == 0 {
			return nil
		}
	}

	var out []entity.Component
	for _, values := range tuples {
		if len(values) != len(columns) {
			p.stats.RowErrors++
			continue
		}
		c, err := p.buildComponent(table, columns, values)
		if err != nil {
			p.stats.RowErrors++
			continue
		}
		p.stats.Rows++
		p.stats.Tables[table]++
		out = append(out, c)
	}
	return out
}

// buildComponent assembles a Component from one mapped row. NULL and empty
// markers become absent fields rather than empty strings.
func (p *Parser) buildComponent(table string, columns []string, values []sqlValue) (entity.Component, error) {
	category, ok := constant.TableCategory[strings.ToLower(table)]
	if !ok {
		category = strings.ToLower(table)
	}

	specs := make(map[string]string)
	var name, rowId, imageURL string
	var price *int

	for i, col := range columns {
		v := values[i]
		if v.null || strings.TrimSpace(v.text) == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(col))
		val := strings.TrimSpace(v.text)

		switch key {
		case "id", "no", "seq":
			rowId = val
		case "name", "model", "title", "product_name":
			name = val
		case "price", "cost", "latest_price":
			price = parsePrice(val)
		case "image", "image_url", "img", "link":
			imageURL = val
		default:
			specs[key] = val
		}
	}

	if name == "" {
		return entity.Component{}, fmt.Errorf("row has no name column")
	}
	if rowId == "" {
		rowId = slugify(name)
	}

	return entity.Component{
		Id:       category + "-" + rowId,
		Category: category,
		Name:     name,
		Price:    price,
		Specs:    specs,
		KeySpecs: pickKeySpecs(specs),
		ImageURL: imageURL,
	}, nil
}

// keySpecPriority orders which spec fields make the display subset.
var keySpecPriority = []string{
	constant.SpecSocket, constant.SpecMemoryType, constant.SpecFormFactor,
	"cores", "threads", "clock", "boost_clock", "capacity", "chipset",
	constant.SpecWattage, constant.SpecTDP, "vram", "interface",
}

func pickKeySpecs(specs map[string]string) []string {
	var keys []string
	for _, k := range keySpecPriority {
		if v, ok := specs[k]; ok {
			keys = append(keys, k+": "+v)
			if len(keys) == 4 {
				break
			}
		}
	}
	return keys
}

// parsePrice accepts "1234", "1,234,000", "$1234". Negative or garbage
// prices are treated as unknown.
func parsePrice(s string) *int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return -1
	}, s)
	n, err := strconv.Atoi(cleaned)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func parseTableName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "IF NOT EXISTS")
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t\n"); i >= 0 {
		s = s[:i]
	}
	s = unquoteIdentifier(s)
	// Drop schema qualifier: db.table -> table
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// parseColumnName extracts the leading identifier of a column definition,
// returning "" for constraint clauses (PRIMARY KEY, KEY, CONSTRAINT, ...).
func parseColumnName(def string) string {
	def = strings.TrimSpace(def)
	if def == "" {
		return ""
	}
	first := def
	if i := strings.IndexAny(def, " \t\n("); i >= 0 {
		first = def[:i]
	}
	switch strings.ToUpper(unquoteIdentifier(first)) {
	case "PRIMARY", "UNIQUE", "KEY", "INDEX", "CONSTRAINT", "FOREIGN", "CHECK", "FULLTEXT", "SPATIAL":
		return ""
	}
	return unquoteIdentifier(first)
}

func unquoteIdentifier(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`\"[]")
	return s
}
