package normalizer

import (
	"regexp"
	"strings"

	"github.com/LiorShrago/BudgetBuddy/internal/dateutils"
)

// columns maps a record onto the canonical fields. Absent columns are -1.
type columns struct {
	header bool
	date   int
	desc   int
	amount int
	debit  int
	credit int
	kind   int
	// state, when present, holds a settlement status; only completed rows are kept.
	state int
}

func noColumns() columns {
	return columns{date: -1, desc: -1, amount: -1, debit: -1, credit: -1, kind: -1, state: -1}
}

// Layout describes one bank export format.
type Layout struct {
	Name string
	// DateFormats are tried before dateutils.AcceptedFormats.
	DateFormats []string
	// InvertSign is set for card exports where a positive amount is a charge.
	InvertSign bool

	// bind inspects the first record. forced is set when the caller named this
	// layout explicitly, in which case bind must always produce a mapping.
	bind func(first []string, forced bool) (columns, bool)
}

var (
	amexFormats = []string{dateutils.DateLayoutAmex, "2 Jan 2006", "2 January 2006", "2 January. 2006"}
	eqFormats   = []string{dateutils.DateLayoutEQ, "2-January-06", "2-Jan-2006", "2-January-2006"}
	isoFormats  = []string{dateutils.DateLayoutISO}
)

// Layouts returns the built-in layouts in detection order: header signatures
// first, then headerless row shapes.
func Layouts() []Layout {
	return []Layout{
		{
			Name:        "simplii",
			DateFormats: []string{dateutils.DateLayoutUS, dateutils.DateLayoutDayFirst},
			bind:        bindSimplii,
		},
		{
			Name:        "revolut",
			DateFormats: []string{dateutils.DateLayoutFull, dateutils.DateLayoutISO},
			bind:        bindRevolut,
		},
		{
			Name:        "td",
			DateFormats: []string{dateutils.DateLayoutUS, dateutils.DateLayoutISO, dateutils.DateLayoutDayFirst},
			bind:        bindTD,
		},
		{
			Name: "generic",
			bind: bindGeneric,
		},
		{
			Name:        "amex",
			DateFormats: amexFormats,
			InvertSign:  true,
			bind: headerless(amexFormats, 4, 0, func(c *columns) {
				c.date, c.desc, c.amount = 0, 1, 3
			}),
		},
		{
			Name:        "eq_bank",
			DateFormats: eqFormats,
			bind: headerless(eqFormats, 3, 0, func(c *columns) {
				c.date, c.desc, c.amount = 0, 1, 2
			}),
		},
		{
			Name:        "cibc",
			DateFormats: isoFormats,
			bind: headerless(isoFormats, 4, 0, func(c *columns) {
				c.date, c.desc, c.debit, c.credit = 0, 1, 2, 3
			}),
		},
		{
			Name:        "signed",
			DateFormats: isoFormats,
			bind: headerless(isoFormats, 3, 3, func(c *columns) {
				c.date, c.desc, c.amount = 0, 1, 2
			}),
		},
	}
}

// headerless matches files whose first cell is a date in one of formats and whose
// width is at least minCols (and at most maxCols when maxCols > 0).
func headerless(formats []string, minCols, maxCols int, assign func(*columns)) func([]string, bool) (columns, bool) {
	return func(first []string, forced bool) (columns, bool) {
		c := noColumns()
		assign(&c)
		if forced {
			c.header = !looksLikeDate(first)
			return c, true
		}
		width := len(first)
		if width < minCols || (maxCols > 0 && width > maxCols) {
			return c, false
		}
		return c, dateutils.Matches(cell(first, 0), formats...)
	}
}

func bindSimplii(first []string, forced bool) (columns, bool) {
	h := headerIndex(first)
	c := noColumns()
	c.header = true
	date, okDate := h["date"]
	desc, okDesc := h["transaction details"]
	out, okOut := h["funds out"]
	in, okIn := h["funds in"]
	if okDate && okDesc && okOut && okIn {
		c.date, c.desc, c.debit, c.credit = date, desc, out, in
		return c, true
	}
	if forced {
		c.header = !looksLikeDate(first)
		c.date, c.desc, c.debit, c.credit = 0, 1, 2, 3
		return c, true
	}
	return c, false
}

// bindRevolut maps the Revolut account export. The completed date is used and
// pending or reverted rows are dropped.
func bindRevolut(first []string, forced bool) (columns, bool) {
	h := headerIndex(first)
	c := noColumns()
	c.header = true
	date, okDate := h["completed date"]
	desc, okDesc := h["description"]
	amount, okAmount := h["amount"]
	state, okState := h["state"]
	_, okStarted := h["started date"]
	if okDate && okDesc && okAmount && okState && okStarted {
		c.date, c.desc, c.amount, c.state = date, desc, amount, state
		return c, true
	}
	if forced {
		c.header = !looksLikeDate(first)
		c.date, c.desc, c.amount, c.state = 3, 4, 5, 8
		return c, true
	}
	return c, false
}

// completed reports whether the row's status, if the layout has one, is final.
func (c columns) completed(record []string) bool {
	if c.state < 0 {
		return true
	}
	return strings.EqualFold(cell(record, c.state), "completed")
}

func bindTD(first []string, forced bool) (columns, bool) {
	c := noColumns()
	c.date, c.desc, c.debit = 0, 1, 2
	if len(first) > 3 {
		c.credit = 3
	}
	if len(first) >= 3 &&
		normalizeHeader(first[0]) == "date" &&
		normalizeHeader(first[1]) == "description" &&
		normalizeHeader(first[2]) == "debit" {
		c.header = true
		return c, true
	}
	if forced {
		c.header = !looksLikeDate(first)
		return c, true
	}
	return c, false
}

// Column name patterns for the generic header mapping, in classification order.
var genericPatterns = []struct {
	target func(*columns) *int
	re     *regexp.Regexp
}{
	{func(c *columns) *int { return &c.kind }, regexp.MustCompile(`^(type|transaction type|dr/cr|cr/dr|debit/credit|credit/debit)$`)},
	{func(c *columns) *int { return &c.date }, regexp.MustCompile(`date|posted`)},
	{func(c *columns) *int { return &c.debit }, regexp.MustCompile(`debit|withdrawal|funds out|money out|paid out|outflow`)},
	{func(c *columns) *int { return &c.credit }, regexp.MustCompile(`credit|deposit|funds in|money in|paid in|inflow`)},
	{func(c *columns) *int { return &c.amount }, regexp.MustCompile(`^(amount|amt|value|transaction amount)`)},
	{func(c *columns) *int { return &c.desc }, regexp.MustCompile(`description|details|memo|payee|merchant|narrative|name|particulars`)},
}

func bindGeneric(first []string, forced bool) (columns, bool) {
	c := noColumns()
	c.header = true
	names := first
	dataRow := looksLikeDate(first)
	if dataRow {
		names = nil
	}
	for i, raw := range names {
		name := normalizeHeader(raw)
		if name == "" {
			continue
		}
		for _, p := range genericPatterns {
			if !p.re.MatchString(name) {
				continue
			}
			if idx := p.target(&c); *idx < 0 {
				*idx = i
			}
			break
		}
	}
	if c.date >= 0 && c.desc >= 0 && (c.amount >= 0 || c.debit >= 0 || c.credit >= 0) {
		return c, true
	}
	if forced {
		c = noColumns()
		c.header = !dataRow
		c.date, c.desc, c.amount = 0, 1, 2
		return c, true
	}
	return c, false
}

func headerIndex(record []string) map[string]int {
	idx := make(map[string]int, len(record))
	for i, raw := range record {
		name := normalizeHeader(raw)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func looksLikeDate(record []string) bool {
	_, _, err := dateutils.ParseDate(cell(record, 0))
	return err == nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
