package http

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chipdash/internal/core"
	"chipdash/internal/storage"
)

// templateFuncs are the helpers available inside the embedded templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"yen":    formatYen,
		"period": func(s core.Sale) string { return string(s.DisplayPeriod()) },
	}
}

// formatYen renders an integer amount as a yen string with thousands
// separators (e.g. "¥12,800").
func formatYen(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("¥")
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formInt64 parses an optional integer form/query value, returning def
// when blank or unparsable.
func formInt64(v string, def int64) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func formInt(v string, def int) int {
	return int(formInt64(v, int64(def)))
}

// queryPeriod reads a period parameter, dropping malformed values.
func queryPeriod(r *http.Request, key string) core.Period {
	p := core.Period(strings.TrimSpace(r.URL.Query().Get(key)))
	if p == "" || !p.Valid() {
		return ""
	}
	return p
}

// salesQueryFromRequest builds the row filter from query parameters:
// store (0 = all), inclusive start/end periods defaulting to the
// calendar year to date, and a row limit.
func salesQueryFromRequest(r *http.Request, defaultLimit int) storage.SalesQuery {
	q := storage.SalesQuery{
		StoreID: formInt64(r.URL.Query().Get("store"), storage.AllStores),
		Start:   queryPeriod(r, "start"),
		End:     queryPeriod(r, "end"),
		Limit:   formInt(r.URL.Query().Get("limit"), defaultLimit),
	}
	if q.Start == "" && q.End == "" {
		now := time.Now().UTC()
		q.Start = core.StartOfYear(now)
		q.End = core.PeriodOf(now)
	}
	return q
}

// saleFromForm maps submitted form fields onto a sale. Price is coerced
// to an integer; blank optionals stay blank and become NULL in storage.
func saleFromForm(r *http.Request) core.Sale {
	price, _ := strconv.ParseInt(strings.TrimSpace(r.Form.Get("price_total")), 10, 64)
	return core.Sale{
		ChipType:    sanitizeInput(r.Form.Get("chip_type")),
		ChipNumber:  sanitizeInput(r.Form.Get("chip_number")),
		SizeCls:     core.SizeClass(sanitizeInput(r.Form.Get("size_cls"))),
		SizeDigits:  sanitizeInput(r.Form.Get("size_digits")),
		PriceTotal:  price,
		StoreID:     formInt64(r.Form.Get("store_id"), 0),
		ManualMonth: core.Period(sanitizeInput(r.Form.Get("manual_month"))),
		Note:        sanitizeInput(r.Form.Get("note")),
	}
}
