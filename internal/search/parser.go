// Package search turns the raw admin order search string into a structured
// filter for the query rewriter.
package search

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/Aman-CERP/orderindex/internal/metrics"
	"github.com/Aman-CERP/orderindex/internal/query"
)

// tokenPattern matches key:value and key=value tokens. Values may be single
// or double quoted to hold spaces. A value that opens a quote without closing
// it does not match and stays in the free text.
var tokenPattern = regexp.MustCompile(`(^|\s)([A-Za-z][A-Za-z0-9_]*)[:=]("[^"]*"|'[^']*'|[^\s"']\S*)`)

// keyCriteria maps search keys to filter criteria.
var keyCriteria = map[string]query.Criterion{
	"email":      query.CustomerEmail,
	"mail":       query.CustomerEmail,
	"name":       query.CustomerName,
	"post":       query.CustomerPostcode,
	"postal":     query.CustomerPostcode,
	"zip":        query.CustomerPostcode,
	"postcode":   query.CustomerPostcode,
	"postalcode": query.CustomerPostcode,
	"zipcode":    query.CustomerPostcode,
	"suburb":     query.CustomerCity,
	"address":    query.CustomerCity,
	"city":       query.CustomerCity,
}

// Result is the outcome of parsing one search string.
type Result struct {
	Filter query.FilterRequest

	// Suppress is true when any criterion was produced. The caller must then
	// skip its default free-text search for the same string.
	Suppress bool

	// Dropped lists the keys of tokens with unrecognized keys.
	Dropped []string
}

// Parse extracts structured criteria from raw.
//
//	"john@x.com name:John" -> customer_email, customer_name
//	"#1007"                -> order_id
//	"acme corp"            -> full_search
func Parse(raw string) Result {
	var (
		res    Result
		tokens = make(map[string]string)
		order  []string
	)

	remainder := tokenPattern.ReplaceAllStringFunc(raw, func(m string) string {
		sub := tokenPattern.FindStringSubmatch(m)
		key := strings.ToLower(sub[2])
		if _, seen := tokens[key]; !seen {
			order = append(order, key)
		}
		tokens[key] = unquote(sub[3])
		return sub[1]
	})
	remainder = strings.Join(strings.Fields(remainder), " ")

	if isEmail(remainder) {
		res.Filter.Set(query.CustomerEmail, remainder)
		remainder = ""
	}

	if id, ok := strings.CutPrefix(remainder, "#"); ok && strings.TrimSpace(id) != "" {
		res.Filter.Set(query.OrderID, id)
		remainder = ""
	}

	for _, key := range order {
		c, ok := keyCriteria[key]
		if !ok {
			res.Dropped = append(res.Dropped, key)
			continue
		}
		if v := tokens[key]; v != "" {
			res.Filter.Set(c, v)
		}
	}

	if remainder != "" {
		res.Filter.Set(query.FullSearch, remainder)
	}

	res.Suppress = !res.Filter.IsEmpty()
	if res.Suppress {
		metrics.SearchParsesTotal.WithLabelValues("structured").Inc()
	} else {
		metrics.SearchParsesTotal.WithLabelValues("passthrough").Inc()
	}
	return res
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = v[1 : len(v)-1]
	}
	return strings.TrimSpace(v)
}

// isEmail accepts a bare addr-spec whose domain has a dot.
func isEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>\"") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}
