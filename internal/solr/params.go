package solr

import (
	"net/url"
	"strconv"

	"github.com/kailas-cloud/okp/internal/domain"
)

// buildParams renders the select query string. Filter values are quoted
// verbatim and sent as repeated fq parameters.
func buildParams(query string, rows int, f domain.Filters) url.Values {
	v := url.Values{}
	v.Set("q", query)
	v.Set("rows", strconv.Itoa(rows))
	v.Set("wt", "json")
	if f.Product != "" {
		v.Add("fq", `product:"`+f.Product+`"`)
	}
	if f.Version != "" {
		v.Add("fq", `documentation_version:"`+f.Version+`"`)
	}
	if f.DocumentKind != "" {
		v.Add("fq", `documentKind:"`+f.DocumentKind+`"`)
	}
	return v
}
