package paging

import (
	"net/url"
	"strings"
)

// NextLink rewrites a request URI to continue at token: every $skip and
// $skiptoken parameter is removed, empty parameters left by dangling "&"
// or "?" are dropped, and $skiptoken=<token> is appended. The remaining
// parameters keep their order and encoding.
//
//	NextLink("/People?$skip=5&$filter=Age%20gt%201&", "7") == "/People?$filter=Age%20gt%201&$skiptoken=7"
func NextLink(uri, token string) string {
	base, query, _ := strings.Cut(uri, "?")

	var kept []string
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		name, _, _ := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if name == "$skip" || name == "$skiptoken" {
			continue
		}
		kept = append(kept, part)
	}
	kept = append(kept, "$skiptoken="+url.QueryEscape(token))
	return base + "?" + strings.Join(kept, "&")
}
