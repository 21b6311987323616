package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextLink(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		token    string
		expected string
	}{
		{"no query", "/People", "5", "/People?$skiptoken=5"},
		{"dangling question mark", "/People?", "5", "/People?$skiptoken=5"},
		{"replaces token", "/People?$skiptoken=3&$top=9", "5", "/People?$top=9&$skiptoken=5"},
		{"strips skip", "/People?$filter=x&$skip=10", "5", "/People?$filter=x&$skiptoken=5"},
		{"strips both", "/People?$skip=1&$skiptoken=2&$skip=3", "5", "/People?$skiptoken=5"},
		{"dangling ampersand", "/People?$filter=x&", "5", "/People?$filter=x&$skiptoken=5"},
		{"encoded name", "/People?%24skip=4&a=b", "5", "/People?a=b&$skiptoken=5"},
		{"keeps lookalikes", "/People?$skipper=1", "5", "/People?$skipper=1&$skiptoken=5"},
		{"escapes token", "/People", "3,'eu'", "/People?$skiptoken=3%2C%27eu%27"},
		{"absolute", "http://host/svc/People?$format=json", "7", "http://host/svc/People?$format=json&$skiptoken=7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextLink(tt.uri, tt.token))
		})
	}
}
