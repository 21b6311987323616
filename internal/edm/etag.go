package edm

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainETag separates entity tag hashes from any other hash over the same
// bytes. The version suffix allows a future change of the hashed form.
const DomainETag = "odataq/etag/v1"

// ETag computes a weak entity tag over the values of an entity's
// fixed-concurrency properties, in declaration order.
//
// Format: W/"hex(SHA256(domain + 0x00 + uri_1 + 0x00 + uri_2 ...))" where
// uri_i is the URI literal of the i-th value. URI literals keep nulls and
// types distinguishable, so "1" and 1L produce different tags.
func ETag(values []Value) string {
	h := sha256.New()
	h.Write([]byte(DomainETag))
	for _, v := range values {
		h.Write([]byte{0x00})
		h.Write([]byte(URILiteral(v)))
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil)) + `"`
}
