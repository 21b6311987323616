package edm

import (
	"strconv"
	"strings"

	"github.com/roach88/odataq/internal/queryerr"
)

// Quoted URI literal prefixes, longest first so that "datetimeoffset"
// wins over "datetime".
var quotedPrefixes = []struct {
	prefix string
	typ    SimpleType
}{
	{"datetimeoffset", TypeDateTimeOffset},
	{"datetime", TypeDateTime},
	{"binary", TypeBinary},
	{"guid", TypeGuid},
	{"time", TypeTime},
	{"X", TypeBinary},
}

// ParseURILiteral parses an OData URI literal, inferring its type from the
// literal's shape: quotes, type prefixes and numeric suffixes.
func ParseURILiteral(text string) (Value, error) {
	switch text {
	case "null":
		return Null(TypeUnknown), nil
	case "true":
		return NewBoolean(true), nil
	case "false":
		return NewBoolean(false), nil
	case "INF", "-INF", "NaN":
		return ParseLiteral(text, TypeDouble, Facets{})
	}

	if len(text) >= 2 && text[0] == '\'' && text[len(text)-1] == '\'' {
		s, ok := unquote(text[1 : len(text)-1])
		if !ok {
			return Value{}, queryerr.LiteralFormat(text, TypeString.String(), nil)
		}
		return NewString(s), nil
	}

	for _, qp := range quotedPrefixes {
		n := len(qp.prefix)
		if len(text) > n+1 && strings.EqualFold(text[:n], qp.prefix) && text[n] == '\'' && text[len(text)-1] == '\'' {
			return ParseLiteral(text[n+1:len(text)-1], qp.typ, Facets{})
		}
	}

	return parseNumericLiteral(text)
}

func parseNumericLiteral(text string) (Value, error) {
	if text == "" {
		return Value{}, queryerr.LiteralFormat(text, "URI", nil)
	}
	body := text[:len(text)-1]
	switch text[len(text)-1] {
	case 'L', 'l':
		return ParseLiteral(body, TypeInt64, Facets{})
	case 'M', 'm':
		return ParseLiteral(body, TypeDecimal, Facets{})
	case 'D', 'd':
		return ParseLiteral(body, TypeDouble, Facets{})
	case 'F', 'f':
		return ParseLiteral(body, TypeSingle, Facets{})
	}
	if strings.ContainsAny(text, ".eE") {
		return ParseLiteral(text, TypeDouble, Facets{})
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Value{}, queryerr.LiteralFormat(text, "URI", err)
	}
	if n >= -1<<31 && n < 1<<31 {
		return NewInt32(int32(n)), nil
	}
	return NewInt64(n), nil
}

// unquote resolves doubled single quotes; a lone quote is malformed.
func unquote(s string) (string, bool) {
	if !strings.Contains(s, "'") {
		return s, true
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			if i+1 >= len(s) || s[i+1] != '\'' {
				return "", false
			}
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String(), true
}

// URILiteral renders v in the OData URI literal grammar accepted by
// ParseURILiteral. Byte and Int16 values print as plain integers and read
// back as Int32.
func URILiteral(v Value) string {
	if v.IsNull() {
		return "null"
	}
	text := CanonicalString(v)
	switch v.typ {
	case TypeString:
		return "'" + strings.ReplaceAll(text, "'", "''") + "'"
	case TypeInt64:
		return text + "L"
	case TypeSingle:
		return text + "f"
	case TypeDouble:
		return text + "d"
	case TypeDecimal:
		return text + "M"
	case TypeGuid:
		return "guid'" + text + "'"
	case TypeBinary:
		return "X'" + text + "'"
	case TypeDateTime:
		return "datetime'" + text + "'"
	case TypeDateTimeOffset:
		return "datetimeoffset'" + text + "'"
	case TypeTime:
		return "time'" + text + "'"
	default:
		return text
	}
}
