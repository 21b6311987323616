package edm

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odataq/internal/queryerr"
)

func TestParseLiteralCanonicalRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		typ      SimpleType
		text     string
		expected string
	}{
		{"string", TypeString, "hello world", "hello world"},
		{"empty string", TypeString, "", ""},
		{"boolean", TypeBoolean, "true", "true"},
		{"byte", TypeByte, "255", "255"},
		{"int16", TypeInt16, "-32768", "-32768"},
		{"int32", TypeInt32, "42", "42"},
		{"int64", TypeInt64, "9223372036854775807", "9223372036854775807"},
		{"single", TypeSingle, "2.5", "2.5"},
		{"double", TypeDouble, "2.5", "2.5"},
		{"double integral", TypeDouble, "3.0", "3"},
		{"double large", TypeDouble, "1E+21", "1E+21"},
		{"double small", TypeDouble, "0.000001", "0.000001"},
		{"double tiny", TypeDouble, "1E-7", "1E-07"},
		{"decimal keeps scale", TypeDecimal, "1.50", "1.50"},
		{"guid lower-cased", TypeGuid, "0F8FAD5B-D9CB-469F-A165-70867728950E", "0f8fad5b-d9cb-469f-a165-70867728950e"},
		{"binary upper-cased", TypeBinary, "0aff", "0AFF"},
		{"datetime", TypeDateTime, "2024-03-01T10:00:00", "2024-03-01T10:00:00"},
		{"datetime fraction", TypeDateTime, "2024-03-01T10:00:00.5", "2024-03-01T10:00:00.5"},
		{"datetime short", TypeDateTime, "2024-03-01T10:00", "2024-03-01T10:00:00"},
		{"datetimeoffset", TypeDateTimeOffset, "2024-03-01T10:00:00+02:00", "2024-03-01T10:00:00+02:00"},
		{"datetimeoffset utc", TypeDateTimeOffset, "2024-03-01T10:00:00Z", "2024-03-01T10:00:00Z"},
		{"time", TypeTime, "13:20:00", "13:20:00"},
		{"time short", TypeTime, "13:20", "13:20:00"},
		{"time fraction", TypeTime, "13:20:00.25", "13:20:00.25"},
		{"time iso", TypeTime, "PT13H20M", "13:20:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseLiteral(tt.text, tt.typ, Facets{})
			require.NoError(t, err)
			assert.Equal(t, tt.typ, v.Type())
			assert.Equal(t, tt.expected, CanonicalString(v))

			again, err := ParseLiteral(CanonicalString(v), tt.typ, Facets{})
			require.NoError(t, err)
			assert.True(t, Equal(v, again), "parse(print(v)) must equal v")
		})
	}
}

func TestParseLiteralRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		typ    SimpleType
		text   string
		facets Facets
	}{
		{"boolean", TypeBoolean, "yes", Facets{}},
		{"byte overflow", TypeByte, "256", Facets{}},
		{"int32 overflow", TypeInt32, "2147483648", Facets{}},
		{"int32 text", TypeInt32, "forty", Facets{}},
		{"decimal infinite", TypeDecimal, "Infinity", Facets{}},
		{"guid", TypeGuid, "not-a-guid", Facets{}},
		{"binary odd", TypeBinary, "ABC", Facets{}},
		{"datetime", TypeDateTime, "2024-13-01T00:00:00", Facets{}},
		{"time hour", TypeTime, "24:00:00", Facets{}},
		{"time iso day", TypeTime, "PT25H", Facets{}},
		{"max length", TypeString, "abcd", Facets{MaxLength: 3}},
		{"binary max length", TypeBinary, "0A0B", Facets{MaxLength: 1}},
		{"decimal scale", TypeDecimal, "1.234", Facets{Scale: 2}},
		{"decimal precision", TypeDecimal, "12345", Facets{Precision: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLiteral(tt.text, tt.typ, tt.facets)
			require.Error(t, err)
			assert.True(t, queryerr.IsLiteralFormat(err), "got %v", err)
		})
	}
}

func TestParseLiteralMaxLengthCountsRunes(t *testing.T) {
	v, err := ParseLiteral("héllo", TypeString, Facets{MaxLength: 5})
	require.NoError(t, err)
	assert.Equal(t, "héllo", CanonicalString(v))
}

func TestCanonicalStringSpecialFloats(t *testing.T) {
	assert.Equal(t, "NaN", CanonicalString(NewDouble(math.NaN())))
	assert.Equal(t, "INF", CanonicalString(NewDouble(math.Inf(1))))
	assert.Equal(t, "-INF", CanonicalString(NewDouble(math.Inf(-1))))
	assert.Equal(t, "0", CanonicalString(NewDouble(0)))
}

func TestNewDateTimeDropsZone(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	v := NewDateTime(time.Date(2024, 3, 1, 10, 0, 0, 0, loc))
	assert.Equal(t, "2024-03-01T10:00:00", CanonicalString(v))
}

func TestValueNullString(t *testing.T) {
	assert.Equal(t, "null", Null(TypeInt32).String())
	assert.Equal(t, "null", Value{}.String())
	assert.True(t, Value{}.IsNull())
	assert.Equal(t, TypeUnknown, Value{}.Type())
}
