package edm

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/roach88/odataq/internal/queryerr"
)

// Canonical layouts. DateTime is zone-less; the fractional part keeps full
// nanosecond precision so that parse(print(v)) is lossless.
const (
	dateTimeLayout      = "2006-01-02T15:04:05.999999999"
	dateTimeParseLayout = "2006-01-02T15:04:05"
	dateTimeShortLayout = "2006-01-02T15:04"
)

// CanonicalString renders a non-null value in its canonical textual form.
// It is the left inverse of ParseLiteral. Null renders as "null".
func CanonicalString(v Value) string {
	switch raw := v.raw.(type) {
	case nil:
		return "null"
	case string:
		return raw
	case bool:
		return strconv.FormatBool(raw)
	case uint8:
		return strconv.FormatUint(uint64(raw), 10)
	case int16:
		return strconv.FormatInt(int64(raw), 10)
	case int32:
		return strconv.FormatInt(int64(raw), 10)
	case int64:
		return strconv.FormatInt(raw, 10)
	case float32:
		return formatFloat(float64(raw), 32)
	case float64:
		return formatFloat(raw, 64)
	case *apd.Decimal:
		return raw.Text('f')
	case uuid.UUID:
		return raw.String()
	case []byte:
		return strings.ToUpper(hex.EncodeToString(raw))
	case time.Time:
		if v.typ == TypeDateTimeOffset {
			return raw.Format(time.RFC3339Nano)
		}
		return raw.Format(dateTimeLayout)
	case time.Duration:
		return formatClock(raw)
	default:
		return fmt.Sprint(raw)
	}
}

// formatFloat prints plain decimal notation inside [1e-6, 1e21) and
// exponent notation outside it. Integral results carry no ".0" suffix.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, bits)
	}
	return strconv.FormatFloat(f, 'E', -1, bits)
}

func formatClock(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ns := d - s*time.Second
	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if ns > 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", int64(ns)), "0")
		out += "." + frac
	}
	return out
}

// ParseLiteral parses the canonical textual form of a value of type t and
// validates it against the facets. Malformed text fails with a
// queryerr.CodeLiteralFormat error.
func ParseLiteral(text string, t SimpleType, f Facets) (Value, error) {
	v, err := parseLiteral(text, t)
	if err != nil {
		return Value{}, queryerr.LiteralFormat(text, t.String(), err)
	}
	if err := CheckFacets(v, f); err != nil {
		return Value{}, queryerr.LiteralFormat(text, t.String(), err)
	}
	return v, nil
}

func parseLiteral(text string, t SimpleType) (Value, error) {
	switch t {
	case TypeString:
		return NewString(text), nil
	case TypeBoolean:
		switch text {
		case "true":
			return NewBoolean(true), nil
		case "false":
			return NewBoolean(false), nil
		}
		return Value{}, errors.New("expected true or false")
	case TypeByte:
		n, err := strconv.ParseUint(text, 10, 8)
		return NewByte(uint8(n)), err
	case TypeInt16:
		n, err := strconv.ParseInt(text, 10, 16)
		return NewInt16(int16(n)), err
	case TypeInt32:
		n, err := strconv.ParseInt(text, 10, 32)
		return NewInt32(int32(n)), err
	case TypeInt64:
		n, err := strconv.ParseInt(text, 10, 64)
		return NewInt64(n), err
	case TypeSingle:
		n, err := strconv.ParseFloat(text, 32)
		return NewSingle(float32(n)), err
	case TypeDouble:
		n, err := strconv.ParseFloat(text, 64)
		return NewDouble(n), err
	case TypeDecimal:
		d, _, err := apd.NewFromString(text)
		if err != nil {
			return Value{}, err
		}
		if d.Form != apd.Finite {
			return Value{}, errors.New("decimal must be finite")
		}
		return NewDecimal(d), nil
	case TypeGuid:
		u, err := uuid.Parse(text)
		return NewGuid(u), err
	case TypeBinary:
		b, err := hex.DecodeString(text)
		if err != nil {
			return Value{}, err
		}
		if b == nil {
			b = []byte{}
		}
		return NewBinary(b), nil
	case TypeDateTime:
		ts, err := time.Parse(dateTimeParseLayout, text)
		if err != nil {
			var shortErr error
			ts, shortErr = time.Parse(dateTimeShortLayout, text)
			if shortErr != nil {
				return Value{}, err
			}
		}
		return NewDateTime(ts), nil
	case TypeDateTimeOffset:
		ts, err := time.Parse(time.RFC3339Nano, text)
		return NewDateTimeOffset(ts), err
	case TypeTime:
		d, err := parseTime(text)
		return NewTime(d), err
	default:
		return Value{}, fmt.Errorf("no literal form for %s", t)
	}
}

// CheckFacets reports whether v fits the MaxLength, Precision and Scale
// facets of f.
func CheckFacets(v Value, f Facets) error {
	switch raw := v.raw.(type) {
	case string:
		if f.MaxLength > 0 && utf8.RuneCountInString(raw) > f.MaxLength {
			return fmt.Errorf("length exceeds MaxLength %d", f.MaxLength)
		}
	case []byte:
		if f.MaxLength > 0 && len(raw) > f.MaxLength {
			return fmt.Errorf("length exceeds MaxLength %d", f.MaxLength)
		}
	case *apd.Decimal:
		if f.Scale > 0 && raw.Exponent < 0 && int(-raw.Exponent) > f.Scale {
			return fmt.Errorf("scale exceeds %d", f.Scale)
		}
		if f.Precision > 0 && int(raw.NumDigits()) > f.Precision {
			return fmt.Errorf("precision exceeds %d", f.Precision)
		}
	}
	return nil
}

// parseTime accepts the clock form hh:mm[:ss[.fffffffff]] and the
// ISO-8601 duration form PT[nH][nM][n[.f]S].
func parseTime(text string) (time.Duration, error) {
	if strings.HasPrefix(text, "PT") {
		return parseISODuration(text)
	}
	parts := strings.Split(text, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.New("expected hh:mm[:ss]")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 || len(parts[0]) != 2 {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, errors.New("invalid minute")
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	if len(parts) == 3 {
		secs, frac, _ := strings.Cut(parts[2], ".")
		s, err := strconv.Atoi(secs)
		if err != nil || s < 0 || s > 59 || len(secs) != 2 {
			return 0, errors.New("invalid second")
		}
		d += time.Duration(s) * time.Second
		if frac != "" {
			if len(frac) > 9 {
				return 0, errors.New("fraction beyond nanoseconds")
			}
			ns, err := strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
			if err != nil {
				return 0, errors.New("invalid fraction")
			}
			d += time.Duration(ns)
		}
	}
	return d, nil
}

func parseISODuration(text string) (time.Duration, error) {
	rest := strings.TrimPrefix(text, "PT")
	if rest == "" {
		return 0, errors.New("empty duration")
	}
	var d time.Duration
	for rest != "" {
		i := strings.IndexAny(rest, "HMS")
		if i <= 0 {
			return 0, errors.New("malformed duration")
		}
		n, err := strconv.ParseFloat(rest[:i], 64)
		if err != nil || n < 0 {
			return 0, errors.New("malformed duration component")
		}
		switch rest[i] {
		case 'H':
			d += time.Duration(n * float64(time.Hour))
		case 'M':
			d += time.Duration(n * float64(time.Minute))
		case 'S':
			d += time.Duration(math.Round(n * float64(time.Second)))
		}
		rest = rest[i+1:]
	}
	if d >= 24*time.Hour {
		return 0, errors.New("time of day out of range")
	}
	return d, nil
}
