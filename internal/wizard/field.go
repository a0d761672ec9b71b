package wizard

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind selects how a field's raw input is normalized and validated.
type Kind string

const (
	KindText     Kind = "text"
	KindNote     Kind = "note"
	KindNumber   Kind = "number"
	KindInteger  Kind = "integer"
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindPassword Kind = "password"
	KindLocation Kind = "location"
	KindChoice   Kind = "choice"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9()\-.\s]{6,20}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const defaultPasswordLen = 6

// Field is one input owned by a step.
type Field struct {
	Key         string
	Label       string
	Kind        Kind
	Optional    bool
	Positive    bool           // number kinds: value must be > 0
	Pattern     *regexp.Regexp // applied to the trimmed raw value
	MinLen      int
	MaxLen      int
	Source      string // choice kind: option source name
	Placeholder string
	Hint        string
}

// FieldError reports why a raw input was rejected.
type FieldError struct {
	Key     string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// FieldErrors maps a field key to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for k, msg := range fe {
		parts = append(parts, k+": "+msg)
	}
	slices.Sort(parts)
	return "invalid input: " + strings.Join(parts, "; ")
}

// LatKey and LngKey name the two raw inputs of a location field.
func LatKey(key string) string { return key + ".lat" }
func LngKey(key string) string { return key + ".lng" }

// Parse reads the field's raw input through get and returns the value to store.
// A nil value with a nil error means an optional field was left blank.
func (f Field) Parse(get func(name string) string) (any, error) {
	if f.Kind == KindLocation {
		return f.parseLocation(get)
	}

	raw := get(f.Key)
	if f.Kind != KindPassword {
		raw = strings.TrimSpace(raw)
	}
	if raw == "" {
		if f.Optional {
			return nil, nil
		}
		return nil, f.fail("is required")
	}
	if f.Pattern != nil && !f.Pattern.MatchString(raw) {
		return nil, f.fail("has an invalid format")
	}
	if f.MaxLen > 0 && utf8.RuneCountInString(raw) > f.MaxLen {
		return nil, f.fail(fmt.Sprintf("must be at most %d characters", f.MaxLen))
	}

	switch f.Kind {
	case KindNumber, KindInteger:
		return f.parseNumber(raw)
	case KindEmail:
		if !emailPattern.MatchString(raw) {
			return nil, f.fail("must be a valid email address")
		}
		if _, err := mail.ParseAddress(raw); err != nil {
			return nil, f.fail("must be a valid email address")
		}
		return strings.ToLower(raw), nil
	case KindPhone:
		if !phonePattern.MatchString(raw) {
			return nil, f.fail("must be a valid phone number")
		}
		return raw, nil
	case KindPassword:
		minLen := f.MinLen
		if minLen == 0 {
			minLen = defaultPasswordLen
		}
		if utf8.RuneCountInString(raw) < minLen {
			return nil, f.fail(fmt.Sprintf("must be at least %d characters", minLen))
		}
		return raw, nil
	default:
		if f.MinLen > 0 && utf8.RuneCountInString(raw) < f.MinLen {
			return nil, f.fail(fmt.Sprintf("must be at least %d characters", f.MinLen))
		}
		return raw, nil
	}
}

func (f Field) parseNumber(raw string) (any, error) {
	n, err := parseDecimal(raw)
	if err != nil {
		return nil, f.fail("must be a number")
	}
	if f.Kind == KindInteger && n != float64(int64(n)) {
		return nil, f.fail("must be a whole number")
	}
	if f.Positive && n <= 0 {
		return nil, f.fail("must be greater than 0")
	}
	return n, nil
}

func (f Field) parseLocation(get func(name string) string) (any, error) {
	latRaw := strings.TrimSpace(get(LatKey(f.Key)))
	lngRaw := strings.TrimSpace(get(LngKey(f.Key)))
	if latRaw == "" && lngRaw == "" {
		if f.Optional {
			return nil, nil
		}
		return nil, f.fail("pick a location")
	}
	lat, err := parseDecimal(latRaw)
	if err != nil || lat < -90 || lat > 90 {
		return nil, f.fail("latitude must be between -90 and 90")
	}
	lng, err := parseDecimal(lngRaw)
	if err != nil || lng < -180 || lng > 180 {
		return nil, f.fail("longitude must be between -180 and 180")
	}
	return map[string]any{"lat": lat, "lng": lng}, nil
}

func (f Field) fail(msg string) error {
	return &FieldError{Key: f.Key, Message: msg}
}

var errNotFinite = errors.New("not a finite number")

// parseDecimal accepts either a dot or a comma as the decimal separator.
// NaN and infinities are rejected: records are stored as JSON.
func parseDecimal(raw string) (float64, error) {
	n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errNotFinite
	}
	return n, nil
}
