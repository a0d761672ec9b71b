package wizard

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Record is the data a wizard has accumulated across its steps.
// Values use JSON-native shapes (string, float64, bool, map[string]any, []any)
// so a record reads back identically after a round trip through a Backend.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)
	return out
}

// Merge returns a new record with patch applied over r.
// Keys in patch replace same-named keys; every other key is kept.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	maps.Copy(out, patch)
	return out
}

// Present reports whether key holds a usable value.
// nil, "", false and empty collections count as absent; numbers are always present.
func (r Record) Present(key string) bool {
	return present(r[key])
}

// Missing returns the keys that are not present, in the order given.
func (r Record) Missing(keys []string) []string {
	var missing []string
	for _, k := range keys {
		if !r.Present(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// String returns the value of key formatted for display, or "" if absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any:
		if lat, ok := x["lat"]; ok {
			return fmt.Sprintf("%v, %v", lat, x["lng"])
		}
	}
	return fmt.Sprint(v)
}

// Float returns key as a number, accepting numeric strings.
func (r Record) Float(key string) (float64, bool) {
	switch x := r[key].(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", "."), 64)
		return f, err == nil
	}
	return 0, false
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case map[string]any:
		return len(x) > 0
	case Record:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case []string:
		return len(x) > 0
	default:
		return true
	}
}

// Decode converts a record into a typed value using `wizard` struct tags.
// Input is weakly typed so "2.5" decodes into a float64 field and numbers into strings.
func Decode[T any](rec Record) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "wizard",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return out, fmt.Errorf("creating record decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return out, fmt.Errorf("decoding record: %w", err)
	}
	return out, nil
}
