// Package synth generates constraint-honoring example values from
// normalized schema nodes. Generation is deliberately cheap and
// deterministic in shape (never in content): the same schema always
// yields the same structure, with randomized leaf values.
package synth

import (
	"math"
	"math/rand"
	"reflect"
	"regexp"
	"time"

	"github.com/fauxapi/fauxd/internal/id"
	"github.com/fauxapi/fauxd/pkg/spec"
)

// optionalPropProbability is the chance a non-required object property
// is included in a synthesized value.
const optionalPropProbability = 0.70

// uniqueItemRetries bounds the attempts to replace a duplicate element
// in a uniqueItems array before accepting a shorter list.
const uniqueItemRetries = 5

// Synthesizer turns schema nodes into example values. The zero value is
// not usable; construct with New.
type Synthesizer struct {
	registry *Registry
}

// New returns a synthesizer backed by the given pattern registry.
// Pass nil to use the built-in defaults.
func New(registry *Registry) *Synthesizer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Synthesizer{registry: registry}
}

// Registry exposes the pattern registry so callers can register
// domain-specific patterns.
func (s *Synthesizer) Registry() *Registry {
	return s.registry
}

// Synthesize produces a value for the schema. propertyName, when known,
// feeds the pattern registry; pass "" at the root.
//
// Precedence: const, then enum (uniform pick), then a registry match on
// the property name, then type+format generation. The registry is only
// consulted for string-typed or untyped schemas so a name-based hit
// cannot contradict a declared numeric or boolean type.
func (s *Synthesizer) Synthesize(schema *spec.SchemaNode, propertyName string) any {
	if schema == nil {
		return nil
	}

	if schema.Const != nil {
		return schema.Const
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[rand.Intn(len(schema.Enum))]
	}

	// Variant choice happens here, per call, so repeated requests to
	// the same operation can exercise different candidates.
	if len(schema.OneOf) > 0 {
		return s.Synthesize(schema.OneOf[rand.Intn(len(schema.OneOf))], propertyName)
	}
	if len(schema.AnyOf) > 0 {
		return s.Synthesize(schema.AnyOf[rand.Intn(len(schema.AnyOf))], propertyName)
	}

	if schema.Type == "" || schema.Type == "string" {
		if v, ok := s.registry.Lookup(propertyName); ok {
			return v
		}
	}

	switch schema.Type {
	case "object":
		return s.synthObject(schema)
	case "array":
		return s.synthArray(schema)
	case "string":
		return s.synthString(schema)
	case "integer":
		return synthInteger(schema)
	case "number":
		return synthNumber(schema)
	case "boolean":
		return rand.Intn(2) == 0
	default:
		if len(schema.Properties) > 0 {
			return s.synthObject(schema)
		}
		return nil
	}
}

func (s *Synthesizer) synthObject(schema *spec.SchemaNode) map[string]any {
	obj := make(map[string]any, len(schema.Properties))
	if len(schema.Properties) == 0 {
		return obj
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var optionalIncluded, optionalSkipped []string
	for name, prop := range schema.Properties {
		if required[name] {
			obj[name] = s.Synthesize(prop, name)
			continue
		}
		if rand.Float64() < optionalPropProbability {
			obj[name] = s.Synthesize(prop, name)
			optionalIncluded = append(optionalIncluded, name)
		} else {
			optionalSkipped = append(optionalSkipped, name)
		}
	}

	// Grow or shrink through the optional set only; required properties
	// are never dropped, even above maxProperties.
	if schema.MinProperties != nil {
		for len(obj) < *schema.MinProperties && len(optionalSkipped) > 0 {
			name := optionalSkipped[0]
			optionalSkipped = optionalSkipped[1:]
			obj[name] = s.Synthesize(schema.Properties[name], name)
			optionalIncluded = append(optionalIncluded, name)
		}
	}
	if schema.MaxProperties != nil {
		for len(obj) > *schema.MaxProperties && len(optionalIncluded) > 0 {
			name := optionalIncluded[len(optionalIncluded)-1]
			optionalIncluded = optionalIncluded[:len(optionalIncluded)-1]
			delete(obj, name)
		}
	}

	return obj
}

func (s *Synthesizer) synthArray(schema *spec.SchemaNode) []any {
	lo, hi := 1, 3
	if schema.MinItems != nil {
		lo = *schema.MinItems
	}
	if schema.MaxItems != nil {
		hi = *schema.MaxItems
	}
	if hi < lo {
		hi = lo
	}
	count := lo
	if hi > lo {
		count = lo + rand.Intn(hi-lo+1)
	}

	items := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v := s.Synthesize(schema.Items, "")
		if !schema.UniqueItems {
			items = append(items, v)
			continue
		}
		retries := 0
		for containsDeepEqual(items, v) && retries < uniqueItemRetries {
			v = s.Synthesize(schema.Items, "")
			retries++
		}
		// Uniqueness is best-effort: a low-cardinality element type
		// (booleans, small enums) may exhaust retries, in which case
		// the list comes back shorter than requested.
		if !containsDeepEqual(items, v) {
			items = append(items, v)
		}
	}
	return items
}

func containsDeepEqual(items []any, v any) bool {
	for _, existing := range items {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}

func (s *Synthesizer) synthString(schema *spec.SchemaNode) string {
	if schema.Format != "" {
		if v := stringByFormat(schema.Format); v != "" {
			return v
		}
	}
	if schema.Pattern != "" {
		if v, ok := stringByPatternIdiom(schema.Pattern, schema.MinLength, schema.MaxLength); ok {
			return v
		}
	}

	text := fakeSlug()
	return clampString(text, schema.MinLength, schema.MaxLength)
}

func clampString(s string, minLen, maxLen *int) string {
	if minLen != nil && len(s) < *minLen {
		s += randomLetters(*minLen - len(s))
	}
	if maxLen != nil && len(s) > *maxLen {
		s = s[:*maxLen]
	}
	return s
}

func stringByFormat(format string) string {
	switch format {
	case "email":
		return fakeEmail()
	case "uuid":
		return id.UUID()
	case "uri", "url":
		return "https://example.com/" + fakeSlug()
	case "hostname":
		return fakeHostname()
	case "ipv4":
		return fakeIPv4()
	case "ipv6":
		return fakeIPv6()
	case "date-time":
		return time.Now().UTC().Format(time.RFC3339)
	case "date":
		return time.Now().UTC().Format("2006-01-02")
	case "time":
		return time.Now().UTC().Format("15:04:05Z")
	case "password":
		return "P@ss" + pick(loremWords) + randomDigits(2) + "!"
	case "phone":
		return fakePhone()
	case "byte":
		return "ZXhhbXBsZQ==" // base64("example")
	case "binary":
		return "6578616d706c65" // hex("example")
	default:
		return ""
	}
}

// Only two pattern idioms are recognized: all-digits and all-letters,
// optionally with an explicit repetition count. Anything else is left
// unenforced; generating a full regex-conforming string is out of scope.
var (
	digitPattern = regexp.MustCompile(`^\^?(?:\\d|\[0-9\])(?:\{(\d+)\}|[+*])?\$?$`)
	alphaPattern = regexp.MustCompile(`^\^?\[(?:a-z|A-Z|a-zA-Z|A-Za-z)\](?:\{(\d+)\}|[+*])?\$?$`)
)

func stringByPatternIdiom(pattern string, minLen, maxLen *int) (string, bool) {
	length := 6
	if minLen != nil && *minLen > length {
		length = *minLen
	}
	if maxLen != nil && *maxLen < length {
		length = *maxLen
	}

	if m := digitPattern.FindStringSubmatch(pattern); m != nil {
		if m[1] != "" {
			return randomDigits(atoiOr(m[1], length)), true
		}
		return randomDigits(length), true
	}
	if m := alphaPattern.FindStringSubmatch(pattern); m != nil {
		if m[1] != "" {
			return randomLetters(atoiOr(m[1], length)), true
		}
		return randomLetters(length), true
	}
	return "", false
}

func atoiOr(s string, fallback int) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return fallback
		}
		n = n*10 + int(s[i]-'0')
	}
	if n <= 0 || n > 1024 {
		return fallback
	}
	return n
}

func synthInteger(schema *spec.SchemaNode) int {
	lo, hi := 1, 1000
	if schema.Minimum != nil {
		// A fractional bound already excludes its own value once
		// rounded inward; only an integral exclusive bound shifts.
		lo = int(math.Ceil(*schema.Minimum))
		if schema.ExclusiveMinimum && float64(lo) == *schema.Minimum {
			lo++
		}
	}
	if schema.Maximum != nil {
		hi = int(math.Floor(*schema.Maximum))
		if schema.ExclusiveMaximum && float64(hi) == *schema.Maximum {
			hi--
		}
	}
	if hi < lo {
		hi = lo
	}
	v := lo
	if hi > lo {
		v = lo + rand.Intn(hi-lo+1)
	}
	if schema.MultipleOf != nil && *schema.MultipleOf > 0 {
		m := *schema.MultipleOf
		v = int(math.Round(float64(v)/m) * m)
		step := int(m)
		if step < 1 {
			step = 1
		}
		// Rounding can push past an edge; snap back inside.
		for v < lo {
			v += step
		}
		for v > hi {
			v -= step
		}
	}
	return v
}

func synthNumber(schema *spec.SchemaNode) float64 {
	lo, hi := 0.0, 1000.0
	if schema.Minimum != nil {
		lo = *schema.Minimum
		if schema.ExclusiveMinimum {
			lo += 0.01
		}
	}
	if schema.Maximum != nil {
		hi = *schema.Maximum
		if schema.ExclusiveMaximum {
			hi -= 0.01
		}
	}
	if hi < lo {
		hi = lo
	}
	v := lo + rand.Float64()*(hi-lo)
	if schema.MultipleOf != nil && *schema.MultipleOf > 0 {
		m := *schema.MultipleOf
		v = math.Round(v/m) * m
		for v < lo {
			v += m
		}
		for v > hi {
			v -= m
		}
	} else {
		v = math.Round(v*100) / 100
	}
	return v
}
