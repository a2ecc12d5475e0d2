package synth

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/fauxapi/fauxd/internal/id"
)

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Pattern pairs a predicate over a property name with a generator for
// matching fields. Patterns produce string values; the synthesizer only
// consults the registry for string-typed (or untyped) schemas so a
// registry hit can never contradict a declared numeric or boolean type.
type Pattern struct {
	// Name identifies the pattern in logs and diagnostics.
	Name string

	// Match is called with the lower-cased property name.
	Match func(field string) bool

	// Generate produces a value for the matched field.
	Generate func(field string) any
}

// Registry is an ordered list of patterns consulted top to bottom.
//
// Ordering is a contract: when two predicates both match a property
// name, the first registered pattern wins. Register appends, so
// built-ins registered at construction keep priority over later
// domain-specific additions unless the caller builds a registry from
// scratch.
type Registry struct {
	mu       sync.RWMutex
	patterns []Pattern
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends patterns to the end of the lookup order.
func (r *Registry) Register(patterns ...Pattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, patterns...)
}

// Lookup finds the first pattern matching the property name
// (case-insensitive) and returns its generated value.
func (r *Registry) Lookup(field string) (any, bool) {
	if field == "" {
		return nil, false
	}
	lower := strings.ToLower(field)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.patterns {
		if r.patterns[i].Match(lower) {
			return r.patterns[i].Generate(lower), true
		}
	}
	return nil, false
}

// Len reports the number of registered patterns.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns)
}

func exact(names ...string) func(string) bool {
	return func(field string) bool {
		for _, n := range names {
			if field == n {
				return true
			}
		}
		return false
	}
}

func exactOrSuffix(suffix string, names ...string) func(string) bool {
	byName := exact(names...)
	return func(field string) bool {
		return byName(field) || strings.HasSuffix(field, suffix)
	}
}

// DefaultRegistry returns the built-in business-field patterns. The
// order below is the documented priority order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(
		Pattern{
			Name:  "email",
			Match: exactOrSuffix("email", "email", "e_mail"),
			Generate: func(string) any {
				return fakeEmail()
			},
		},
		Pattern{
			Name:  "phone",
			Match: exactOrSuffix("phone", "phone", "mobile", "tel"),
			Generate: func(string) any {
				return fakePhone()
			},
		},
		Pattern{
			Name:  "uuid",
			Match: exact("uuid", "guid"),
			Generate: func(string) any {
				return id.UUID()
			},
		},
		Pattern{
			Name:  "full-name",
			Match: exact("name", "full_name", "fullname"),
			Generate: func(string) any {
				return fakeFullName()
			},
		},
		Pattern{
			Name:  "first-name",
			Match: exact("first_name", "firstname", "given_name"),
			Generate: func(string) any {
				return pick(firstNames)
			},
		},
		Pattern{
			Name:  "last-name",
			Match: exact("last_name", "lastname", "surname", "family_name"),
			Generate: func(string) any {
				return pick(lastNames)
			},
		},
		Pattern{
			Name:  "username",
			Match: exact("username", "user_name", "login", "handle"),
			Generate: func(string) any {
				return strings.ToLower(pick(firstNames)) + randomDigits(2)
			},
		},
		Pattern{
			Name:  "address",
			Match: exact("address", "street", "street_address"),
			Generate: func(string) any {
				return fakeAddress()
			},
		},
		Pattern{
			Name:  "city",
			Match: exact("city", "town"),
			Generate: func(string) any {
				return pick(cities)
			},
		},
		Pattern{
			Name:  "country",
			Match: exact("country", "country_code"),
			Generate: func(string) any {
				return pick(countryCodes)
			},
		},
		Pattern{
			Name:  "zip",
			Match: exact("zip", "zipcode", "zip_code", "postal_code", "postcode"),
			Generate: func(string) any {
				return randomDigits(5)
			},
		},
		Pattern{
			Name:  "company",
			Match: exact("company", "organization", "org", "vendor", "manufacturer"),
			Generate: func(string) any {
				return fakeCompany()
			},
		},
		Pattern{
			Name:  "url",
			Match: exact("url", "uri", "href", "link", "website", "homepage"),
			Generate: func(string) any {
				return "https://example.com/" + fakeSlug()
			},
		},
		Pattern{
			Name:  "slug",
			Match: exact("slug"),
			Generate: func(string) any {
				return fakeSlug()
			},
		},
		Pattern{
			Name:  "currency",
			Match: exact("currency", "currency_code"),
			Generate: func(string) any {
				return pick(currencyCodes)
			},
		},
		Pattern{
			Name:  "price",
			Match: exact("price", "amount", "cost", "total"),
			Generate: func(string) any {
				return float64(rand.Intn(99900)+100) / 100
			},
		},
		Pattern{
			Name:  "latitude",
			Match: exact("lat", "latitude"),
			Generate: func(string) any {
				return round4(rand.Float64()*180 - 90)
			},
		},
		Pattern{
			Name:  "longitude",
			Match: exact("lon", "lng", "longitude"),
			Generate: func(string) any {
				return round4(rand.Float64()*360 - 180)
			},
		},
		Pattern{
			Name:  "color",
			Match: exact("color", "colour"),
			Generate: func(string) any {
				return pick(colors)
			},
		},
		Pattern{
			Name:  "description",
			Match: exact("description", "summary", "bio", "about", "notes", "comment"),
			Generate: func(string) any {
				return fakeSentence()
			},
		},
		Pattern{
			Name: "timestamp",
			Match: func(field string) bool {
				switch field {
				case "timestamp", "created", "updated", "createdat", "updatedat", "deletedat":
					return true
				}
				return strings.HasSuffix(field, "_at") || strings.HasSuffix(field, "date")
			},
			Generate: func(string) any {
				return time.Now().UTC().Format(time.RFC3339)
			},
		},
		Pattern{
			Name:  "status",
			Match: exact("status", "state"),
			Generate: func(string) any {
				return pick(statuses)
			},
		},
		Pattern{
			Name:  "ip",
			Match: exact("ip", "ip_address", "ipaddress"),
			Generate: func(string) any {
				return fakeIPv4()
			},
		},
	)
	return r
}
