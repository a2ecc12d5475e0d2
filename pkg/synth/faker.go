package synth

import (
	"math/rand"
	"strings"
)

var (
	firstNames = []string{"John", "Jane", "Alex", "Maria", "Sam", "Taylor", "Jordan", "Morgan"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis"}
	domains    = []string{"example.com", "test.io", "demo.org"}
	streets    = []string{"Main St", "Oak Ave", "Park Blvd", "Cedar Ln", "Elm St"}
	cities     = []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
		"San Francisco", "Seattle", "Austin", "Denver", "Boston"}
	countryCodes  = []string{"US", "GB", "CA", "DE", "FR", "JP", "AU"}
	currencyCodes = []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF"}
	colors        = []string{"Red", "Blue", "Green", "Yellow", "Purple", "Orange", "Teal"}
	statuses      = []string{"active", "pending", "inactive", "archived"}
	companyNames  = []string{"Acme", "Globex", "Initech", "Umbrella", "Stark", "Wayne"}
	companyKinds  = []string{"Corp", "Inc", "LLC", "Ltd", "Group"}
	loremWords    = []string{"quick", "brown", "fox", "lazy", "dog", "alpha", "beta",
		"gamma", "delta", "modern", "scalable", "simple"}
)

func pick(list []string) string {
	return list[rand.Intn(len(list))]
}

func fakeEmail() string {
	return strings.ToLower(pick(firstNames)) + "." + strings.ToLower(pick(lastNames)) + "@" + pick(domains)
}

func fakePhone() string {
	return "+1-555-" + randomDigits(3) + "-" + randomDigits(4)
}

func fakeFullName() string {
	return pick(firstNames) + " " + pick(lastNames)
}

func fakeAddress() string {
	return randomDigits(3) + " " + pick(streets) + ", " + pick(cities)
}

func fakeCompany() string {
	return pick(companyNames) + " " + pick(companyKinds)
}

func fakeSlug() string {
	n := 2 + rand.Intn(2)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = pick(loremWords)
	}
	return strings.Join(parts, "-")
}

func fakeSentence() string {
	n := 5 + rand.Intn(6)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = pick(loremWords)
	}
	s := strings.Join(parts, " ") + "."
	return strings.ToUpper(s[:1]) + s[1:]
}

func fakeHostname() string {
	return pick(loremWords) + ".example.com"
}

func fakeIPv4() string {
	parts := make([]string, 4)
	for i := range parts {
		parts[i] = randomDigits(1 + rand.Intn(2))
	}
	return strings.Join(parts, ".")
}

func fakeIPv6() string {
	parts := make([]string, 8)
	parts[0] = "2001"
	parts[1] = "0db8"
	for i := 2; i < 8; i++ {
		parts[i] = randomHex(4)
	}
	return strings.Join(parts, ":")
}

func randomDigits(n int) string {
	const digits = "0123456789"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = digits[rand.Intn(10)]
	}
	return string(buf)
}

func randomHex(n int) string {
	const hex = "0123456789abcdef"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = hex[rand.Intn(16)]
	}
	return string(buf)
}

func randomLetters(n int) string {
	const chars = "abcdefghijklmnopqrstuvwxyz"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = chars[rand.Intn(26)]
	}
	return string(buf)
}
