package dispatch

import (
	"net/url"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprFilterParam is the reserved query parameter holding a filter
// expression evaluated against each collection element, e.g.
// ?q=price > 10 && status == "active".
const exprFilterParam = "q"

// filterCollection applies plain query-parameter filters and the
// optional expression filter to a stored collection.
func (d *Dispatcher) filterCollection(items []any, query url.Values) ([]any, error) {
	if len(query) == 0 {
		return items, nil
	}

	var program *vm.Program
	if q := query.Get(exprFilterParam); q != "" {
		var err error
		program, err = d.compileFilter(q)
		if err != nil {
			return nil, &BadRequestError{Detail: "invalid filter expression: " + err.Error()}
		}
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		obj, isObj := item.(map[string]any)
		if !isObj {
			continue
		}
		if !matchesParams(obj, query) {
			continue
		}
		if program != nil {
			keep, err := runFilter(program, obj)
			if err != nil || !keep {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// matchesParams checks each non-reserved query key against the field of
// the same name: case-insensitive substring for strings, loose equality
// otherwise. A field the item does not carry never matches.
func matchesParams(obj map[string]any, query url.Values) bool {
	for key, values := range query {
		if key == exprFilterParam || len(values) == 0 {
			continue
		}
		want := values[0]
		got, ok := obj[key]
		if !ok {
			return false
		}
		if s, isStr := got.(string); isStr {
			if !strings.Contains(strings.ToLower(s), strings.ToLower(want)) {
				return false
			}
			continue
		}
		if idString(got) != want {
			return false
		}
	}
	return true
}

// compileFilter caches compiled programs per expression text. Filter
// expressions are caller-supplied and repeat heavily across polling
// clients, so the cache pays for itself immediately.
func (d *Dispatcher) compileFilter(q string) (*vm.Program, error) {
	d.filterMu.RLock()
	program, ok := d.filterCache[q]
	d.filterMu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(q, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	d.filterMu.Lock()
	d.filterCache[q] = program
	d.filterMu.Unlock()
	return program, nil
}

func runFilter(program *vm.Program, obj map[string]any) (bool, error) {
	result, err := expr.Run(program, obj)
	if err != nil {
		return false, err
	}
	keep, ok := result.(bool)
	return ok && keep, nil
}
