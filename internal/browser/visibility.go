package browser

import (
	"fmt"
	"strings"
)

// AnyVisible reports whether at least one selector has a visible match.
func (s *Session) AnyVisible(selectors ...string) (bool, error) {
	return anyOf(s.firstVisible, selectors)
}

// AllVisible reports whether every selector has a visible match.
func (s *Session) AllVisible(selectors ...string) (bool, error) {
	return allOf(s.firstVisible, selectors)
}

func (s *Session) firstVisible(sel string) (bool, error) {
	return s.Page.Locator(sel).First().IsVisible()
}

// anyOf stops at the first selector check reports visible.
func anyOf(check func(string) (bool, error), selectors []string) (bool, error) {
	for _, sel := range selectors {
		ok, err := check(sel)
		if err != nil {
			return false, fmt.Errorf("visibility check for %s: %w", sel, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// allOf stops at the first selector check reports hidden.
func allOf(check func(string) (bool, error), selectors []string) (bool, error) {
	for _, sel := range selectors {
		ok, err := check(sel)
		if err != nil {
			return false, fmt.Errorf("visibility check for %s: %w", sel, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ContainsAny reports whether s contains any of subs.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
