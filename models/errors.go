package models

import "strings"

// ValidationErrors collects every problem with a request so the caller sees
// the full list, not just the first one found.
type ValidationErrors []string

func (e ValidationErrors) Error() string {
	return strings.Join(e, "; ")
}

func (e ValidationErrors) Messages() []string {
	return e
}
