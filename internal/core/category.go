package core

import "strings"

// CategoryRef pairs a store-level category name with the URL-safe token
// clients use to address it.
type CategoryRef struct {
	Sanitized string `json:"sanitized"`
	Original  string `json:"original"`
}

var sanitizer = strings.NewReplacer(",", "_", " ", "_")

// Sanitize maps a category name to its URL-safe token by replacing every
// comma and space with an underscore. The mapping is many-to-one.
func Sanitize(name string) string {
	return sanitizer.Replace(name)
}

// Resolve returns the first name whose sanitized form equals token.
// When two names sanitize to the same token the earlier one wins.
func Resolve(token string, names []string) (string, error) {
	for _, name := range names {
		if Sanitize(name) == token {
			return name, nil
		}
	}
	return "", ErrCategoryNotFound
}

// Refs returns the sanitized/original pairs for names in order.
func Refs(names []string) []CategoryRef {
	refs := make([]CategoryRef, len(names))
	for i, name := range names {
		refs[i] = CategoryRef{Sanitized: Sanitize(name), Original: name}
	}
	return refs
}
