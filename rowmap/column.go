package rowmap

import (
	"strings"
	"unicode"

	"property-binder/property"
)

// Column is property metadata naming the database column of a property
// when it differs from the derived name.
type Column string

// ColumnName returns the column of a property: its Column metadata, or the
// snake_case form of the property name.
func ColumnName(a *property.Accessor) string {
	if c, ok := property.MetadataOf[Column](a); ok {
		return string(c)
	}

	return SnakeCase(a.Name())
}

// SnakeCase converts a Go identifier to snake_case. Acronyms stay together:
// "ID" becomes "id" and "HTTPServer" becomes "http_server".
func SnakeCase(name string) string {
	runes := []rune(name)

	var b strings.Builder

	b.Grow(len(name) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
