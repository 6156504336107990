// Package diagnostic collects structured problems found while inspecting a
// value type, so discovery can report every missing method of a type at once
// instead of stopping at the first one.
package diagnostic
