// Package match provides name normalization and edit-distance ranking for
// property names.
//
// Key functions:
//   - NormalizeIdent: folds case and separators so "observation_car" and
//     "ObservationCar" compare equal
//   - Levenshtein: computes edit distance between strings
//   - Suggest: picks the closest known name for an unknown one
//   - Index: resolves column labels to property names
package match
