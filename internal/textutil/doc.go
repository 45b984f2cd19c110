// Package textutil provides small, dependency-free text helpers shared
// across the caption pipeline: filename sanitization and a generic
// ternary helper.
package textutil
