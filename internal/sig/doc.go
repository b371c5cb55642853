// Package sig provides the canonical signature representation for kwonly.
//
// This package contains descriptor and value types only. All other internal
// packages import sig; sig imports nothing internal. This keeps the
// signature model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types in the value model - use int64 for numbers
//   - Parameter names are NFC normalized at construction
//   - All JSON tags use snake_case
//   - Signatures are immutable after construction
package sig
