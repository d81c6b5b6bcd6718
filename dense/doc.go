// Package dense implements DENSE, a structured-data interchange format with
// three synchronized representations of the same logical value tree:
//
//   - Human form: aligned, decorated pretty-print for display only
//   - Machine-text form: a compact line-oriented wire grammar tuned to
//     minimize LLM tokenizer cost, optionally compacted by a phrase
//     dictionary
//   - Machine-binary form: a fixed-layout encoding built from 16-byte
//     hybrid slots (see the slot package)
//
// # Data Model
//
// Scalars: null, bool, int, float, string
// Containers: array (with a single-line "stream" variant), object (ordered,
// unique keys), table (declared column schema + positional rows)
// Special: ref (weak back-reference to a previously defined anchor)
//
// # Wire Grammar
//
// Line-oriented:
//
//	key:value          assignment; dotted keys (a.b.c) nest objects
//	active:+           boolean shorthand (+ true, - false)
//	admin!             implicit true
//	error?             implicit null
//	users=id%i name%s  table declaration; following lines are rows
//	tags>a|b|c         stream array
//	link:@users        reference to a previously defined anchor
//
// # Round Trips
//
// Parse then EmitMachine then Parse yields an equivalent tree. Compact is
// lossless: Expand over its output reproduces the input byte for byte. The
// human form is a display sink and is not guaranteed to be re-parseable.
//
// # Concurrency
//
// All operations are synchronous and free of shared mutable state; separate
// calls may run concurrently over independent buffers. The only shared
// structure is the tokenizer cache, which is initialized at most once per
// tokenizer variant.
package dense
