// Package executor implements a breadth-first, batch-friendly GraphQL executor
// with explicit runtime hooks for synchronous resolution, depth-wise batching of
// asynchronous work, abstract-type resolution, and leaf serialization.
//
// # Execution Model
//
// Fields are split by schema.Field.Async:
//
//   - Synchronous fields are projections of the parent value. They are
//     resolved through Runtime.ResolveSync as soon as they are reached and do
//     not add a depth.
//   - Asynchronous fields need storage access. They are queued and resolved
//     together through a single Runtime.BatchResolveAsync call per depth.
//
// Each depth is one round of the loop below:
//
//	A. Expand every reachable sync field, queueing async fields as tasks.
//	B. Call BatchResolveAsync once with every live task of the depth.
//	C. Complete each result. Object results expand their own sync children
//	   immediately and queue their async children for the next depth.
//
// For a query whose deepest chain crosses d async fields, BatchResolveAsync is
// invoked exactly d times. A runtime that defers loads until the batch call
// therefore sees every key requested at a depth at once, which is what lets
// per-request loaders coalesce N sibling lookups into one storage query.
//
// # Mutations
//
// Mutation root fields are expected to be synchronous, so they run one after
// another in document order. Their nested async fields are resolved in the
// depth loop after every root field has run.
//
// # Values and Errors
//
// Value completion follows the GraphQL rules for Non-Null, List, leaf, object
// and abstract types. Errors are located (message, locations, path) and keep
// the extensions of errors that carry them. A Non-Null violation nulls the
// top-level field it occurred under and any queued tasks beneath it are
// dropped. When ctx is done between depths, pending tasks fail with ctx.Err().
//
// Input values (variables and arguments) are coerced against the schema,
// including enums and input objects. A field with an invalid argument is not
// resolved and produces null.
package executor
