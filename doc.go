// Package gqlembed resolves GraphQL documents written as string and
// template literals inside TypeScript and JavaScript source, and keeps an
// incremental index of the fragments they define.
//
// # Pipeline
//
// An [Engine] holds file texts in memory and works in two steps per update:
//
//  1. Resolve: every document literal of the file is reduced to a single
//     combined text. Interpolated expressions are followed through local
//     declarations, imports and re-exports until they reach another literal.
//     Positions in the combined text map back to the source that produced
//     them.
//
//  2. Register: the combined texts are handed to the fragment registry,
//     which tracks every fragment definition by name and answers which
//     external fragments a document needs.
//
// # Usage
//
//	e, err := gqlembed.New(gqlembed.WithDedupe(true))
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.IndexDirectory(ctx, "path/to/project")
//	for _, ref := range e.Documents("src/main.ts") {
//		doc, unresolved, err := e.Resolve(ref.Key)
//		frags, err := e.ExternalFragments(ref.Key)
//	}
//
// With [WithDatabase] the engine also persists what it indexed to SQLite,
// skipping files whose content hash has not changed. [QueryBuilder] reads
// that index back.
package gqlembed
