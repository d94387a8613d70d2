// Package core provides the business logic for user CSV import and export.
//
// This package holds all domain logic independent of any transport layer.
// It can be used by web handlers, CLI tools, or tests without modification.
//
// # Import pipeline
//
// An import call runs a whole upload through four stages:
//
//   - [SplitLine] tokenizes one line, honoring double-quote escaping.
//   - [ResolveHeaders] binds canonical fields to columns using an [AliasTable].
//   - [RowValidator] turns a data row into a [ValidatedUser] or a [RowError].
//   - [Importer] upserts valid rows by email and collects an [ImportOutcome].
//
// Structural problems (fewer than two lines, missing required columns)
// abort the call. Everything else is recorded per row and the batch
// continues:
//
//	im := core.NewImporter(store, core.NewBcryptHasher(10), nil)
//	outcome, err := im.Import(ctx, text)
//	// outcome.Total == outcome.Success + outcome.Updated + outcome.Failed
//
// # Export
//
// [Exporter] renders users from a [UserStore] as BOM-prefixed CSV with
// localized role and status labels. [Exporter.Preview] returns the first
// [PreviewRowLimit] rows for display.
//
// # Persistence
//
// The package never opens connections itself. Callers pass a [UserStore]
// (or the wider [UserRepository]) implemented by internal/store/postgres
// or internal/store/memory.
package core
