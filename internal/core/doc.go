// Package core implements the inventory reconciliation engine.
//
// It holds all domain logic independent of any transport or storage
// technology, so the web server, the admin CLI and tests drive it the same
// way.
//
// # Architecture
//
//   - Category resolution: URL-safe tokens map back to store names via
//     [Sanitize] and [Resolve].
//   - Schema inference: [InferRoles] finds the identifier, item-name and
//     stock columns of a header row by keyword.
//   - Store: the [Store] interface abstracts the workbook and relational
//     backends (see package store).
//   - Service: [Service] owns the [Snapshot] and runs every transaction
//     through resolve, validate, locate, apply, persist and reload.
//
// # Transactions
//
// Mutating calls return a [Result] and never an error. Expected failures
// (unknown category, missing columns, unknown item, oversell) come back as
// Success=false with a message and a support code from [MapError].
//
//	res := svc.ApplySale(ctx, "Electronics__Lab", "1", 3)
//	// res.Message == "Sold 3 of Widget."
//
// After every successful write the whole store is reloaded before the call
// returns, so the next read observes the write.
//
// # Concurrency
//
// By default writers are not serialized: two sales of the same item can
// read the same stock and the later write wins. Setting
// [Options.SerializeWrites] holds a per-category [WriteLocks] slot from
// resolve through reload.
//
// # Stock Coercion
//
// [StockValue] counts a cell only when it is a non-empty run of ASCII
// digits. Everything else, including "2.5" and " 5", is zero.
package core
