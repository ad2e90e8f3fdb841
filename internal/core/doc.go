// Package core provides the business logic for bulk lead imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any transport layer. It is used by the HTTP API, the CLI,
// and tests without modification.
//
// # Pipeline
//
// An import flows one way:
//
//	file -> Decode -> Table -> Mapper.Infer -> Validator.Validate
//	     -> Transformer.Transform -> BulkCreator.BulkCreate
//
//   - Field Registry: the ordered catalog of lead fields ([DefaultRegistry]).
//     Field key prefixes decide where a value lands in a [DomainRecord]
//     (see [GroupOf]).
//   - Mapper: proposes a [ColumnMapping] for every header using ordered
//     synonym groups, then a registry scan, then "skip".
//   - Validator: collects every cell and row violation as [ImportError]s.
//   - Transformer: builds nested [DomainRecord]s and never fails.
//
// # Workflow
//
// A [Session] moves through upload -> validate -> map -> import. The legal
// moves live in one transition table; anything else is a [TransitionError].
// Leaving validate requires an empty error list. A failed import keeps the
// session's rows and mappings for a retry; a successful one resets it.
//
// [Service] owns many independent sessions, bounds concurrent imports with an
// [ImportLimiter], and discards idle sessions with [Service.StartSessionJanitor].
//
// # Persistence
//
// [LeadStore] is the Postgres [BulkCreator]. It writes leads with the COPY
// protocol inside one transaction per import and records every attempt in
// import_runs.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE005: File errors (size, format, malformed, empty)
//   - VAL001-VAL004: Validation and mapping errors
//   - IMP001-IMP005: Workflow errors (session, step, capacity)
//   - DB001-DB007: Database errors (constraints, connections, timeouts)
package core
