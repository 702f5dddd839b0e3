// Package intake provides the material-flow aggregation logic behind an
// LCA/EPD intake session.
//
// This package contains all domain logic independent of any UI or transport
// layer. It can be used by web handlers, the intakectl CLI, or tests without
// modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Section: the row model for one material category (BOM, packaging,
//     ancillary) with its enabled transport modes and distance units.
//   - Snapshot: the filtered, canonicalized read view of a Section.
//   - QC: the product-mass cross check between the declared basis and the
//     used masses of BOM and packaging.
//   - Payload: the immutable export document assembled from a Form, the
//     three snapshots and the energy list.
//   - Session and Store: the in-memory home of one intake, serialized by a
//     single mutex per session.
//
// # Filter, not error
//
// Incomplete data is never an error while editing. Rows without a component
// name or a positive used mass, unparseable numbers, zero-distance transport
// legs and invalid energy entries are silently left out of snapshots and
// payloads. Hard validation only happens at submission time, see
// [ValidateSubmission].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SES001-SES003: Session errors (not found, capacity, expired)
//   - SEC001-SEC006: Section errors (unknown section, mode, unit, row)
//   - SUB001-SUB011: Submission gate violations
//   - IMP001-IMP004: Row import errors
//   - EXP001-EXP003: Export errors
//
// # Sessions
//
// Sessions live only in memory. [Store.StartSweeper] evicts idle sessions
// after a configurable TTL; nothing is persisted across restarts.
package intake
