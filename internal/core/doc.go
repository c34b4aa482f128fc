// Package core provides the business logic for bill document generation.
//
// This package holds the domain model and every deterministic rule applied to
// it, independent of workbooks on disk, markup or PDF engines. It can be used
// by the batch orchestrator, the HTTP service, or tests without modification.
//
// # Flow
//
// For one workbook the pipeline calls, in order:
//
//  1. [NormalizeTitle] and [NormalizeItems] on resolved sheet records
//  2. [MergeBilledRates] to fill bill rows from the work order
//  3. [ApplySuppression] so zero-rate items carry no amount
//  4. [ComputeDeviations] and [ComputeTotals] with the file's [Rules]
//  5. [Assemble] to freeze everything into a [DocumentModel]
//
// # Document Registry
//
// Document types are registered at init time using [Register]. Each
// [DocumentDefinition] carries its output name, generation order and an
// optional Include predicate:
//
//	core.Register(core.DocumentDefinition{
//	    Type:    core.DocExtraItems,
//	    Name:    "Extra Items",
//	    Order:   40,
//	    Include: func(m *core.DocumentModel) bool { return m.HasExtraItems },
//	})
//
// # Money
//
// All amounts are [decimal.Decimal]. Rounding is to two places, half away from
// zero, applied to each item amount, the premium and each deduction.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SCH001-SCH004: Schema errors (missing sheets, missing columns)
//   - TPL001-TPL002: Template errors (missing title fields)
//   - RND001-RND002, BND001: Render and bundle errors
//   - BAT001-BAT005: Batch errors (no input, busy, cancelled)
//   - FILE001-FILE004: File errors (not found, corrupt, protected)
package core
