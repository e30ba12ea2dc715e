// Package siteinfo folds sparse per-sample entries into site-level and
// allele-specific INFO statistics: configurable sum/median/array-sum
// aggregations over named entry fields, GATK-style derived fields (MQ,
// QD, FS), strand-bias tables, and adj-filtered allele counts.
//
// Field aggregation is driven by an AggConfig resolved once per matrix
// into a typed plan; unresolvable field names fail fast, before any
// aggregation runs.
package siteinfo
