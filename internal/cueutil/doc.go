// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates lambkin's configuration and metadata files against
// embedded CUE schemas and decodes them into Go structs.
//
// CUE is a superset of JSON, so the same flow serves config.cue and
// metadata.json:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with the schema definition
//  3. Validate and decode to the Go struct
package cueutil
