// SPDX-License-Identifier: MPL-2.0

// Package cloud wraps the AWS APIs lambkin drives: Lambda for function
// lifecycle, EventBridge for schedules, STS for the caller's account and S3
// for staging large archives.
//
// Each service is consumed through a narrow interface (FunctionAPI,
// EventsAPI, IdentityAPI, Uploader) satisfied by the SDK v2 clients, so the
// orchestration in Client can be tested against in-memory fakes.
package cloud
