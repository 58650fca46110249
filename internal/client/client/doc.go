// Package client contains the client-side building blocks for talking to the
// image-generation backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): identity
//     check, prompt CRUD, image generation, reserved-instance control, logs,
//     latest image and coupon balance.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that attaches the
//     bearer token captured at call start and maps failures onto the error
//     types below.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Non-2xx responses are *HTTPError. A parsed response whose success flag is
// false is *APIError carrying the backend message. A cancelled context yields
// ErrCancelled, which is an outcome rather than a failure. Malformed payloads
// are ErrDataFormat; requests that never got a response wrap ErrUnavailable.
// Use UserMessage to render any of them.
//
// Nothing is retried.
package client
