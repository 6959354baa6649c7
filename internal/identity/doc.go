// Package identity owns the User document model and its persistence.
//
// A user's sessions are embedded in the user document as an append-only
// array, so one user and their active sessions are always read and
// written as a single unit. The package is intentionally dumb about
// credentials: password hashing and token issuance live elsewhere.
package identity
