// Package session implements tasknest's auth/session core.
//
// It provides a multi-device session model: signup and login each
// append an independent (refresh token, expiry) session to the user
// document, short-lived HS256 access tokens are minted against a
// process-wide secret, and renewal exchanges a still-valid refresh
// token for a fresh access token without touching the session.
//
// Expiry is lazy. There is no reaper and no revocation beyond a
// session's fixed window elapsing.
//
// Transport (HTTP) integration is intentionally out of scope here.
package session
