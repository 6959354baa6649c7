// Package password implements tasknest's credential hashing (bcrypt).
//
// It owns the password policy (length bounds) and the bcrypt cost
// configuration, both environment-tunable with safe defaults.
package password
