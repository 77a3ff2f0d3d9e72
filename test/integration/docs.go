// Package integration contains end-to-end tests for the certificate
// pipeline against PostgreSQL.
//
// These tests verify that the store persists every row type the pipeline
// needs (round-trips, uniqueness, referential integrity) and that the full
// register/sign/issue/verify flow works through the real schema. Each test
// creates an empty temporary database with migrations applied, and drops it
// when the test completes.
//
// These tests assume the crypto and hcert packages are working correctly
// (tested separately). If bugs are introduced in lower-level packages, there
// will be cascading failures here - fix the low-level problems first.
package integration
