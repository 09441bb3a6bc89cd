// Package testinfra starts throw-away MySQL and PostgreSQL servers with
// testcontainers-go so the gateways can be exercised against both
// dialects.
//
// Everything here is behind the `integration` build tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// Tests skip cleanly when Docker is not available.
package testinfra
