// Package e2e runs the cart and orders services in one process on a shared
// in-memory state store and bus to exercise the checkout choreography.
package e2e
