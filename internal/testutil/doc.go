// Package testutil holds helpers shared by the package tests: a thread-safe
// log buffer, an in-memory fetcher that counts requests, and fixture writers.
package testutil
