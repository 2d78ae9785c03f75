// Package testutil provides fixtures and test doubles shared by the
// package tests.
//
// Fixtures: the Wine ontology excerpt as triples and as N-Triples text.
//
// Test doubles:
//   - EventRecorder collects published status transitions and waits for
//     them, standing in for the event bus where ordering matters.
//   - MockBroker is an in-memory message broker with the Publish signature
//     of natsclient.Client.
//   - MockResource is a coordinator resource with injectable failures.
//
// Wait helpers poll every 10ms. Prefer direct assertions where the code
// under test is synchronous.
package testutil
