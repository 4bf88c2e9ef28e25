// Package testutil provides shared builders for engine tests: scripted
// assistant messages for driving MockModel tool loops and helpers for
// collecting progress events from a turn-scoped sink.
package testutil
