// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside Switchboard.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize provider failures into a small error taxonomy
//   - Enforce the engine's call policy (deadline, single rate limit retry)
//     in one place, the Client
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agents, the graph) remain decoupled from vendor
// SDKs.
package model
