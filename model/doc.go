// Package model defines the provider-agnostic abstractions and concrete
// helpers for backing bots with language models inside BotMesh.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Render BotMesh conversations into provider chat turns (BotHandler)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so bot handlers remain decoupled from vendor SDKs.
package model
