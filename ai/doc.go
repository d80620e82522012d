// Copyright 2025 Plenum Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the AI services used in Plenum.
//
// This package defines interfaces for text embedding, chat completion,
// audio transcription, and entity extraction. The processing pipeline and
// the retrieval engine depend on these abstractions rather than on any
// concrete vendor client.
//
// # Interfaces
//
//   - Embedder: generates vector embeddings from text
//   - Completer: generates chat completions
//   - Transcriber: transcribes diarized audio
//   - EntityExtractor: extracts structured entities and writes summaries
//   - Provider: aggregates the services for initialization and lifecycle
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors in ai/openai return interface types to enforce
// abstraction. Mock constructors return concrete types so tests can inject
// behavior through function fields and assert on call counts.
//
// # Failure Classification
//
// Implementations classify failures at the boundary with core.Transient,
// core.Fatal, and core.InputInvalid so retry policy never has to inspect
// error text. Rate limiting and server-side outages are transient; auth
// and malformed-request failures are fatal.
package ai
