// Package openai implements the ai interfaces against OpenAI-compatible
// HTTP APIs. Embeddings and completions go through langchaingo clients;
// transcription talks to the audio endpoint directly because no client
// library in use covers it.
package openai
