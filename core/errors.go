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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidSession indicates a Session failed validation.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidTranscript indicates a Transcript failed validation.
	ErrInvalidTranscript = errors.New("invalid transcript")

	// ErrInvalidSegment indicates a Segment failed validation.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrEmptySessionKey indicates the session key field is empty.
	ErrEmptySessionKey = errors.New("session key cannot be empty")

	// ErrEmptyURL indicates the session URL field is empty.
	ErrEmptyURL = errors.New("session URL cannot be empty")

	// ErrInvalidStatus indicates an invalid Status value.
	ErrInvalidStatus = errors.New("invalid processing status")

	// ErrSegmentTimes indicates a segment with start after end.
	ErrSegmentTimes = errors.New("segment start must not exceed end")

	// ErrSegmentOrder indicates a segment sequence whose start times regress.
	ErrSegmentOrder = errors.New("segment starts must be non-decreasing")

	// ErrSegmentIndex indicates a non-contiguous segment index sequence.
	ErrSegmentIndex = errors.New("segment indices must be contiguous from zero")

	// ErrEmptyText indicates empty or whitespace-only text where content is required.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidChatMessage indicates a ChatMessage failed validation.
	ErrInvalidChatMessage = errors.New("invalid chat message")

	// ErrInvalidChatRole indicates an invalid ChatRole value.
	ErrInvalidChatRole = errors.New("invalid chat role")
)
