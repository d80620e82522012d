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

import "fmt"

// ValidateSession validates a Session according to domain rules.
//
// Validation rules:
//   - Key must not be empty
//   - URL must not be empty
//   - Status must be a known value
//
// NOT validated (populated by the pipeline):
//   - Entities and Summary (empty until extraction runs)
//   - ErrorMessage (empty unless failed)
func ValidateSession(session *Session) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if session.Key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptySessionKey)
	}
	if session.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptyURL)
	}
	if err := ValidateStatus(session.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	return nil
}

// ValidateStatus validates that a Status has a known value.
func ValidateStatus(status Status) error {
	if status < StatusPending || status > StatusFailed {
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
	return nil
}

// ValidateSegments validates an ordered segment sequence.
//
// Validation rules:
//   - every segment has start <= end
//   - starts are monotonically non-decreasing across the sequence
//   - indices are contiguous from zero
func ValidateSegments(segments []Segment) error {
	for i, seg := range segments {
		if seg.Start > seg.End {
			return fmt.Errorf("%w: segment %d (start=%.2f end=%.2f): %w",
				ErrInvalidSegment, i, seg.Start, seg.End, ErrSegmentTimes)
		}
		if seg.Index != i {
			return fmt.Errorf("%w: segment at position %d has index %d: %w",
				ErrInvalidSegment, i, seg.Index, ErrSegmentIndex)
		}
		if i > 0 && seg.Start < segments[i-1].Start {
			return fmt.Errorf("%w: segment %d starts at %.2f before previous %.2f: %w",
				ErrInvalidSegment, i, seg.Start, segments[i-1].Start, ErrSegmentOrder)
		}
	}
	return nil
}

// ValidateTranscript validates a Transcript according to domain rules.
func ValidateTranscript(transcript *Transcript) error {
	if transcript == nil {
		return fmt.Errorf("%w: transcript is nil", ErrInvalidTranscript)
	}
	if transcript.SessionKey == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTranscript, ErrEmptySessionKey)
	}
	if err := ValidateSegments(transcript.Segments); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTranscript, err)
	}
	return nil
}

// ValidateChatMessage validates a ChatMessage according to domain rules.
func ValidateChatMessage(message *ChatMessage) error {
	if message == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidChatMessage)
	}
	if message.SessionKey == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChatMessage, ErrEmptySessionKey)
	}
	if message.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChatMessage, ErrEmptyText)
	}
	if message.Role != ChatRoleUser && message.Role != ChatRoleAssistant {
		return fmt.Errorf("%w: %w: value %d", ErrInvalidChatMessage, ErrInvalidChatRole, message.Role)
	}
	return nil
}
