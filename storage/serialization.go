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


package storage

import (
	"github.com/plenumhq/plenum/core"
)

// MarshalSession serializes a Session to bytes.
func MarshalSession(session *core.Session) []byte {
	buf := make([]byte, core.SessionMUS.Size(*session))
	core.SessionMUS.Marshal(*session, buf)
	return buf
}

// UnmarshalSession deserializes a Session from bytes.
func UnmarshalSession(data []byte) (*core.Session, error) {
	session, _, err := core.SessionMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// MarshalTranscript serializes a Transcript to bytes.
func MarshalTranscript(transcript *core.Transcript) []byte {
	buf := make([]byte, core.TranscriptMUS.Size(*transcript))
	core.TranscriptMUS.Marshal(*transcript, buf)
	return buf
}

// UnmarshalTranscript deserializes a Transcript from bytes.
func UnmarshalTranscript(data []byte) (*core.Transcript, error) {
	transcript, _, err := core.TranscriptMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &transcript, nil
}

// MarshalChatMessage serializes a ChatMessage to bytes.
func MarshalChatMessage(message *core.ChatMessage) []byte {
	buf := make([]byte, core.ChatMessageMUS.Size(*message))
	core.ChatMessageMUS.Marshal(*message, buf)
	return buf
}

// UnmarshalChatMessage deserializes a ChatMessage from bytes.
func UnmarshalChatMessage(data []byte) (*core.ChatMessage, error) {
	message, _, err := core.ChatMessageMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &message, nil
}
