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

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for every persisted record type. Timestamps are encoded as
// Unix microseconds and restored in UTC.

var (
	// SessionMUS serializes Session values.
	SessionMUS = sessionMUS{}
	// TranscriptMUS serializes Transcript values.
	TranscriptMUS = transcriptMUS{}
	// SegmentMUS serializes Segment values.
	SegmentMUS = segmentMUS{}
	// ChatMessageMUS serializes ChatMessage values.
	ChatMessageMUS = chatMessageMUS{}
	// EntityBundleMUS serializes EntityBundle values.
	EntityBundleMUS = entityBundleMUS{}
	// SpeakerMUS serializes Speaker values.
	SpeakerMUS = speakerMUS{}
	// SDGRefMUS serializes SDGRef values.
	SDGRefMUS = sdgRefMUS{}

	timeMUS = timeMicroMUS{}

	stringSliceMUS  = ord.NewSliceSer[string](ord.String)
	speakerSliceMUS = ord.NewSliceSer[Speaker](SpeakerMUS)
	sdgSliceMUS     = ord.NewSliceSer[SDGRef](SDGRefMUS)
	segmentSliceMUS = ord.NewSliceSer[Segment](SegmentMUS)
	countMapMUS     = ord.NewMapSer[string, int](ord.String, varint.Int)
	entityPtrMUS    = ord.NewPtrSer[EntityBundle](EntityBundleMUS)
)

// timeMicroMUS encodes time.Time as Unix microseconds.
type timeMicroMUS struct{}

func (timeMicroMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (timeMicroMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	var micros int64
	micros, n, err = varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = time.UnixMicro(micros).UTC()
	return
}

func (timeMicroMUS) Size(v time.Time) int {
	return varint.Int64.Size(v.UnixMicro())
}

func (timeMicroMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

type speakerMUS struct{}

func (speakerMUS) Marshal(v Speaker, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.Country, bs[n:])
	n += ord.String.Marshal(v.Role, bs[n:])
	n += ord.String.Marshal(v.Organization, bs[n:])
	return
}

func (speakerMUS) Unmarshal(bs []byte) (v Speaker, n int, err error) {
	var n1 int
	if v.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Country, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Role, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Organization, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (speakerMUS) Size(v Speaker) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.Country)
	size += ord.String.Size(v.Role)
	size += ord.String.Size(v.Organization)
	return
}

func (speakerMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for i := 0; i < 4; i++ {
		if n1, err = ord.String.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	return
}

type sdgRefMUS struct{}

func (sdgRefMUS) Marshal(v SDGRef, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Goal, bs)
	n += ord.String.Marshal(v.Context, bs[n:])
	return
}

func (sdgRefMUS) Unmarshal(bs []byte) (v SDGRef, n int, err error) {
	var n1 int
	if v.Goal, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	v.Context, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (sdgRefMUS) Size(v SDGRef) int {
	return varint.Int.Size(v.Goal) + ord.String.Size(v.Context)
}

func (sdgRefMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n, err = varint.Int.Skip(bs); err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	return n + n1, err
}

type entityBundleMUS struct{}

func (entityBundleMUS) Marshal(v EntityBundle, bs []byte) (n int) {
	n = speakerSliceMUS.Marshal(v.Speakers, bs)
	n += stringSliceMUS.Marshal(v.Countries, bs[n:])
	n += sdgSliceMUS.Marshal(v.SDGs, bs[n:])
	n += stringSliceMUS.Marshal(v.Topics, bs[n:])
	n += stringSliceMUS.Marshal(v.Organizations, bs[n:])
	n += stringSliceMUS.Marshal(v.Treaties, bs[n:])
	n += stringSliceMUS.Marshal(v.KeyDecisions, bs[n:])
	n += countMapMUS.Marshal(v.InterventionsByCountry, bs[n:])
	return
}

func (entityBundleMUS) Unmarshal(bs []byte) (v EntityBundle, n int, err error) {
	var n1 int
	if v.Speakers, n, err = speakerSliceMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.Countries, n1, err = stringSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.SDGs, n1, err = sdgSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Topics, n1, err = stringSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Organizations, n1, err = stringSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Treaties, n1, err = stringSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.KeyDecisions, n1, err = stringSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.InterventionsByCountry, n1, err = countMapMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (entityBundleMUS) Size(v EntityBundle) (size int) {
	size = speakerSliceMUS.Size(v.Speakers)
	size += stringSliceMUS.Size(v.Countries)
	size += sdgSliceMUS.Size(v.SDGs)
	size += stringSliceMUS.Size(v.Topics)
	size += stringSliceMUS.Size(v.Organizations)
	size += stringSliceMUS.Size(v.Treaties)
	size += stringSliceMUS.Size(v.KeyDecisions)
	size += countMapMUS.Size(v.InterventionsByCountry)
	return
}

func (entityBundleMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n, err = speakerSliceMUS.Skip(bs); err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		if n1, err = stringSliceMUS.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
		if i == 0 {
			if n1, err = sdgSliceMUS.Skip(bs[n:]); err != nil {
				return n + n1, err
			}
			n += n1
		}
	}
	n1, err = countMapMUS.Skip(bs[n:])
	return n + n1, err
}

type segmentMUS struct{}

func (segmentMUS) Marshal(v Segment, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Index, bs)
	n += ord.String.Marshal(v.Speaker, bs[n:])
	n += raw.Float64.Marshal(v.Start, bs[n:])
	n += raw.Float64.Marshal(v.End, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += raw.Float32.Marshal(v.Confidence, bs[n:])
	return
}

func (segmentMUS) Unmarshal(bs []byte) (v Segment, n int, err error) {
	var n1 int
	if v.Index, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if v.Speaker, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Start, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.End, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Confidence, n1, err = raw.Float32.Unmarshal(bs[n:])
	n += n1
	return
}

func (segmentMUS) Size(v Segment) (size int) {
	size = varint.Int.Size(v.Index)
	size += ord.String.Size(v.Speaker)
	size += raw.Float64.Size(v.Start)
	size += raw.Float64.Size(v.End)
	size += ord.String.Size(v.Text)
	size += raw.Float32.Size(v.Confidence)
	return
}

func (segmentMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n, err = varint.Int.Skip(bs); err != nil {
		return
	}
	if n1, err = ord.String.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	if n1, err = raw.Float64.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	if n1, err = raw.Float64.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	if n1, err = ord.String.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	n1, err = raw.Float32.Skip(bs[n:])
	return n + n1, err
}

type sessionMUS struct{}

func (sessionMUS) Marshal(v Session, bs []byte) (n int) {
	n = ord.String.Marshal(v.Key, bs)
	n += ord.String.Marshal(v.URL, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += timeMUS.Marshal(v.Date, bs[n:])
	n += raw.Float64.Marshal(v.Duration, bs[n:])
	n += stringSliceMUS.Marshal(v.Languages, bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += ord.String.Marshal(v.ErrorMessage, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += entityPtrMUS.Marshal(v.Entities, bs[n:])
	n += timeMUS.Marshal(v.CreatedAt, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (sessionMUS) Unmarshal(bs []byte) (v Session, n int, err error) {
	var n1 int
	if v.Key, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.URL, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Date, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Duration, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Languages, n1, err = stringSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var status int
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Status = Status(status)
	n += n1
	if v.ErrorMessage, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Summary, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Entities, n1, err = entityPtrMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (sessionMUS) Size(v Session) (size int) {
	size = ord.String.Size(v.Key)
	size += ord.String.Size(v.URL)
	size += ord.String.Size(v.Title)
	size += timeMUS.Size(v.Date)
	size += raw.Float64.Size(v.Duration)
	size += stringSliceMUS.Size(v.Languages)
	size += varint.Int.Size(int(v.Status))
	size += ord.String.Size(v.ErrorMessage)
	size += ord.String.Size(v.Summary)
	size += entityPtrMUS.Size(v.Entities)
	size += timeMUS.Size(v.CreatedAt)
	size += timeMUS.Size(v.UpdatedAt)
	return
}

func (sessionMUS) Skip(bs []byte) (n int, err error) {
	// Struct skipping is not needed for stored records; a full unmarshal
	// keeps the code simpler than replaying the field layout.
	_, n, err = SessionMUS.Unmarshal(bs)
	return
}

type transcriptMUS struct{}

func (transcriptMUS) Marshal(v Transcript, bs []byte) (n int) {
	n = ord.String.Marshal(v.SessionKey, bs)
	n += ord.String.Marshal(v.FullText, bs[n:])
	n += segmentSliceMUS.Marshal(v.Segments, bs[n:])
	n += varint.Int.Marshal(v.WordCount, bs[n:])
	n += varint.Int.Marshal(v.SpeakerCount, bs[n:])
	n += ord.String.Marshal(v.Language, bs[n:])
	n += raw.Float64.Marshal(v.Duration, bs[n:])
	n += timeMUS.Marshal(v.CreatedAt, bs[n:])
	return
}

func (transcriptMUS) Unmarshal(bs []byte) (v Transcript, n int, err error) {
	var n1 int
	if v.SessionKey, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.FullText, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Segments, n1, err = segmentSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.WordCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.SpeakerCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Language, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Duration, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (transcriptMUS) Size(v Transcript) (size int) {
	size = ord.String.Size(v.SessionKey)
	size += ord.String.Size(v.FullText)
	size += segmentSliceMUS.Size(v.Segments)
	size += varint.Int.Size(v.WordCount)
	size += varint.Int.Size(v.SpeakerCount)
	size += ord.String.Size(v.Language)
	size += raw.Float64.Size(v.Duration)
	size += timeMUS.Size(v.CreatedAt)
	return
}

func (transcriptMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = TranscriptMUS.Unmarshal(bs)
	return
}

type chatMessageMUS struct{}

func (chatMessageMUS) Marshal(v ChatMessage, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.SessionKey, bs[n:])
	n += varint.Int.Marshal(int(v.Role), bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += timeMUS.Marshal(v.CreatedAt, bs[n:])
	return
}

func (chatMessageMUS) Unmarshal(bs []byte) (v ChatMessage, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.SessionKey, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var role int
	if role, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Role = ChatRole(role)
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (chatMessageMUS) Size(v ChatMessage) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.SessionKey)
	size += varint.Int.Size(int(v.Role))
	size += ord.String.Size(v.Content)
	size += timeMUS.Size(v.CreatedAt)
	return
}

func (chatMessageMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = ChatMessageMUS.Unmarshal(bs)
	return
}
