package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	sessionPrefix     = "sesrec"
	sessionDatePrefix = "sesrecd"
	transcriptPrefix  = "trarec"
	chatLogPrefix     = "chlrec"
	chatLogSeq        = "chlrecseq"
)

// makeSessionKey generates a key for a session record.
func makeSessionKey(key string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sessionPrefix, key))
}

// makeSessionDateKey generates a composite key for the session date index.
// Format: prefix:timestamp:sessionKey
func makeSessionDateKey(date time.Time, sessionKey string) []byte {
	prefix := sessionDatePrefix + ":"
	buf := make([]byte, len(prefix)+8+len(sessionKey))
	offset := copy(buf, prefix)
	// BigEndian so lexicographic sort matches chronological order
	binary.BigEndian.PutUint64(buf[offset:], uint64(date.UnixMicro()))
	offset += 8
	copy(buf[offset:], sessionKey)
	return buf
}

// makePartialSessionDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialSessionDateKey(date time.Time) []byte {
	prefix := sessionDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(date.UnixMicro()))
	return buf
}

// makeTranscriptKey generates a key for a session's transcript.
func makeTranscriptKey(sessionKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s", transcriptPrefix, sessionKey))
}

// makeChatMessageKey generates a composite key for one chat log entry.
// Format: prefix:sessionKey:seq, with seq in BigEndian so iteration
// returns messages in insertion order.
func makeChatMessageKey(sessionKey string, seq uint64) []byte {
	prefix := chatLogPrefix + ":" + sessionKey + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeChatLogPrefix generates the iteration prefix for a session's chat log.
func makeChatLogPrefix(sessionKey string) []byte {
	return []byte(chatLogPrefix + ":" + sessionKey + ":")
}
