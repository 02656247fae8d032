package messages

import (
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "SCRIBE/"
	// Work queue name, transcription requests
	Work = st + "Work"
	// Inform queue name, admin notifications
	Inform = st + "Inform"
)

// FileKind tells how the file was attached to a chat message
type FileKind string

const (
	// KindVoice - voice note
	KindVoice FileKind = "voice"
	// KindAudio - audio message
	KindAudio FileKind = "audio"
	// KindVideo - video or video note
	KindVideo FileKind = "video"
	// KindDocument - file sent as document
	KindDocument FileKind = "document"
)

// File describes a chat attachment
type File struct {
	ID   string   `json:"id"`
	Name string   `json:"name,omitempty"`
	Kind FileKind `json:"kind"`
	Size int64    `json:"size,omitempty"`
}

// TranscribeMessage is a request to transcribe one file
type TranscribeMessage struct {
	amessages.QueueMessage
	ChatID   int64  `json:"chatID"`
	UserID   int64  `json:"userID"`
	Language string `json:"language,omitempty"`
	File     File   `json:"file"`
}

// AdminMessage is a text for administrators
type AdminMessage struct {
	amessages.QueueMessage
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}
