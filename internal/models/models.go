package models

// DeliveryMode identifies which rendition of a source video the user asked for.
type DeliveryMode string

const (
	ModeBestVideo    DeliveryMode = "video"
	ModeReducedVideo DeliveryMode = "reduced"
	ModeAudioOnly    DeliveryMode = "audio"
)

// Valid reports whether the mode is one of the three supported renditions.
func (m DeliveryMode) Valid() bool {
	switch m {
	case ModeBestVideo, ModeReducedVideo, ModeAudioOnly:
		return true
	}
	return false
}

// ChatRef addresses the conversation a transfer reports back into.
type ChatRef struct {
	ChatID int64
	UserID int64
}

// DeliveryMethod selects how a finished file is handed to the chat platform.
type DeliveryMethod string

const (
	DeliverInlineVideo DeliveryMethod = "inline_video"
	DeliverDocument    DeliveryMethod = "document"
	DeliverAudio       DeliveryMethod = "audio"
)

// Delivery describes a finished artifact ready to be sent into a chat.
type Delivery struct {
	Method    DeliveryMethod
	Path      string
	Filename  string
	Title     string
	Performer string
	Duration  int
}
