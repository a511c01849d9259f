package transport

import "context"

// Inbound events delivered by the chat transport. The transport delivers
// events serially per submitter, which is what makes sessions single-flight.

// PhotoSubmitted carries one piece of photo evidence from a submitter.
type PhotoSubmitted struct {
	Submitter     int64
	EventID       int
	EvidenceBytes []byte
	EvidenceRef   string
}

// LocationShared carries one geolocation sample.
type LocationShared struct {
	Submitter int64
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// CancelRequested aborts the submitter's active session, if any.
type CancelRequested struct {
	Submitter int64
}

// ReplyWithPhoto is an officer replying to a notification with resolution
// evidence. InReplyToText is the text of the notification being replied to.
type ReplyWithPhoto struct {
	Replier       int64
	EvidenceRef   string
	InReplyToText string
}

// RatingChosen is the citizen picking a score on the rating prompt.
type RatingChosen struct {
	Submitter int64
	TicketID  string
	Score     int
}

// Handler consumes inbound events. Implemented by the intake engine.
type Handler interface {
	HandlePhoto(ctx context.Context, event PhotoSubmitted)
	HandleLocation(ctx context.Context, event LocationShared)
	HandleCancel(ctx context.Context, event CancelRequested)
	HandleResolutionReply(ctx context.Context, event ReplyWithPhoto)
	HandleRating(ctx context.Context, event RatingChosen)
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	// SendText sends an HTML-formatted message.
	SendText(ctx context.Context, chatID int64, html string) error
	// SendStatus sends a placeholder message and returns its id for
	// later editing.
	SendStatus(ctx context.Context, chatID int64, text string) (int, error)
	// EditStatus replaces a previously sent status message with HTML text.
	EditStatus(ctx context.Context, chatID int64, messageID int, html string) error
	// SendPhoto sends a photo by its transport file reference.
	SendPhoto(ctx context.Context, chatID int64, fileRef, caption string) error
	// SendBeforeAfter sends the grouped before/after evidence pair.
	SendBeforeAfter(ctx context.Context, chatID int64, beforeRef, afterRef string) error
	// SendRatingPrompt sends the inline 1..5 rating choice for a ticket.
	SendRatingPrompt(ctx context.Context, chatID int64, ticketID string) error
	// RequestLocation prompts the submitter with a share-location keyboard.
	RequestLocation(ctx context.Context, chatID int64, text string) error
}
