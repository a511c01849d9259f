package intake

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/domain"
	"github.com/civicgrid/grievance-engine/internal/gate"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
	"github.com/civicgrid/grievance-engine/internal/observability"
	"github.com/civicgrid/grievance-engine/internal/store"
	"github.com/civicgrid/grievance-engine/internal/transport"
	"github.com/civicgrid/grievance-engine/internal/triage"
)

// Engine orchestrates one submitter's journey from photo to ticket, and
// the officer/citizen flows that close the loop. It implements
// transport.Handler.
type Engine struct {
	limiter    gate.RateLimiter
	duplicates gate.DuplicateDetector
	triage     *triage.Gate
	lifecycle  *lifecycle.Lifecycle
	messenger  transport.Messenger
	sessions   *Sessions
	validator  LocationValidator
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// Dependencies bundles collaborators for the engine.
type Dependencies struct {
	Limiter    gate.RateLimiter
	Duplicates gate.DuplicateDetector
	Triage     *triage.Gate
	Lifecycle  *lifecycle.Lifecycle
	Messenger  transport.Messenger
	Validator  LocationValidator
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewEngine constructs the engine.
func NewEngine(deps Dependencies) *Engine {
	return &Engine{
		limiter:    deps.Limiter,
		duplicates: deps.Duplicates,
		triage:     deps.Triage,
		lifecycle:  deps.Lifecycle,
		messenger:  deps.Messenger,
		sessions:   NewSessions(),
		validator:  deps.Validator,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// HandlePhoto runs the admission gates and triage for new evidence. A new
// photo while a session awaits a location supersedes the pending verdict.
func (e *Engine) HandlePhoto(ctx context.Context, event transport.PhotoSubmitted) {
	e.metrics.RecordIntake(observability.CounterSubmissions)

	allowed, err := e.limiter.Allow(ctx, event.Submitter)
	if err != nil {
		// Gate backend down: admit rather than block the citizen.
		e.logger.Error("rate limiter unavailable", zap.Int64("submitter", event.Submitter), zap.Error(err))
		allowed = true
	}
	if !allowed {
		e.metrics.RecordIntake(observability.CounterRejectedRateLimit)
		e.sessions.End(event.Submitter)
		e.send(ctx, event.Submitter, "⏳ You have reached the hourly submission limit. Please try again later.")
		return
	}

	duplicate, err := e.duplicates.IsDuplicate(ctx, event.EvidenceBytes)
	if err != nil {
		e.logger.Error("duplicate detector unavailable", zap.Int64("submitter", event.Submitter), zap.Error(err))
		duplicate = false
	}
	if duplicate {
		e.metrics.RecordIntake(observability.CounterRejectedDuplicate)
		e.sessions.End(event.Submitter)
		e.send(ctx, event.Submitter, "⚠️ This photo has already been submitted. Please send a new photo of the issue.")
		return
	}

	statusID, err := e.messenger.SendStatus(ctx, event.Submitter, "🧐 Analyzing your photo with AI... Please wait.")
	if err != nil {
		e.logger.Error("status message failed", zap.Int64("submitter", event.Submitter), zap.Error(err))
	}

	verdict, err := e.triage.Classify(ctx, event.EvidenceBytes)
	if err != nil {
		e.metrics.RecordIntake(observability.CounterTriageFailures)
		e.logger.Error("triage failed", zap.Int64("submitter", event.Submitter), zap.Error(err))
		e.sessions.End(event.Submitter)
		e.edit(ctx, event.Submitter, statusID, "❌ Something went wrong while analyzing the image. Please try again.")
		return
	}
	if !verdict.IsValid {
		e.metrics.RecordIntake(observability.CounterRejectedTriage)
		e.sessions.End(event.Submitter)
		e.edit(ctx, event.Submitter, statusID,
			fmt.Sprintf("❌ <b>Submission rejected</b>\n\n%s", verdict.RejectionReason))
		return
	}

	if err := e.duplicates.MarkSeen(ctx, event.EvidenceBytes); err != nil {
		e.logger.Error("duplicate mark failed", zap.Int64("submitter", event.Submitter), zap.Error(err))
	}
	e.sessions.Begin(event.Submitter, event.EventID, verdict, event.EvidenceRef)

	e.edit(ctx, event.Submitter, statusID, fmt.Sprintf(
		"✅ <b>Analysis Complete</b>\n\n📂 Category: %s\n⚠️ Severity: %s\n📝 %s",
		verdict.Category, verdict.Severity, verdict.Description))
	if err := e.messenger.RequestLocation(ctx, event.Submitter,
		"📍 Now share the location of the issue so we can route it."); err != nil {
		e.logger.Error("location prompt failed", zap.Int64("submitter", event.Submitter), zap.Error(err))
	}
}

// HandleLocation advances an awaiting-location session, or asks for a
// resample when the fix is too coarse.
func (e *Engine) HandleLocation(ctx context.Context, event transport.LocationShared) {
	session, ok := e.sessions.Get(event.Submitter)
	if !ok || session.State != StateAwaitingLocation {
		e.send(ctx, event.Submitter, "Please send a photo of the issue first.")
		return
	}

	sample := domain.LocationSample{
		Latitude:       event.Latitude,
		Longitude:      event.Longitude,
		AccuracyMeters: event.Accuracy,
	}
	if !e.validator.Acceptable(sample) {
		if err := e.messenger.RequestLocation(ctx, event.Submitter, fmt.Sprintf(
			"📍 Location accuracy is too low (±%.0fm). Please move to an open area and share again.",
			sample.AccuracyMeters)); err != nil {
			e.logger.Error("location retry prompt failed", zap.Int64("submitter", event.Submitter), zap.Error(err))
		}
		return
	}

	ticket := e.lifecycle.CreateTicket(ctx, event.Submitter, session.EventID, session.Verdict, session.EvidenceRef, sample)
	e.sessions.End(event.Submitter)

	e.send(ctx, event.Submitter, fmt.Sprintf(
		"🎫 <b>Ticket Created: #%s</b>\n\n📂 Category: %s\n⚠️ Severity: %s\n👮 Assigned To: %s\n\nYou will be notified once it is resolved.",
		ticket.ID, ticket.Category, ticket.Severity, ticket.AssignedOfficer))
}

// HandleCancel discards the submitter's active session.
func (e *Engine) HandleCancel(ctx context.Context, event transport.CancelRequested) {
	if e.sessions.End(event.Submitter) {
		e.send(ctx, event.Submitter, "🚫 Report cancelled. Send a new photo anytime.")
		return
	}
	e.send(ctx, event.Submitter, "Nothing to cancel. Send a photo to report an issue.")
}

// HandleResolutionReply processes an officer's resolution evidence. Every
// failure is reported back to the officer, never silently dropped.
func (e *Engine) HandleResolutionReply(ctx context.Context, event transport.ReplyWithPhoto) {
	ticket, err := e.lifecycle.Resolve(ctx, event)
	switch {
	case err == nil:
		e.send(ctx, event.Replier, fmt.Sprintf(
			"✅ Ticket <b>%s</b> marked <b>Resolved</b>. The citizen has been notified.", ticket.ID))
	case errors.Is(err, lifecycle.ErrNoTicketID):
		e.send(ctx, event.Replier,
			"❌ Could not find a ticket id in the message you replied to. Reply directly to the assignment notification.")
	case errors.Is(err, store.ErrTicketNotFound):
		e.send(ctx, event.Replier,
			"❌ Ticket not found in the register yet. It may still be syncing; please retry in a moment.")
	case errors.Is(err, lifecycle.ErrAlreadyResolved):
		e.send(ctx, event.Replier, fmt.Sprintf("ℹ️ Ticket <b>%s</b> is already resolved.", ticket.ID))
	default:
		e.logger.Error("resolution failed", zap.Int64("replier", event.Replier), zap.Error(err))
		e.send(ctx, event.Replier, "❌ Something went wrong while resolving the ticket. Please retry.")
	}
}

// HandleRating records the citizen's score. The write is fire-and-forget
// and last-write-wins under repeated clicks.
func (e *Engine) HandleRating(ctx context.Context, event transport.RatingChosen) {
	if event.Score < 1 || event.Score > 5 {
		e.logger.Warn("rating out of range", zap.String("ticket_id", event.TicketID), zap.Int("score", event.Score))
		return
	}
	e.lifecycle.RecordRating(ctx, event.TicketID, event.Score)
}

func (e *Engine) send(ctx context.Context, chatID int64, text string) {
	if err := e.messenger.SendText(ctx, chatID, text); err != nil {
		e.logger.Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (e *Engine) edit(ctx context.Context, chatID int64, messageID int, text string) {
	if messageID == 0 {
		e.send(ctx, chatID, text)
		return
	}
	if err := e.messenger.EditStatus(ctx, chatID, messageID, text); err != nil {
		e.logger.Error("edit failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
