package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/directory"
	"github.com/civicgrid/grievance-engine/internal/domain"
	"github.com/civicgrid/grievance-engine/internal/events"
	"github.com/civicgrid/grievance-engine/internal/geocode"
	"github.com/civicgrid/grievance-engine/internal/observability"
	"github.com/civicgrid/grievance-engine/internal/store"
	"github.com/civicgrid/grievance-engine/internal/transport"
	"github.com/civicgrid/grievance-engine/internal/worker"
)

// ticketIDPattern matches the machine-extractable id embedded in officer
// notifications, e.g. "Ticket: #TKT-4821".
var ticketIDPattern = regexp.MustCompile(`(?i)Ticket(?: ID)?:\s*#?(TKT-\d+)`)

// ErrNoTicketID means the reply context carries no extractable ticket id.
var ErrNoTicketID = errors.New("no ticket id found in reply context")

// ErrAlreadyResolved flags a resolution attempt on a resolved ticket.
var ErrAlreadyResolved = errors.New("ticket already resolved")

// ExtractTicketID pulls the ticket id out of a notification's text.
func ExtractTicketID(text string) (string, error) {
	match := ticketIDPattern.FindStringSubmatch(text)
	if match == nil {
		return "", ErrNoTicketID
	}
	return match[1], nil
}

// Lifecycle owns the ticket state machine: creation on a completed intake
// session, the resolution workflow, and the rating sub-flow.
type Lifecycle struct {
	store       store.Store
	directory   *directory.Directory
	geocoder    geocode.Geocoder
	runner      *worker.Runner
	dispatcher  events.Dispatcher
	messenger   transport.Messenger
	metrics     *observability.Metrics
	logger      *zap.Logger
	officerChat int64
	geoTimeout  time.Duration
}

// Dependencies bundles collaborators for the lifecycle.
type Dependencies struct {
	Store          store.Store
	Directory      *directory.Directory
	Geocoder       geocode.Geocoder
	Runner         *worker.Runner
	Dispatcher     events.Dispatcher
	Messenger      transport.Messenger
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	OfficerChatID  int64
	GeocodeTimeout time.Duration
}

// New constructs the lifecycle.
func New(deps Dependencies) *Lifecycle {
	geoTimeout := deps.GeocodeTimeout
	if geoTimeout <= 0 {
		geoTimeout = 5 * time.Second
	}
	return &Lifecycle{
		store:       deps.Store,
		directory:   deps.Directory,
		geocoder:    deps.Geocoder,
		runner:      deps.Runner,
		dispatcher:  deps.Dispatcher,
		messenger:   deps.Messenger,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		officerChat: deps.OfficerChatID,
		geoTimeout:  geoTimeout,
	}
}

// CreateTicket builds and persists the ticket for a completed session. The
// store append runs in the background: the returned ticket is handed to the
// submitter before the write is confirmed, trading a small durability
// window for responsiveness. Geocoding and officer notification are best
// effort and never block creation.
func (l *Lifecycle) CreateTicket(ctx context.Context, submitter int64, eventID int, verdict *domain.TriageVerdict, evidenceRef string, sample domain.LocationSample) *domain.Ticket {
	assignment := l.directory.Resolve(ctx, verdict.Category)

	place := l.lookupPlace(ctx, sample)

	ticket := &domain.Ticket{
		ID:              domain.TicketID(eventID),
		CreatedAt:       time.Now(),
		Category:        verdict.Category,
		Severity:        verdict.Severity,
		Description:     verdict.Description,
		Status:          domain.TicketStatusOpen,
		AssignedOfficer: assignment.L1,
		Latitude:        fmt.Sprintf("%f", sample.Latitude),
		Longitude:       fmt.Sprintf("%f", sample.Longitude),
		MapLink:         domain.MapLink(sample.Latitude, sample.Longitude),
		Area:            place.Area,
		PostalCode:      place.PostalCode,
		SubmitterRef:    submitter,
		BeforeEvidence:  evidenceRef,
	}

	persisted := *ticket
	l.runner.Submit("append_ticket", func(ctx context.Context) error {
		return l.store.AppendTicket(ctx, &persisted)
	})

	l.notifyOfficer(ctx, ticket)
	l.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Category:        ticket.Category,
			Severity:        ticket.Severity,
			AssignedOfficer: ticket.AssignedOfficer,
			SubmitterRef:    ticket.SubmitterRef,
		},
	})
	l.metrics.RecordIntake(observability.CounterTicketsCreated)
	return ticket
}

// Resolve closes the loop on an officer's resolution evidence. The status
// update is awaited (not fire-and-forget) so every failure can be reported
// back to the officer. A not-found here may be the read-after-write lag of
// a just-created ticket; the caller should suggest a retry.
func (l *Lifecycle) Resolve(ctx context.Context, event transport.ReplyWithPhoto) (*domain.Ticket, error) {
	ticketID, err := ExtractTicketID(event.InReplyToText)
	if err != nil {
		return nil, err
	}

	ticket, err := l.store.FindTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved {
		return ticket, ErrAlreadyResolved
	}

	if err := l.store.UpdateStatus(ctx, ticketID, domain.TicketStatusResolved, event.EvidenceRef); err != nil {
		// Lost a race with another resolver between the read and the write.
		if errors.Is(err, store.ErrStatusUnchanged) {
			ticket.Status = domain.TicketStatusResolved
			return ticket, ErrAlreadyResolved
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	ticket.Status = domain.TicketStatusResolved
	ticket.AfterEvidence = event.EvidenceRef

	l.notifySubmitterResolved(ctx, ticketID, event.EvidenceRef)
	l.publish(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticketID,
		Payload: events.TicketResolvedPayload{
			ResolvedBy:    event.Replier,
			AfterEvidence: event.EvidenceRef,
		},
	})
	l.metrics.RecordIntake(observability.CounterTicketsResolved)
	return ticket, nil
}

// RecordRating stores the citizen score in the background. Repeated clicks
// are safe: last write wins.
func (l *Lifecycle) RecordRating(ctx context.Context, ticketID string, score int) {
	l.runner.Submit("update_rating", func(ctx context.Context) error {
		return l.store.UpdateRating(ctx, ticketID, score)
	})
	l.publish(ctx, events.Event{
		Type:     events.EventTicketRated,
		TicketID: ticketID,
		Payload:  events.TicketRatedPayload{Score: score},
	})
	l.metrics.RecordIntake(observability.CounterRatingsRecorded)
}

func (l *Lifecycle) lookupPlace(ctx context.Context, sample domain.LocationSample) geocode.Place {
	geoCtx, cancel := context.WithTimeout(ctx, l.geoTimeout)
	defer cancel()

	place, err := l.geocoder.Reverse(geoCtx, sample.Latitude, sample.Longitude)
	if err != nil {
		l.logger.Warn("reverse geocode failed", zap.Error(err))
		return geocode.Place{}
	}
	return place
}

// OfficerCaption renders the assignment notification. The "Ticket:" line is
// the anchor the resolution workflow extracts the id from.
func OfficerCaption(ticket *domain.Ticket) string {
	return fmt.Sprintf(
		"🚨 <b>New Grievance Assigned!</b>\n"+
			"Ticket: #%s\n"+
			"📂 Category: %s\n"+
			"⚠️ Severity: %s\n"+
			"📍 Area: %s\n"+
			"🗺 Map: %s\n\n"+
			"%s\n\n"+
			"Reply to this message with a photo of the completed work to mark it resolved.",
		ticket.ID, ticket.Category, ticket.Severity, ticket.Area, ticket.MapLink, ticket.Description)
}

func (l *Lifecycle) notifyOfficer(ctx context.Context, ticket *domain.Ticket) {
	if l.officerChat == 0 {
		l.logger.Warn("no officer chat configured; skipping assignment notification", zap.String("ticket_id", ticket.ID))
		return
	}
	if err := l.messenger.SendPhoto(ctx, l.officerChat, ticket.BeforeEvidence, OfficerCaption(ticket)); err != nil {
		l.logger.Error("officer notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (l *Lifecycle) notifySubmitterResolved(ctx context.Context, ticketID, afterRef string) {
	meta, err := l.store.TicketMeta(ctx, ticketID)
	if err != nil {
		l.logger.Error("ticket meta lookup failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	if err := l.messenger.SendBeforeAfter(ctx, meta.SubmitterRef, meta.BeforeEvidence, afterRef); err != nil {
		l.logger.Error("before/after notification failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	if err := l.messenger.SendText(ctx, meta.SubmitterRef,
		fmt.Sprintf("✅ Your grievance <b>%s</b> has been marked <b>Resolved</b>.", ticketID)); err != nil {
		l.logger.Error("resolution notification failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	if err := l.messenger.SendRatingPrompt(ctx, meta.SubmitterRef, ticketID); err != nil {
		l.logger.Error("rating prompt failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (l *Lifecycle) publish(ctx context.Context, event events.Event) {
	if l.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = l.dispatcher.Publish(ctx, event)
}
