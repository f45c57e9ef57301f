// Package lifecycle governs the Draft -> Published transition of alerts
// and the edit/delete permissions that follow from it. Beyond the guarded
// field mutation the state machine is synchronous and side-effect free:
// the webhook dispatcher and multimedia pipeline are scheduled as
// independent background jobs, never awaited.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/metrics"
	"github.com/wmo-raf/capwire/shared/models"
	"github.com/wmo-raf/capwire/shared/queue"
)

var (
	// ErrImmutableAlert rejects any mutation of a published Actual alert.
	// Corrections must be expressed as a new alert via Supersede.
	ErrImmutableAlert = errors.New("published Actual alert is immutable")

	// ErrAlreadyPublished rejects a duplicate publish of an Actual alert.
	ErrAlreadyPublished = errors.New("alert is already published")

	// ErrNotFound is returned when the identifier resolves to nothing.
	ErrNotFound = errors.New("alert not found")
)

// AlertStore is the persistence surface the state machine needs.
type AlertStore interface {
	GetAlert(ctx context.Context, identifier string) (*models.Alert, error)
	SaveAlert(ctx context.Context, alert *models.Alert) error
	DeleteAlert(ctx context.Context, identifier string) error
}

// Enqueuer submits background jobs. Satisfied by *queue.Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// Announcer broadcasts a short publish notification. Best effort; a nil
// announcer disables it.
type Announcer interface {
	Announce(ctx context.Context, alert *models.Alert) error
}

// Service executes lifecycle transitions against the store.
type Service struct {
	store     AlertStore
	jobs      Enqueuer
	announcer Announcer
	now       func() time.Time
}

func NewService(store AlertStore, jobs Enqueuer, announcer Announcer) *Service {
	return &Service{store: store, jobs: jobs, announcer: announcer, now: time.Now}
}

// CreateDraft persists a new unpublished alert, assigning an identifier
// when the authoring surface did not.
func (s *Service) CreateDraft(ctx context.Context, alert *models.Alert) (*models.Alert, error) {
	if alert.Identifier == "" {
		alert.Identifier = uuid.NewString()
	}
	alert.Published = false
	alert.PublishedAt = nil
	if err := s.store.SaveAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("saving draft: %w", err)
	}
	return alert, nil
}

// Publish transitions the alert to published exactly once, sets the sent
// time when unset, and schedules the multimedia pipeline and webhook
// dispatcher as independent follow-ups. It does not block on either.
func (s *Service) Publish(ctx context.Context, identifier string) (*models.Alert, error) {
	alert, err := s.get(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if alert.Published && alert.Status == models.StatusActual {
		return nil, ErrAlreadyPublished
	}

	now := s.now()
	if alert.Sent.IsZero() {
		alert.Sent = now
	}
	alert.Published = true
	alert.PublishedAt = &now

	if err := s.store.SaveAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("saving published alert: %w", err)
	}

	for _, jobType := range []queue.JobType{queue.JobMultimedia, queue.JobWebhookDispatch} {
		job := queue.Job{Type: jobType, AlertIdentifier: alert.Identifier}
		if err := s.jobs.Enqueue(ctx, job); err != nil {
			// the transition already happened; follow-ups are recoverable
			log.WithFields(log.Fields{"alertId": alert.Identifier, "jobType": jobType, "error": err}).
				Error("failed to enqueue publish follow-up")
		}
	}

	if s.announcer != nil {
		if err := s.announcer.Announce(ctx, alert); err != nil {
			log.WithFields(log.Fields{"alertId": alert.Identifier, "error": err}).
				Warn("publish announcement failed")
		}
	}

	metrics.AlertsPublishedTotal.Inc()
	log.WithFields(log.Fields{"alertId": alert.Identifier, "status": alert.Status}).Info("alert published")
	return alert, nil
}

// Edit replaces the stored aggregate with the updated one. The identifier
// and publication state are immutable through this path.
func (s *Service) Edit(ctx context.Context, identifier string, updated *models.Alert) (*models.Alert, error) {
	alert, err := s.get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if alert.Immutable() {
		return nil, ErrImmutableAlert
	}

	updated.Identifier = alert.Identifier
	updated.Published = alert.Published
	updated.PublishedAt = alert.PublishedAt

	if err := s.store.SaveAlert(ctx, updated); err != nil {
		return nil, fmt.Errorf("saving edited alert: %w", err)
	}
	return updated, nil
}

// Unpublish takes a non-Actual alert off the air.
func (s *Service) Unpublish(ctx context.Context, identifier string) error {
	alert, err := s.get(ctx, identifier)
	if err != nil {
		return err
	}
	if alert.Immutable() {
		return ErrImmutableAlert
	}
	alert.Published = false
	alert.PublishedAt = nil
	if err := s.store.SaveAlert(ctx, alert); err != nil {
		return fmt.Errorf("saving unpublished alert: %w", err)
	}
	return nil
}

// Delete removes the alert entirely, subject to the same immutability
// guard as Edit.
func (s *Service) Delete(ctx context.Context, identifier string) error {
	alert, err := s.get(ctx, identifier)
	if err != nil {
		return err
	}
	if alert.Immutable() {
		return ErrImmutableAlert
	}
	return s.store.DeleteAlert(ctx, identifier)
}

// Supersede creates a new draft alert correcting or cancelling the
// original. The new alert references the original (first) plus everything
// the original referenced, and its own lifecycle is independent. The
// original is not mutated.
func (s *Service) Supersede(ctx context.Context, identifier, msgType string) (*models.Alert, error) {
	if msgType != models.MsgTypeUpdate && msgType != models.MsgTypeCancel {
		return nil, fmt.Errorf("supersede msgType must be %s or %s, got %q",
			models.MsgTypeUpdate, models.MsgTypeCancel, msgType)
	}

	orig, err := s.get(ctx, identifier)
	if err != nil {
		return nil, err
	}

	refs := make([]models.Reference, 0, len(orig.References)+1)
	refs = append(refs, models.Reference{
		Sender:     orig.Sender,
		Identifier: orig.Identifier,
		Sent:       orig.Sent,
	})
	refs = append(refs, orig.References...)

	successor := *orig
	successor.Identifier = uuid.NewString()
	successor.MsgType = msgType
	successor.References = refs
	successor.Sent = time.Time{}
	successor.Published = false
	successor.PublishedAt = nil
	successor.AreaMapKey = ""
	successor.PDFKey = ""
	successor.ThumbnailKey = ""
	successor.Infos = append([]models.AlertInfo(nil), orig.Infos...)

	if err := s.store.SaveAlert(ctx, &successor); err != nil {
		return nil, fmt.Errorf("saving superseding alert: %w", err)
	}
	return &successor, nil
}

// RegenerateMultimedia re-enqueues artifact generation, used after a
// correction. Regeneration never happens implicitly on read.
func (s *Service) RegenerateMultimedia(ctx context.Context, identifier string) error {
	if _, err := s.get(ctx, identifier); err != nil {
		return err
	}
	return s.jobs.Enqueue(ctx, queue.Job{Type: queue.JobMultimedia, AlertIdentifier: identifier})
}

func (s *Service) get(ctx context.Context, identifier string) (*models.Alert, error) {
	alert, err := s.store.GetAlert(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("loading alert %s: %w", identifier, err)
	}
	if alert == nil {
		return nil, ErrNotFound
	}
	return alert, nil
}
