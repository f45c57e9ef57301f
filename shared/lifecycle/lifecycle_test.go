package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wmo-raf/capwire/shared/models"
	"github.com/wmo-raf/capwire/shared/queue"
)

type fakeStore struct {
	alerts map[string]*models.Alert
}

func newFakeStore() *fakeStore {
	return &fakeStore{alerts: map[string]*models.Alert{}}
}

func (s *fakeStore) GetAlert(ctx context.Context, identifier string) (*models.Alert, error) {
	alert, ok := s.alerts[identifier]
	if !ok {
		return nil, nil
	}
	copied := *alert
	return &copied, nil
}

func (s *fakeStore) SaveAlert(ctx context.Context, alert *models.Alert) error {
	copied := *alert
	s.alerts[alert.Identifier] = &copied
	return nil
}

func (s *fakeStore) DeleteAlert(ctx context.Context, identifier string) error {
	delete(s.alerts, identifier)
	return nil
}

type fakeEnqueuer struct {
	jobs []queue.Job
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, job queue.Job) error {
	e.jobs = append(e.jobs, job)
	return nil
}

type fakeAnnouncer struct {
	announced []string
}

func (a *fakeAnnouncer) Announce(ctx context.Context, alert *models.Alert) error {
	a.announced = append(a.announced, alert.Identifier)
	return nil
}

func draftAlert(identifier string) *models.Alert {
	return &models.Alert{
		Identifier: identifier,
		Sender:     "alerts@meteo.example.org",
		Status:     models.StatusActual,
		MsgType:    models.MsgTypeAlert,
		Scope:      models.ScopePublic,
		Infos: []models.AlertInfo{{
			Category:  "Met",
			Event:     "Flash Flood",
			Urgency:   models.UrgencyImmediate,
			Severity:  models.SeverityExtreme,
			Certainty: models.CertaintyObserved,
			Areas: models.AreaList{
				models.GeocodeArea{AreaDesc: "Test county", ValueName: "ADM1", Value: "XX-01"},
			},
		}},
	}
}

func TestCreateDraft(t *testing.T) {
	t.Run("assigns identifier when missing", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		alert := draftAlert("")
		created, err := svc.CreateDraft(context.Background(), alert)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if created.Identifier == "" {
			t.Fatalf("expected generated identifier, got empty")
		}
		if created.Published {
			t.Fatalf("expected draft to be unpublished")
		}
	})

	t.Run("keeps provided identifier", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		created, err := svc.CreateDraft(context.Background(), draftAlert("given-id"))
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if created.Identifier != "given-id" {
			t.Fatalf("expected given-id, got %s", created.Identifier)
		}
	})
}

func TestPublish(t *testing.T) {
	t.Run("sets sent time and enqueues follow-ups", func(t *testing.T) {
		store := newFakeStore()
		jobs := &fakeEnqueuer{}
		announcer := &fakeAnnouncer{}
		svc := NewService(store, jobs, announcer)

		if _, err := svc.CreateDraft(context.Background(), draftAlert("a1")); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		published, err := svc.Publish(context.Background(), "a1")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !published.Published || published.PublishedAt == nil {
			t.Fatalf("expected published alert, got %+v", published)
		}
		if published.Sent.IsZero() {
			t.Fatalf("expected sent time to be set")
		}

		if len(jobs.jobs) != 2 {
			t.Fatalf("expected 2 jobs, got %d", len(jobs.jobs))
		}
		types := map[queue.JobType]bool{}
		for _, job := range jobs.jobs {
			types[job.Type] = true
			if job.AlertIdentifier != "a1" {
				t.Fatalf("expected job for a1, got %s", job.AlertIdentifier)
			}
		}
		if !types[queue.JobMultimedia] || !types[queue.JobWebhookDispatch] {
			t.Fatalf("expected multimedia and webhook jobs, got %+v", types)
		}

		if len(announcer.announced) != 1 || announcer.announced[0] != "a1" {
			t.Fatalf("expected announcement for a1, got %+v", announcer.announced)
		}
	})

	t.Run("preserves an authored sent time", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		alert := draftAlert("a2")
		authored := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		alert.Sent = authored
		if _, err := svc.CreateDraft(context.Background(), alert); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		published, err := svc.Publish(context.Background(), "a2")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !published.Sent.Equal(authored) {
			t.Fatalf("expected sent %s, got %s", authored, published.Sent)
		}
	})

	t.Run("rejects a second publish of an Actual alert", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		if _, err := svc.CreateDraft(context.Background(), draftAlert("a3")); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if _, err := svc.Publish(context.Background(), "a3"); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		_, err := svc.Publish(context.Background(), "a3")
		if !errors.Is(err, ErrAlreadyPublished) {
			t.Fatalf("expected ErrAlreadyPublished, got %v", err)
		}
	})

	t.Run("unknown identifier", func(t *testing.T) {
		svc := NewService(newFakeStore(), &fakeEnqueuer{}, nil)
		_, err := svc.Publish(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestEdit(t *testing.T) {
	t.Run("rejects editing a published Actual alert", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		if _, err := svc.CreateDraft(context.Background(), draftAlert("a1")); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if _, err := svc.Publish(context.Background(), "a1"); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		_, err := svc.Edit(context.Background(), "a1", draftAlert("a1"))
		if !errors.Is(err, ErrImmutableAlert) {
			t.Fatalf("expected ErrImmutableAlert, got %v", err)
		}
	})

	t.Run("published Test alerts stay editable", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		alert := draftAlert("t1")
		alert.Status = models.StatusTest
		if _, err := svc.CreateDraft(context.Background(), alert); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if _, err := svc.Publish(context.Background(), "t1"); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		updated := draftAlert("t1")
		updated.Status = models.StatusTest
		updated.Infos[0].Event = "Revised Event"

		edited, err := svc.Edit(context.Background(), "t1", updated)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if edited.Infos[0].Event != "Revised Event" {
			t.Fatalf("expected revised event, got %s", edited.Infos[0].Event)
		}
		if !edited.Published {
			t.Fatalf("expected publication state preserved through edit")
		}
	})

	t.Run("identifier is immutable through edit", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		if _, err := svc.CreateDraft(context.Background(), draftAlert("a1")); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		updated := draftAlert("hijacked")
		edited, err := svc.Edit(context.Background(), "a1", updated)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if edited.Identifier != "a1" {
			t.Fatalf("expected identifier a1, got %s", edited.Identifier)
		}
	})
}

func TestDelete(t *testing.T) {
	t.Run("rejects deleting a published Actual alert", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		if _, err := svc.CreateDraft(context.Background(), draftAlert("a1")); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if _, err := svc.Publish(context.Background(), "a1"); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if err := svc.Delete(context.Background(), "a1"); !errors.Is(err, ErrImmutableAlert) {
			t.Fatalf("expected ErrImmutableAlert, got %v", err)
		}
	})

	t.Run("deletes drafts", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		if _, err := svc.CreateDraft(context.Background(), draftAlert("a1")); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if err := svc.Delete(context.Background(), "a1"); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if _, ok := store.alerts["a1"]; ok {
			t.Fatalf("expected alert removed from store")
		}
	})
}

func TestSupersede(t *testing.T) {
	t.Run("chains references and resets lifecycle state", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		orig := draftAlert("a1")
		orig.References = []models.Reference{{
			Sender: "alerts@meteo.example.org", Identifier: "a0",
			Sent: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		}}
		if _, err := svc.CreateDraft(context.Background(), orig); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if _, err := svc.Publish(context.Background(), "a1"); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		successor, err := svc.Supersede(context.Background(), "a1", models.MsgTypeUpdate)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if successor.Identifier == "a1" || successor.Identifier == "" {
			t.Fatalf("expected fresh identifier, got %q", successor.Identifier)
		}
		if successor.MsgType != models.MsgTypeUpdate {
			t.Fatalf("expected Update, got %s", successor.MsgType)
		}
		if successor.Published || !successor.Sent.IsZero() {
			t.Fatalf("expected fresh draft state, got %+v", successor)
		}

		if len(successor.References) != 2 {
			t.Fatalf("expected 2 references, got %d", len(successor.References))
		}
		if successor.References[0].Identifier != "a1" || successor.References[1].Identifier != "a0" {
			t.Fatalf("expected references [a1 a0], got %+v", successor.References)
		}

		// original untouched
		stored, _ := store.GetAlert(context.Background(), "a1")
		if !stored.Published || stored.MsgType != models.MsgTypeAlert {
			t.Fatalf("expected original unchanged, got %+v", stored)
		}
	})

	t.Run("rejects invalid msgType", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeEnqueuer{}, nil)

		if _, err := svc.CreateDraft(context.Background(), draftAlert("a1")); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if _, err := svc.Supersede(context.Background(), "a1", models.MsgTypeAlert); err == nil {
			t.Fatalf("expected error for msgType Alert, got nil")
		}
	})
}

func TestRegenerateMultimedia(t *testing.T) {
	store := newFakeStore()
	jobs := &fakeEnqueuer{}
	svc := NewService(store, jobs, nil)

	if _, err := svc.CreateDraft(context.Background(), draftAlert("a1")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := svc.RegenerateMultimedia(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(jobs.jobs) != 1 || jobs.jobs[0].Type != queue.JobMultimedia {
		t.Fatalf("expected one multimedia job, got %+v", jobs.jobs)
	}
}
