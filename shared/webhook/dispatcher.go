// Package webhook delivers signed CAP documents to registered subscribers
// and keeps the per-(target, alert) delivery bookkeeping that the job
// queue's retry policy reads.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/metrics"
	"github.com/wmo-raf/capwire/shared/models"
)

// TimestampHeader carries the Unix-seconds send time on every request.
const TimestampHeader = "CAPWire-Webhook-Request-Timestamp"

// DeliveryFailure is a per-target failed attempt. The dispatcher records
// it on the delivery event and returns it so the queue applies its
// backoff-and-retry policy; the dispatcher runs no timer of its own.
type DeliveryFailure struct {
	TargetURL  string
	StatusCode int
	Reason     string
}

func (e *DeliveryFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery to %s failed with status %d: %s", e.TargetURL, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("delivery to %s failed: %s", e.TargetURL, e.Reason)
}

// Store is the persistence surface for targets and delivery events.
type Store interface {
	ActiveTargets(ctx context.Context) ([]models.WebhookTarget, error)
	GetDeliveryEvent(ctx context.Context, targetID int64, alertIdentifier string) (*models.WebhookDeliveryEvent, error)
	CreateDeliveryEvent(ctx context.Context, event *models.WebhookDeliveryEvent) error
	UpdateDeliveryEvent(ctx context.Context, event *models.WebhookDeliveryEvent) error
}

// Dispatcher fans a document out to all active targets. Deliveries to
// different targets run concurrently; deliveries for the same
// (target, alert) pair are serialized through a keyed mutex so racing
// retries never clobber the same event row.
type Dispatcher struct {
	store  Store
	client *http.Client
	locks  *keyedMutex
	now    func() time.Time
}

func NewDispatcher(store Store, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		store:  store,
		client: &http.Client{Timeout: timeout},
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

// Dispatch sends the document to every active target. Alerts that are not
// published Actual Public are skipped with a logged reason, not an error.
// Any per-target failure is recorded and the combined error returned so
// the enclosing job retries.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert, document []byte) error {
	if !alert.PubliclyDistributable() {
		log.WithFields(log.Fields{
			"alertId": alert.Identifier,
			"status":  alert.Status,
			"scope":   alert.Scope,
			"live":    alert.Published,
		}).Info("alert not publicly distributable, skipping webhook dispatch")
		return nil
	}

	targets, err := d.store.ActiveTargets(ctx)
	if err != nil {
		return fmt.Errorf("loading webhook targets: %w", err)
	}
	if len(targets) == 0 {
		log.WithFields(log.Fields{"alertId": alert.Identifier}).Warn("no active webhooks found")
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target models.WebhookTarget) {
			defer wg.Done()
			errs[i] = d.deliver(ctx, target, alert, document)
		}(i, target)
	}
	wg.Wait()

	var failed []string
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d/%d deliveries failed: %s", len(failed), len(targets), strings.Join(failed, "; "))
	}
	return nil
}

// deliver performs one attempt for one target, updating the single
// delivery event for the (target, alert) pair in place.
func (d *Dispatcher) deliver(ctx context.Context, target models.WebhookTarget, alert *models.Alert, document []byte) error {
	key := fmt.Sprintf("%d:%s", target.ID, alert.Identifier)
	d.locks.Lock(key)
	defer d.locks.Unlock(key)

	event, err := d.store.GetDeliveryEvent(ctx, target.ID, alert.Identifier)
	if err != nil {
		return fmt.Errorf("loading delivery event: %w", err)
	}
	if event == nil {
		event = &models.WebhookDeliveryEvent{
			TargetID:        target.ID,
			AlertIdentifier: alert.Identifier,
			Status:          models.DeliveryPending,
		}
		if err := d.store.CreateDeliveryEvent(ctx, event); err != nil {
			return fmt.Errorf("creating delivery event: %w", err)
		}
	}

	started := time.Now()
	failure := d.send(ctx, target.URL, document)
	metrics.WebhookDeliveryDuration.Observe(time.Since(started).Seconds())

	if failure != nil {
		event.Status = models.DeliveryFailure
		event.Retries++
		event.Error = failure.Error()
		metrics.WebhookDeliveriesTotal.WithLabelValues("failure").Inc()

		if err := d.store.UpdateDeliveryEvent(ctx, event); err != nil {
			log.WithFields(log.Fields{"alertId": alert.Identifier, "target": target.URL, "error": err}).
				Error("failed to persist delivery failure")
		}
		log.WithFields(log.Fields{
			"alertId": alert.Identifier, "target": target.URL,
			"retries": event.Retries, "error": failure.Reason,
		}).Warn("webhook delivery failed")
		return failure
	}

	event.Status = models.DeliverySuccess
	event.Error = ""
	metrics.WebhookDeliveriesTotal.WithLabelValues("success").Inc()

	if err := d.store.UpdateDeliveryEvent(ctx, event); err != nil {
		return fmt.Errorf("persisting delivery success: %w", err)
	}
	log.WithFields(log.Fields{"alertId": alert.Identifier, "target": target.URL}).
		Info("webhook delivered")
	return nil
}

// send performs the HTTP POST. A timeout counts the same as a non-2xx
// response.
func (d *Dispatcher) send(ctx context.Context, url string, document []byte) *DeliveryFailure {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(document))
	if err != nil {
		return &DeliveryFailure{TargetURL: url, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set(TimestampHeader, strconv.FormatInt(d.now().Unix(), 10))

	resp, err := d.client.Do(req)
	if err != nil {
		return &DeliveryFailure{TargetURL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryFailure{
			TargetURL:  url,
			StatusCode: resp.StatusCode,
			Reason:     strings.TrimSpace(string(body)),
		}
	}
	return nil
}
