// Package store is the postgres persistence layer: alert aggregates,
// webhook targets, delivery events and the geocode boundary registry.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/wmo-raf/capwire/shared/models"
)

// ErrNotFound is returned by updates whose row does not exist.
var ErrNotFound = errors.New("row not found")

type Store struct {
	db *sqlx.DB
}

// New connects to postgres and prepares the schema.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg connection failed: %s", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.EnsureSchema(); err != nil {
		return nil, fmt.Errorf("schema setup failed: %s", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// --- alerts ---

// SaveAlert upserts the aggregate, mirroring the searchable columns from
// the document.
func (s *Store) SaveAlert(ctx context.Context, alert *models.Alert) error {
	doc, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshalling alert: %w", err)
	}

	var sent, publishedAt, maxExpires interface{}
	if !alert.Sent.IsZero() {
		sent = alert.Sent
	}
	if alert.PublishedAt != nil {
		publishedAt = *alert.PublishedAt
	}
	if me := alert.MaxExpires(); !me.IsZero() {
		maxExpires = me
	}

	_, err = s.db.ExecContext(ctx, upsertAlertQuery,
		alert.Identifier, alert.Sender, alert.Status, alert.MsgType, alert.Scope,
		sent, alert.Published, publishedAt, maxExpires, doc)
	if err != nil {
		return fmt.Errorf("alert upsert failed: %s", err)
	}
	return nil
}

// GetAlert returns the aggregate, or nil when unknown.
func (s *Store) GetAlert(ctx context.Context, identifier string) (*models.Alert, error) {
	var row alertRow
	err := s.db.GetContext(ctx, &row, selectAlertQuery, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("alert query failed: %s", err)
	}
	return decodeAlert(row.Doc)
}

// ActiveAlerts lists published Actual Public alerts that have not fully
// expired, newest first.
func (s *Store) ActiveAlerts(ctx context.Context) ([]*models.Alert, error) {
	return s.selectAlerts(ctx, selectActiveAlertsQuery)
}

// PublishedAlerts lists recently published Actual Public alerts including
// expired ones, for the feed.
func (s *Store) PublishedAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	return s.selectAlerts(ctx, selectPublishedAlertsQuery, limit)
}

func (s *Store) selectAlerts(ctx context.Context, query string, args ...interface{}) ([]*models.Alert, error) {
	var rows []alertRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("alerts query failed: %s", err)
	}
	alerts := make([]*models.Alert, 0, len(rows))
	for _, row := range rows {
		alert, err := decodeAlert(row.Doc)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func (s *Store) DeleteAlert(ctx context.Context, identifier string) error {
	if _, err := s.db.ExecContext(ctx, deleteAlertQuery, identifier); err != nil {
		return fmt.Errorf("alert delete failed: %s", err)
	}
	return nil
}

func decodeAlert(doc []byte) (*models.Alert, error) {
	var alert models.Alert
	if err := json.Unmarshal(doc, &alert); err != nil {
		return nil, fmt.Errorf("decoding alert document: %w", err)
	}
	return &alert, nil
}

// --- webhook targets ---

func (s *Store) CreateTarget(ctx context.Context, target *models.WebhookTarget) error {
	err := s.db.GetContext(ctx, target, insertTargetQuery, target.Name, target.URL, target.Active)
	if err != nil {
		return fmt.Errorf("target insert failed: %s", err)
	}
	return nil
}

func (s *Store) UpdateTarget(ctx context.Context, target *models.WebhookTarget) error {
	err := s.db.GetContext(ctx, target, updateTargetQuery, target.ID, target.Name, target.URL, target.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("target update failed: %s", err)
	}
	return nil
}

func (s *Store) DeleteTarget(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, deleteTargetQuery, id); err != nil {
		return fmt.Errorf("target delete failed: %s", err)
	}
	return nil
}

func (s *Store) GetTarget(ctx context.Context, id int64) (*models.WebhookTarget, error) {
	var target models.WebhookTarget
	err := s.db.GetContext(ctx, &target, selectTargetQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("target query failed: %s", err)
	}
	return &target, nil
}

func (s *Store) Targets(ctx context.Context) ([]models.WebhookTarget, error) {
	var targets []models.WebhookTarget
	if err := s.db.SelectContext(ctx, &targets, selectTargetsQuery); err != nil {
		return nil, fmt.Errorf("targets query failed: %s", err)
	}
	return targets, nil
}

func (s *Store) ActiveTargets(ctx context.Context) ([]models.WebhookTarget, error) {
	var targets []models.WebhookTarget
	if err := s.db.SelectContext(ctx, &targets, selectActiveTargetsQuery); err != nil {
		return nil, fmt.Errorf("active targets query failed: %s", err)
	}
	return targets, nil
}

// --- delivery events ---

func (s *Store) GetDeliveryEvent(ctx context.Context, targetID int64, alertIdentifier string) (*models.WebhookDeliveryEvent, error) {
	var row deliveryEventRow
	err := s.db.GetContext(ctx, &row, selectDeliveryEventQuery, targetID, alertIdentifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delivery event query failed: %s", err)
	}
	event := rowToEvent(row)
	return &event, nil
}

// CreateDeliveryEvent inserts the single row for the (target, alert)
// pair. A concurrent insert of the same pair is absorbed by re-reading.
func (s *Store) CreateDeliveryEvent(ctx context.Context, event *models.WebhookDeliveryEvent) error {
	var errText interface{}
	if event.Error != "" {
		errText = event.Error
	}
	var row struct {
		ID       int64     `db:"id"`
		Created  time.Time `db:"created"`
		Modified time.Time `db:"modified"`
	}
	err := s.db.GetContext(ctx, &row, insertDeliveryEventQuery,
		event.TargetID, event.AlertIdentifier, event.Status, event.Retries, errText)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.GetDeliveryEvent(ctx, event.TargetID, event.AlertIdentifier)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return fmt.Errorf("delivery event insert conflicted but row is missing")
		}
		*event = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("delivery event insert failed: %s", err)
	}
	event.ID = row.ID
	event.Created = row.Created
	event.Modified = row.Modified
	return nil
}

func (s *Store) UpdateDeliveryEvent(ctx context.Context, event *models.WebhookDeliveryEvent) error {
	var errText interface{}
	if event.Error != "" {
		errText = event.Error
	}
	if _, err := s.db.ExecContext(ctx, updateDeliveryEventQuery,
		event.ID, event.Status, event.Retries, errText); err != nil {
		return fmt.Errorf("delivery event update failed: %s", err)
	}
	return nil
}

func (s *Store) DeliveryEventsByTarget(ctx context.Context, targetID int64, limit int) ([]models.WebhookDeliveryEvent, error) {
	var rows []deliveryEventRow
	if err := s.db.SelectContext(ctx, &rows, selectDeliveryEventsByTargetQuery, targetID, limit); err != nil {
		return nil, fmt.Errorf("delivery events query failed: %s", err)
	}
	return rowsToEvents(rows), nil
}

func (s *Store) DeliveryEventsByAlert(ctx context.Context, alertIdentifier string) ([]models.WebhookDeliveryEvent, error) {
	var rows []deliveryEventRow
	if err := s.db.SelectContext(ctx, &rows, selectDeliveryEventsByAlertQuery, alertIdentifier); err != nil {
		return nil, fmt.Errorf("delivery events query failed: %s", err)
	}
	return rowsToEvents(rows), nil
}

func rowToEvent(row deliveryEventRow) models.WebhookDeliveryEvent {
	event := models.WebhookDeliveryEvent{
		ID:              row.ID,
		TargetID:        row.TargetID,
		AlertIdentifier: row.AlertIdentifier,
		Status:          row.Status,
		Retries:         row.Retries,
		Created:         row.Created,
		Modified:        row.Modified,
	}
	if row.Error.Valid {
		event.Error = row.Error.String
	}
	return event
}

func rowsToEvents(rows []deliveryEventRow) []models.WebhookDeliveryEvent {
	events := make([]models.WebhookDeliveryEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, rowToEvent(row))
	}
	return events
}

// --- geocode boundary registry ---

// ResolveGeocode returns the stored geometry for a boundary reference, or
// nil when the registry has no entry.
func (s *Store) ResolveGeocode(ctx context.Context, valueName, value string) (*models.Geometry, error) {
	var row geocodeRow
	err := s.db.GetContext(ctx, &row, geocodeQuery, valueName, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("geocode_boundaries query failed: %s", err)
	}

	var geom models.Geometry
	if err := json.Unmarshal(row.Geometry, &geom); err != nil {
		return nil, fmt.Errorf("decoding boundary geometry: %w", err)
	}
	return &geom, nil
}
