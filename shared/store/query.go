package store

import (
	"database/sql"
	"time"
)

const upsertAlertQuery = `
insert into alerts (
	identifier,
	sender,
	status,
	msg_type,
	scope,
	sent,
	published,
	published_at,
	max_expires,
	doc
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
on conflict (identifier) do update set
	sender = excluded.sender,
	status = excluded.status,
	msg_type = excluded.msg_type,
	scope = excluded.scope,
	sent = excluded.sent,
	published = excluded.published,
	published_at = excluded.published_at,
	max_expires = excluded.max_expires,
	doc = excluded.doc,
	modified = now()
`

const selectAlertQuery = `
select doc
from alerts
where identifier = $1
`

const selectActiveAlertsQuery = `
select doc
from alerts
where
	published = true
	and status = 'Actual'
	and scope = 'Public'
	and (max_expires is null or max_expires >= now())
order by sent desc
`

const selectPublishedAlertsQuery = `
select doc
from alerts
where
	published = true
	and status = 'Actual'
	and scope = 'Public'
order by sent desc
limit $1
`

const deleteAlertQuery = `
delete from alerts
where identifier = $1
`

const insertTargetQuery = `
insert into webhook_targets (name, url, active)
values ($1, $2, $3)
returning id, name, url, active, created, modified
`

const updateTargetQuery = `
update webhook_targets
set name = $2, url = $3, active = $4, modified = now()
where id = $1
returning id, name, url, active, created, modified
`

const deleteTargetQuery = `
delete from webhook_targets
where id = $1
`

const selectTargetQuery = `
select id, name, url, active, created, modified
from webhook_targets
where id = $1
`

const selectTargetsQuery = `
select id, name, url, active, created, modified
from webhook_targets
order by id
`

const selectActiveTargetsQuery = `
select id, name, url, active, created, modified
from webhook_targets
where active = true
order by id
`

const selectDeliveryEventQuery = `
select id, target_id, alert_identifier, status, retries, error, created, modified
from webhook_delivery_events
where target_id = $1 and alert_identifier = $2
`

const insertDeliveryEventQuery = `
insert into webhook_delivery_events (target_id, alert_identifier, status, retries, error)
values ($1, $2, $3, $4, $5)
on conflict (target_id, alert_identifier) do nothing
returning id, created, modified
`

const updateDeliveryEventQuery = `
update webhook_delivery_events
set status = $2, retries = $3, error = $4, modified = now()
where id = $1
`

const selectDeliveryEventsByTargetQuery = `
select id, target_id, alert_identifier, status, retries, error, created, modified
from webhook_delivery_events
where target_id = $1
order by modified desc
limit $2
`

const selectDeliveryEventsByAlertQuery = `
select id, target_id, alert_identifier, status, retries, error, created, modified
from webhook_delivery_events
where alert_identifier = $1
order by modified desc
`

const geocodeQuery = `
select geometry
from geocode_boundaries
where value_name = $1 and value = $2
`

type alertRow struct {
	Doc []byte `db:"doc"`
}

type deliveryEventRow struct {
	ID              int64          `db:"id"`
	TargetID        int64          `db:"target_id"`
	AlertIdentifier string         `db:"alert_identifier"`
	Status          string         `db:"status"`
	Retries         int            `db:"retries"`
	Error           sql.NullString `db:"error"`
	Created         time.Time      `db:"created"`
	Modified        time.Time      `db:"modified"`
}

type geocodeRow struct {
	Geometry []byte `db:"geometry"`
}
