package store

var schemaStatements = []string{
	`create table if not exists alerts (
		identifier   text primary key,
		sender       text not null,
		status       text not null,
		msg_type     text not null,
		scope        text not null,
		sent         timestamptz,
		published    boolean not null default false,
		published_at timestamptz,
		max_expires  timestamptz,
		doc          jsonb not null,
		created      timestamptz not null default now(),
		modified     timestamptz not null default now()
	)`,
	`create index if not exists alerts_active_idx
		on alerts (published, status, scope, sent desc)`,

	`create table if not exists webhook_targets (
		id       bigserial primary key,
		name     text not null,
		url      text not null unique,
		active   boolean not null default true,
		created  timestamptz not null default now(),
		modified timestamptz not null default now()
	)`,

	`create table if not exists webhook_delivery_events (
		id               bigserial primary key,
		target_id        bigint not null references webhook_targets (id) on delete cascade,
		alert_identifier text not null,
		status           text not null default 'PENDING',
		retries          integer not null default 0,
		error            text,
		created          timestamptz not null default now(),
		modified         timestamptz not null default now(),
		unique (target_id, alert_identifier)
	)`,

	`create table if not exists geocode_boundaries (
		id         bigserial primary key,
		value_name text not null,
		value      text not null,
		area_desc  text,
		geometry   jsonb not null,
		unique (value_name, value)
	)`,
}

// EnsureSchema creates the tables when missing. Idempotent.
func (s *Store) EnsureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
