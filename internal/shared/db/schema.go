package db

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	email             TEXT NOT NULL UNIQUE,
	phone             TEXT NOT NULL,
	password_hash     TEXT NOT NULL,
	role              TEXT NOT NULL CHECK (role IN ('admin', 'driver', 'customer')),
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	license_number    TEXT,
	license_expiry    TIMESTAMPTZ,
	vehicle_id        TEXT,
	address           TEXT,
	last_latitude     DOUBLE PRECISION,
	last_longitude    DOUBLE PRECISION,
	last_location_at  TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_phone_idx ON users (phone);

CREATE TABLE IF NOT EXISTS vehicles (
	id                  TEXT PRIMARY KEY,
	vehicle_number      TEXT NOT NULL UNIQUE,
	type                TEXT NOT NULL,
	brand               TEXT,
	model               TEXT,
	capacity_weight     DOUBLE PRECISION,
	capacity_volume     DOUBLE PRECISION,
	is_active           BOOLEAN NOT NULL DEFAULT TRUE,
	is_available        BOOLEAN NOT NULL DEFAULT TRUE,
	current_driver_id   TEXT REFERENCES users(id),
	registration_expiry TIMESTAMPTZ,
	insurance_expiry    TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS deliveries (
	id                      TEXT PRIMARY KEY,
	customer_id             TEXT NOT NULL REFERENCES users(id),
	driver_id               TEXT REFERENCES users(id),
	vehicle_id              TEXT REFERENCES vehicles(id),
	pickup_latitude         DOUBLE PRECISION NOT NULL,
	pickup_longitude        DOUBLE PRECISION NOT NULL,
	pickup_address          TEXT NOT NULL,
	dropoff_latitude        DOUBLE PRECISION NOT NULL,
	dropoff_longitude       DOUBLE PRECISION NOT NULL,
	dropoff_address         TEXT NOT NULL,
	route                   JSONB,
	status                  TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'assigned', 'picked_up', 'on_route', 'delivered', 'cancelled')),
	priority                TEXT NOT NULL DEFAULT 'medium'
		CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
	package                 JSONB NOT NULL,
	scheduled_pickup_time   TIMESTAMPTZ,
	scheduled_delivery_time TIMESTAMPTZ,
	actual_pickup_time      TIMESTAMPTZ,
	actual_delivery_time    TIMESTAMPTZ,
	customer_notes          TEXT,
	driver_notes            TEXT,
	cancellation_reason     TEXT,
	assigned_at             TIMESTAMPTZ,
	picked_up_at            TIMESTAMPTZ,
	on_route_at             TIMESTAMPTZ,
	delivered_at            TIMESTAMPTZ,
	cancelled_at            TIMESTAMPTZ,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS deliveries_customer_idx ON deliveries (customer_id);
CREATE INDEX IF NOT EXISTS deliveries_driver_status_idx ON deliveries (driver_id, status);
CREATE INDEX IF NOT EXISTS deliveries_vehicle_status_idx ON deliveries (vehicle_id, status);
CREATE INDEX IF NOT EXISTS deliveries_status_priority_idx ON deliveries (status, priority);
CREATE INDEX IF NOT EXISTS deliveries_created_idx ON deliveries (created_at DESC);

CREATE TABLE IF NOT EXISTS tracking_points (
	id            TEXT PRIMARY KEY,
	delivery_id   TEXT NOT NULL REFERENCES deliveries(id),
	driver_id     TEXT NOT NULL REFERENCES users(id),
	vehicle_id    TEXT REFERENCES vehicles(id),
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	accuracy      DOUBLE PRECISION,
	altitude      DOUBLE PRECISION,
	speed         DOUBLE PRECISION,
	heading       DOUBLE PRECISION,
	status        TEXT NOT NULL DEFAULT 'moving'
		CHECK (status IN ('moving', 'stopped', 'at_pickup', 'at_dropoff', 'idle')),
	battery_level DOUBLE PRECISION,
	network_type  TEXT,
	recorded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS tracking_delivery_time_idx ON tracking_points (delivery_id, recorded_at DESC);
CREATE INDEX IF NOT EXISTS tracking_driver_time_idx ON tracking_points (driver_id, recorded_at DESC);
CREATE INDEX IF NOT EXISTS tracking_time_idx ON tracking_points (recorded_at);
`
