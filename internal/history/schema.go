package history

// Schema definitions for the SQL backends.
// Dates stay TEXT (YYYY-MM-DD) so ordering and equality match the file layout.

const seededMetaKey = "seeded_at"

const schemaPostgres = `
CREATE SCHEMA IF NOT EXISTS pricecast;

CREATE TABLE IF NOT EXISTS pricecast.price_history (
    id BIGSERIAL PRIMARY KEY,
    product_id INTEGER NOT NULL,
    location_key TEXT NOT NULL,
    obs_date TEXT NOT NULL,
    price INTEGER NOT NULL CHECK (price >= 0)
);

CREATE INDEX IF NOT EXISTS idx_price_history_slot ON pricecast.price_history(product_id, location_key, obs_date);
CREATE INDEX IF NOT EXISTS idx_price_history_date ON pricecast.price_history(obs_date);

CREATE TABLE IF NOT EXISTS pricecast.history_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS price_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id INTEGER NOT NULL,
    location_key TEXT NOT NULL,
    obs_date TEXT NOT NULL,
    price INTEGER NOT NULL CHECK (price >= 0)
);

CREATE INDEX IF NOT EXISTS idx_price_history_slot ON price_history(product_id, location_key, obs_date);
CREATE INDEX IF NOT EXISTS idx_price_history_date ON price_history(obs_date);

CREATE TABLE IF NOT EXISTS history_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
