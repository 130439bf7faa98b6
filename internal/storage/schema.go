package storage

const schemaSQL = `
-- Frontier: one row per URL handed to the crawler in this run
-- status lifecycle: queued -> processing -> done | failed
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    status TEXT NOT NULL DEFAULT 'queued' CHECK (status IN ('queued', 'processing', 'done', 'failed')),

    added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    processing_started_at DATETIME,

    -- Outcome fields (NULL until processed)
    reason TEXT,
    status_code INTEGER,
    content_type TEXT,
    tokens INTEGER,
    links INTEGER,
    response_size_bytes INTEGER,
    ttfb_ms INTEGER,
    download_time_ms INTEGER,
    error_message TEXT,
    processed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);
CREATE INDEX IF NOT EXISTS idx_pages_status_added ON pages(status, id);
CREATE INDEX IF NOT EXISTS idx_pages_reason ON pages(reason) WHERE reason IS NOT NULL;

CREATE VIEW IF NOT EXISTS queue_status AS
SELECT
    status,
    COUNT(*) as count,
    MIN(added_at) as oldest_item,
    MAX(added_at) as newest_item
FROM pages
GROUP BY status;

CREATE VIEW IF NOT EXISTS rejection_reasons AS
SELECT reason, COUNT(*) as count
FROM pages
WHERE status = 'failed'
GROUP BY reason;

-- Final aggregate of the last run
CREATE TABLE IF NOT EXISTS unique_urls (
    url TEXT PRIMARY KEY NOT NULL
);

CREATE TABLE IF NOT EXISTS longest_page (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    url TEXT NOT NULL,
    tokens INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS token_frequency (
    token TEXT PRIMARY KEY NOT NULL,
    count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subdomains (
    host TEXT PRIMARY KEY NOT NULL,
    count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS crawl_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`

// Tables cleared at the start of every run
var runTables = []string{
	"pages",
	"unique_urls",
	"longest_page",
	"token_frequency",
	"subdomains",
	"crawl_meta",
}
