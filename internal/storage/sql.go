package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions
(
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT      NOT NULL,
    start_time TIMESTAMP NOT NULL,
    receiver   TEXT      NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS frames
(
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id       INTEGER NOT NULL REFERENCES sessions (id),
    timestamp        INTEGER NOT NULL,
    center_frequency REAL    NOT NULL,
    sample_rate      REAL    NOT NULL,
    bin_count        INTEGER NOT NULL,
    power            BLOB    NOT NULL
);`

	// applied by Close, after recording has finished
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_frames_session_timestamp ON frames (session_id, timestamp);`

	insertSessionSQL = `
INSERT INTO sessions (
                      run_id,
                      start_time,
                      receiver,
                      config)
VALUES (?, CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT 
    id, 
    run_id,
    start_time, 
    receiver, 
    config 
FROM sessions 
WHERE 
    id = ?`

	selectSessionsSQL = `
SELECT 
    id, 
    run_id,
    start_time, 
    receiver, 
    config 
FROM sessions
ORDER BY start_time, id`

	insertFrameSQL = `
INSERT INTO frames (session_id,
                    timestamp,
                    center_frequency,
                    sample_rate,
                    bin_count,
                    power)
VALUES `

	selectFrameSummarySQL = `
SELECT 
    COUNT(*),
    COALESCE(MIN(timestamp), 0),
    COALESCE(MAX(timestamp), 0),
    COALESCE(MAX(bin_count), 0)
FROM frames
WHERE 
    session_id = ?`

	selectFramesSQL = `
SELECT 
    timestamp,
    center_frequency,
    sample_rate,
    power
FROM frames
WHERE 
    session_id = ?
    AND timestamp >= ?
    AND timestamp <= ?
ORDER BY timestamp, id`
)
