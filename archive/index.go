package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS frames (
	path      TEXT PRIMARY KEY,
	object    TEXT NOT NULL,
	frame_id  INTEGER NOT NULL,
	data_type TEXT NOT NULL,
	filter    TEXT NOT NULL,
	date_obs  TEXT NOT NULL,
	ra        REAL NOT NULL,
	dec       REAL NOT NULL,
	phase     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS frames_object ON frames(object);
`

const upsertFrameSQL = `
INSERT INTO frames (path, object, frame_id, data_type, filter, date_obs, ra, dec, phase)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	object = excluded.object,
	frame_id = excluded.frame_id,
	data_type = excluded.data_type,
	filter = excluded.filter,
	date_obs = excluded.date_obs,
	ra = excluded.ra,
	dec = excluded.dec,
	phase = excluded.phase
`

const selectFramesSQL = `
SELECT path, object, frame_id, data_type, filter, date_obs, ra, dec, phase
FROM frames ORDER BY path
`

// Index is a sqlite catalog of frames
type Index struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error
}

// NewIndex returns an index backed by the sqlite file at dbPath.  The file
// is created on first use.
func NewIndex(dbPath string) *Index {
	return &Index{dbPath: dbPath}
}

func (i *Index) getDB() (*sql.DB, error) {
	i.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", i.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			i.dbErr = fmt.Errorf("opening database: %w", err)
			return
		}
		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			i.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		i.db = db
	})
	return i.db, i.dbErr
}

// Record inserts or replaces the entry for e.Path
func (i *Index) Record(ctx context.Context, e Entry) error {
	db, err := i.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, upsertFrameSQL, e.Path, e.Object, e.FrameID, e.DataType, e.Filter, e.DateObs, e.RA, e.Dec, e.Phase)
	if err != nil {
		return fmt.Errorf("recording frame %s: %w", e.Path, err)
	}
	return nil
}

// List returns every entry, sorted by path
func (i *Index) List(ctx context.Context) (entries []Entry, err error) {
	db, err := i.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectFramesSQL)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer closeWithError(rows, &err)
	for rows.Next() {
		var e Entry
		if err = rows.Scan(&e.Path, &e.Object, &e.FrameID, &e.DataType, &e.Filter, &e.DateObs, &e.RA, &e.Dec, &e.Phase); err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sync scans dir and records every frame found, returning how many
func (i *Index) Sync(ctx context.Context, dir string) (int, error) {
	entries, err := Scan(dir)
	if err != nil {
		return 0, err
	}
	for n, e := range entries {
		if err = i.Record(ctx, e); err != nil {
			return n, err
		}
	}
	return len(entries), nil
}

// Close releases the database, if it was opened
func (i *Index) Close() error {
	if i.db == nil {
		return nil
	}
	return i.db.Close()
}

func closeWithError(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
