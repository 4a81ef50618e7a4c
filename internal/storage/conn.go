package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when a closed store is used.
var ErrClosed = errors.New("store is closed")

const (
	writeDSNParams = "_journal_mode=WAL&_synchronous=NORMAL"
	readDSNParams  = "mode=ro"
)

// lazyConn opens a database handle on first use and remembers the outcome.
type lazyConn struct {
	role  string // write or read, used in error messages
	dsn   string
	setup func(db *sql.DB) error

	once sync.Once
	db   *sql.DB
	err  error
}

func newLazyConn(role, path, params string, setup func(db *sql.DB) error) *lazyConn {
	return &lazyConn{
		role:  role,
		dsn:   fmt.Sprintf("file:%s?%s", path, params),
		setup: setup,
	}
}

func (c *lazyConn) get() (*sql.DB, error) {
	c.once.Do(func() {
		db, err := sql.Open("sqlite3", c.dsn)
		if err != nil {
			c.err = fmt.Errorf("opening %s connection: %w", c.role, err)
			return
		}

		if c.setup != nil {
			if err = c.setup(db); err != nil {
				_ = db.Close()
				c.err = err
				return
			}
		}

		c.db = db
	})

	if c.err != nil {
		return nil, fmt.Errorf("getting %s connection: %w", c.role, c.err)
	}
	return c.db, nil
}

// opened returns the handle only if a previous get succeeded. A handle
// that was never opened stays closed for good.
func (c *lazyConn) opened() *sql.DB {
	c.once.Do(func() { c.err = ErrClosed })
	return c.db
}

// setupWriter serialises writers and creates the schema.
func setupWriter(db *sql.DB) error {
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(initSchemaSQL); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}
