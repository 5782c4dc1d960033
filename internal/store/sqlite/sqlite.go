// Package sqlite is the reference Persistence Port adapter (spec §4.A),
// grounded on the teacher's internal/db connection-opening idiom and its
// meddler-based struct<->row mapping throughout internal/reorg and
// internal/downloader.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/russross/meddler"
	"github.com/stark-indexer/strkindexer/pkg/store"
)

var _ store.Store = (*Store)(nil)

// Config mirrors the teacher's pkg/config.DatabaseConfig connection/pragma
// knobs, narrowed to what this adapter actually exercises.
type Config struct {
	Path               string
	JournalMode        string
	Synchronous        string
	BusyTimeoutMS      int
	MaxOpenConnections int
	MaxIdleConnections int
}

// ApplyDefaults fills unset fields the way the teacher's DatabaseConfig does.
func (c *Config) ApplyDefaults() {
	if c.JournalMode == "" {
		c.JournalMode = "WAL"
	}
	if c.Synchronous == "" {
		c.Synchronous = "NORMAL"
	}
	if c.BusyTimeoutMS == 0 {
		c.BusyTimeoutMS = 5000
	}
	if c.MaxOpenConnections == 0 {
		c.MaxOpenConnections = 25
	}
	if c.MaxIdleConnections == 0 {
		c.MaxIdleConnections = 5
	}
}

// Store is the SQLite Persistence Port adapter.
type Store struct {
	db *sql.DB
}

// Open opens (and pragma-tunes) a SQLite database, the adapter's share of
// spec §4.G step 1 ("initialize persistence").
func Open(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()

	connStr := fmt.Sprintf(
		"file:%s?_txlock=immediate&_foreign_keys=on&_journal_mode=%s&_busy_timeout=%d",
		cfg.Path, cfg.JournalMode, cfg.BusyTimeoutMS,
	)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA synchronous = %s", cfg.Synchronous)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous pragma: %w", err)
	}

	return &Store{db: db}, nil
}

// Conn exposes the raw pool, e.g. for the migration runner.
func (s *Store) Conn() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Begin opens a scoped write transaction, spec §4.A.
func (s *Store) Begin(ctx context.Context) (store.Txn, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, store.NewTransientStorageError("begin", err)
	}
	return &txn{tx: tx}, nil
}

// GetCursor reads the singleton cursor row.
func (s *Store) GetCursor(ctx context.Context) (store.Cursor, bool, error) {
	var c store.Cursor
	err := meddler.QueryRow(s.db, &c, "SELECT * FROM cursor WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return store.Cursor{}, false, nil
	}
	if err != nil {
		return store.Cursor{}, false, store.NewTransientStorageError("get_cursor", err)
	}
	return c, true, nil
}

// Query is the escape hatch exposed to user handlers, spec §4.A/§9: a fresh
// connection from the pool, never the processor's own transaction.
func (s *Store) Query(ctx context.Context, sqlText string, params ...interface{}) ([]map[string]interface{}, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, store.NewTransientStorageError("query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

type txn struct {
	tx *sql.Tx
}

// UpsertBlock writes the block row via a raw INSERT ... ON CONFLICT rather
// than meddler.Save: meddler infers insert-vs-update from whether the
// primary key field holds its zero value, which misfires for a genesis
// block numbered 0 (a legitimate, non-"unset" primary key here).
func (t *txn) UpsertBlock(ctx context.Context, block store.Block) error {
	hashCol, err := (FeltMeddler{}).PreWrite(block.Hash)
	if err != nil {
		return err
	}
	parentCol, err := (FeltMeddler{}).PreWrite(block.ParentHash)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO blocks (block_number, block_hash, parent_hash, timestamp, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (block_number) DO UPDATE SET
			block_hash = excluded.block_hash,
			parent_hash = excluded.parent_hash,
			timestamp = excluded.timestamp,
			status = excluded.status`,
		block.Number, hashCol, parentCol, block.Timestamp, string(block.Status),
	)
	if err != nil {
		return store.NewTransientStorageError("upsert_block", err)
	}
	return nil
}

// InsertEvents tolerates a primary-key conflict as a no-op, per spec
// invariant 6 — the adapter uses INSERT OR IGNORE rather than meddler.Save
// because a conflicting row here is an expected replay, not an error.
func (t *txn) InsertEvents(ctx context.Context, events []store.Event) error {
	for i := range events {
		if err := insertEventIgnoreConflict(ctx, t.tx, &events[i]); err != nil {
			return store.NewTransientStorageError("insert_events", err)
		}
	}
	return nil
}

func insertEventIgnoreConflict(ctx context.Context, tx *sql.Tx, e *store.Event) error {
	keysCol, err := (FeltListMeddler{}).PreWrite(e.Keys)
	if err != nil {
		return err
	}
	dataCol, err := (FeltListMeddler{}).PreWrite(e.Data)
	if err != nil {
		return err
	}
	decodedCol, err := (JSONNullMeddler{}).PreWrite(e.Decoded)
	if err != nil {
		return err
	}
	contractCol, err := (FeltMeddler{}).PreWrite(e.ContractAddress)
	if err != nil {
		return err
	}
	blockHashCol, err := (FeltMeddler{}).PreWrite(e.BlockHash)
	if err != nil {
		return err
	}
	txHashCol, err := (FeltMeddler{}).PreWrite(e.TxHash)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO events
			(block_hash, tx_hash, event_index, block_number, contract_address, keys, data, decoded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		blockHashCol, txHashCol, e.EventIndex, e.BlockNumber, contractCol, keysCol, dataCol, decodedCol,
	)
	return err
}

// SetCursor upserts the singleton cursor row. A raw INSERT ... ON CONFLICT is
// used instead of meddler.Update because the row does not exist yet the
// first time a cursor is ever committed, and meddler.Update requires exactly
// one row to already match the primary key.
func (t *txn) SetCursor(ctx context.Context, cursor store.Cursor) error {
	hashCol, err := (FeltMeddler{}).PreWrite(cursor.BlockHash)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO cursor (id, block_number, block_hash) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET block_number = excluded.block_number, block_hash = excluded.block_hash`,
		cursor.BlockNumber, hashCol,
	)
	if err != nil {
		return store.NewTransientStorageError("set_cursor", err)
	}
	return nil
}

// DeleteFrom removes every block/event with number >= blockNumber, the
// rollback path for spec §4.D/§4.E's Reorg directive. Both deletes are
// issued explicitly, events first, so events are removed even when the
// schema's ON DELETE CASCADE is inert because the foreign-key pragma is off.
// The returned count is the number of blocks deleted.
func (t *txn) DeleteFrom(ctx context.Context, blockNumber uint64) (int64, error) {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM events WHERE block_number >= ?", blockNumber); err != nil {
		return 0, store.NewTransientStorageError("delete_from_events", err)
	}

	result, err := t.tx.ExecContext(ctx, "DELETE FROM blocks WHERE block_number >= ?", blockNumber)
	if err != nil {
		return 0, store.NewTransientStorageError("delete_from_blocks", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return count, nil
}

func (t *txn) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return store.NewTransientStorageError("commit", err)
	}
	return nil
}

func (t *txn) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}
