package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/russross/meddler"
	"github.com/stark-indexer/strkindexer/pkg/starknet"
)

// Registered once per process, following the teacher's internal/db pattern
// of one init()-registered meddler.Converter per custom column type. Unlike
// the teacher (which registers "hash" in two separate files — a real bug in
// the corpus), each converter here is registered exactly once.
func init() {
	meddler.Register("felt", FeltMeddler{})
	meddler.Register("feltlist", FeltListMeddler{})
	meddler.Register("jsonnull", JSONNullMeddler{})
}

// FeltMeddler maps starknet.Felt to/from a hex string column.
type FeltMeddler struct{}

func (FeltMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (FeltMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*starknet.Felt)
	if !ok {
		return fmt.Errorf("expected *starknet.Felt, got %T", fieldAddr)
	}

	if !ns.Valid {
		*ptr = starknet.Felt{}
		return nil
	}
	*ptr = starknet.HexToFelt(ns.String)
	return nil
}

func (FeltMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	f, ok := field.(starknet.Felt)
	if !ok {
		return nil, fmt.Errorf("expected starknet.Felt, got %T", field)
	}
	return f.Hex(), nil
}

// FeltListMeddler maps []starknet.Felt to/from a JSON array of hex strings,
// the keys/data columns from spec §6's persisted state layout.
type FeltListMeddler struct{}

func (FeltListMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (FeltListMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*[]starknet.Felt)
	if !ok {
		return fmt.Errorf("expected *[]starknet.Felt, got %T", fieldAddr)
	}

	if !ns.Valid || ns.String == "" {
		*ptr = nil
		return nil
	}

	var hexValues []string
	if err := json.Unmarshal([]byte(ns.String), &hexValues); err != nil {
		return fmt.Errorf("failed to unmarshal felt list: %w", err)
	}

	felts := make([]starknet.Felt, len(hexValues))
	for i, h := range hexValues {
		felts[i] = starknet.HexToFelt(h)
	}
	*ptr = felts
	return nil
}

func (FeltListMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	felts, ok := field.([]starknet.Felt)
	if !ok {
		return nil, fmt.Errorf("expected []starknet.Felt, got %T", field)
	}

	hexValues := make([]string, len(felts))
	for i, f := range felts {
		hexValues[i] = f.Hex()
	}

	b, err := json.Marshal(hexValues)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal felt list: %w", err)
	}
	return string(b), nil
}

// JSONNullMeddler maps map[string]interface{} to/from a nullable JSON text
// column — the events.decoded column, which is NULL whenever the ABI
// Registry could not decode the event (spec §4.B).
type JSONNullMeddler struct{}

func (JSONNullMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (JSONNullMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("expected *map[string]interface{}, got %T", fieldAddr)
	}

	if !ns.Valid {
		*ptr = nil
		return nil
	}

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return fmt.Errorf("failed to unmarshal decoded payload: %w", err)
	}
	*ptr = m
	return nil
}

func (JSONNullMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	m, ok := field.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected map[string]interface{}, got %T", field)
	}

	if m == nil {
		return nil, nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decoded payload: %w", err)
	}
	return string(b), nil
}
