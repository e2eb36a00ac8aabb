package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/surrealkit/surrealdb.go/pkg/models"
)

// ErrImport is wrapped by every failure to read an export stream.
var ErrImport = errors.New("invalid import stream")

// exportHeader opens every export stream.
type exportHeader struct {
	Version   string `cbor:"version"`
	Namespace string `cbor:"ns"`
	Database  string `cbor:"db"`
}

type exportItem struct {
	Table  string         `cbor:"table"`
	Record map[string]any `cbor:"record"`
}

// Export writes every record of the session's database to w as a CBOR
// stream: a header followed by one item per record.
func (ds *Datastore) Export(ctx context.Context, sess *Session, w io.Writer) error {
	ks, err := sess.keyspace()
	if err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	enc := models.CborMarshaler{}.NewEncoder(w)
	if err := enc.Encode(exportHeader{Version: Version, Namespace: ks.NS, Database: ks.DB}); err != nil {
		return err
	}

	tables, err := ds.store.Tables(ctx, ks)
	if err != nil {
		return err
	}
	for _, table := range tables {
		records, err := ds.store.Scan(ctx, ks, table)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := enc.Encode(exportItem{Table: table, Record: rec}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Import reads a stream written by Export into the session's database.
// Records that already exist are overwritten.
func (ds *Datastore) Import(ctx context.Context, sess *Session, r io.Reader) error {
	ks, err := sess.keyspace()
	if err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	dec := models.CborUnmarshaler{}.NewDecoder(r)

	var header exportHeader
	if err := dec.Decode(&header); err != nil {
		return fmt.Errorf("%w: reading header: %w", ErrImport, err)
	}
	if header.Version == "" {
		return fmt.Errorf("%w: missing version in header", ErrImport)
	}

	for {
		var item exportItem
		err := dec.Decode(&item)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrImport, err)
		}

		rid, ok := item.Record["id"].(models.RecordID)
		if !ok || rid.Table != item.Table {
			return fmt.Errorf("%w: record in %s has no valid id", ErrImport, item.Table)
		}
		if err := ds.store.Put(ctx, ks, item.Table, rid.ID, normalize(item.Record).(map[string]any)); err != nil {
			return err
		}
	}
}
