package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"ordercore/internal/infra/persistence/memory"
	"ordercore/pkg/domain"
)

func TestNewStoreCreatesTableAndLoadsSnapshot(t *testing.T) {
	db, conn := newStubDB()
	seed := memory.Snapshot{
		Parameters: []domain.OrderedItem{{
			ID: "p1", OwnerID: "o1", Resource: domain.ResourceParameter, SortOrder: 0,
		}},
		Revisions: map[string]uint64{"o1/parameter": 1},
	}
	seedBuckets(t, conn, seed)

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	scope := domain.Scope{OwnerID: "o1", Resource: domain.ResourceParameter}
	items := store.ListItems(scope)
	if len(items) != 1 || items[0].ID != "p1" {
		t.Fatalf("snapshot not hydrated: %+v", items)
	}
	if store.Revision(scope) != 1 {
		t.Fatalf("revision not hydrated: %d", store.Revision(scope))
	}
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
			break
		}
	}
	if !sawDDL {
		t.Fatalf("state table DDL not applied, execs: %v", conn.execs)
	}
}

func TestRunInTransactionPersistsBuckets(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var created domain.OrderedItem
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var e error
		created, e = tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceExtra})
		return e
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	payload, ok := conn.buckets["extras"]
	if !ok {
		t.Fatalf("extras bucket not persisted, buckets: %v", bucketNames(conn))
	}
	var extras []domain.OrderedItem
	if err := json.Unmarshal(payload, &extras); err != nil {
		t.Fatalf("decode persisted bucket: %v", err)
	}
	if len(extras) != 1 || extras[0].ID != created.ID {
		t.Fatalf("persisted bucket mismatch: %+v", extras)
	}
	if _, ok := conn.buckets["revisions"]; !ok {
		t.Fatalf("revisions bucket not persisted")
	}

	// A fresh store over the same connection must see the committed state.
	reloaded, err := NewStore("ignored")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	scope := domain.Scope{OwnerID: "o1", Resource: domain.ResourceExtra}
	if items := reloaded.ListItems(scope); len(items) != 1 || items[0].ID != created.ID {
		t.Fatalf("reload mismatch: %+v", items)
	}
}

func TestPersistFailureSurfacesStorageError(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	conn.failExec = true
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateItem(domain.OrderedItem{OwnerID: "o1", Resource: domain.ResourceParameter})
		return e
	})
	if !domain.IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func seedBuckets(t *testing.T, conn *stubConn, snapshot memory.Snapshot) {
	t.Helper()
	put := func(bucket string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", bucket, err)
		}
		conn.buckets[bucket] = data
	}
	put("parameters", snapshot.Parameters)
	put("exclude_parameters", snapshot.ExcludeParameters)
	put("extras", snapshot.Extras)
	put("revisions", snapshot.Revisions)
}

func bucketNames(conn *stubConn) []string {
	out := make([]string, 0, len(conn.buckets))
	for k := range conn.buckets {
		out = append(out, k)
	}
	return out
}

// --- stub driver helpers ---

type stubDriver struct {
	conn *stubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConn struct {
	execs    []string
	buckets  map[string][]byte
	failExec bool
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{buckets: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *stubConn) Ping(_ context.Context) error { return nil }

func (c *stubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	if c.failExec {
		return nil, fmt.Errorf("exec fail")
	}
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO STATE") {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected bucket and payload args, got %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("bucket arg must be string, got %T", args[0].Value)
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("payload arg must be bytes, got %T", args[1].Value)
		}
		c.buckets[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToLower(query), "from state") {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	rows := make([][]driver.Value, 0, len(c.buckets))
	for bucket, payload := range c.buckets {
		rows = append(rows, []driver.Value{bucket, append([]byte(nil), payload...)})
	}
	return &stubRows{cols: []string{"bucket", "payload"}, rows: rows}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
