package viewsync

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	// Postgres driver
	_ "github.com/lib/pq"
)

// PGSnapshotStore is a SnapshotStore backed by a Postgres connection. Reads
// go against the logical view, so server-side views with derived or renamed
// columns come back already in view shape.
type PGSnapshotStore struct {
	db *sqlx.DB
}

// NewPGSnapshotStore returns a PGSnapshotStore over an existing connection.
func NewPGSnapshotStore(db *sqlx.DB) *PGSnapshotStore {
	return &PGSnapshotStore{db: db}
}

// OpenPGSnapshotStore dials Postgres and returns a PGSnapshotStore.
func OpenPGSnapshotStore(config *DBConfig) (*PGSnapshotStore, error) {
	db, err := sqlx.Open("postgres", config.ConnString())
	if err != nil {
		return nil, err
	}
	return &PGSnapshotStore{db: db}, nil
}

// Query runs a snapshot read against a view.
func (s *PGSnapshotStore) Query(ctx context.Context, view string, opts QueryOptions) ([]Record, error) {
	query, args := buildSnapshotQuery(view, opts)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			// lib/pq hands back []byte for text-ish types
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		records = append(records, Record(row))
	}

	return records, rows.Err()
}

// Close closes the underlying connection.
func (s *PGSnapshotStore) Close() error {
	return s.db.Close()
}

func buildSnapshotQuery(view string, opts QueryOptions) (string, []interface{}) {
	var b strings.Builder
	var args []interface{}

	b.WriteString("SELECT * FROM ")
	b.WriteString(quoteIdent(view))

	for i, f := range opts.Filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, f.Value)
		b.WriteString(quoteIdent(f.Column))
		b.WriteString(" = $")
		b.WriteString(strconv.Itoa(len(args)))
	}

	if opts.OrderBy != nil {
		b.WriteString(" ORDER BY ")
		b.WriteString(quoteIdent(opts.OrderBy.Column))
		if !opts.OrderBy.Ascending {
			b.WriteString(" DESC")
		}
	}

	if opts.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(opts.Limit))
	}

	return b.String(), args
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
