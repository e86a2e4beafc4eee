package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/clinical-notes/internal/blob"
)

const blobsTable = "blobs"

var blobColumns = []string{"id", "filename", "content_type", "size", "created_at_ms"}

// BlobStore keeps uploads in a single SQL table. It works on Postgres and
// SQLite through the ent SQL builder.
type BlobStore struct {
	drv    *entsql.Driver
	logger *slog.Logger
	closer func() error
}

var _ blob.Store = (*BlobStore)(nil)

// NewBlobStore wraps drv. closer runs on Close; pass nil if the caller
// owns the connection.
func NewBlobStore(drv *entsql.Driver, closer func() error, logger *slog.Logger) *BlobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{drv: drv, closer: closer, logger: logger}
}

// Migrate creates the blobs table when missing.
func (s *BlobStore) Migrate(ctx context.Context) error {
	binary := "BLOB"
	if s.drv.Dialect() == dialect.Postgres {
		binary = "BYTEA"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	content_type  TEXT NOT NULL,
	size          BIGINT NOT NULL,
	created_at_ms BIGINT NOT NULL,
	content       %s NOT NULL
)`, blobsTable, binary)
	if err := s.drv.Exec(ctx, ddl, []any{}, nil); err != nil {
		return fmt.Errorf("migrate blobs: %w", err)
	}
	return nil
}

func (s *BlobStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

func (s *BlobStore) Put(ctx context.Context, b *blob.Blob) error {
	content := b.Content
	if content == nil {
		content = []byte{}
	}
	query, args := s.builder().Insert(blobsTable).
		Columns("id", "filename", "content_type", "size", "created_at_ms", "content").
		Values(b.ID, b.Filename, b.ContentType, b.Size, b.CreatedAt.UnixMilli(), content).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()

	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		s.logger.Error("repo.blob.put_failed", "blob_id", b.ID, "error", err)
		return fmt.Errorf("insert blob: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert blob: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("blob %s: %w", b.ID, blob.ErrExists)
	}
	return nil
}

func (s *BlobStore) Stat(ctx context.Context, id string) (*blob.Blob, error) {
	return s.get(ctx, id, false)
}

func (s *BlobStore) Get(ctx context.Context, id string) (*blob.Blob, error) {
	return s.get(ctx, id, true)
}

func (s *BlobStore) get(ctx context.Context, id string, withContent bool) (*blob.Blob, error) {
	cols := blobColumns
	if withContent {
		cols = append(append([]string{}, blobColumns...), "content")
	}
	query, args := s.builder().Select(cols...).
		From(entsql.Table(blobsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("select blob: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("select blob: %w", err)
		}
		return nil, fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
	}

	var (
		out       blob.Blob
		createdMs int64
	)
	dest := []any{&out.ID, &out.Filename, &out.ContentType, &out.Size, &createdMs}
	if withContent {
		dest = append(dest, &out.Content)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan blob: %w", err)
	}
	out.CreatedAt = time.UnixMilli(createdMs).UTC()
	if withContent && out.Content == nil {
		out.Content = []byte{}
	}
	return &out, nil
}

func (s *BlobStore) Delete(ctx context.Context, id string) error {
	query, args := s.builder().Delete(blobsTable).
		Where(entsql.EQ("id", id)).
		Query()

	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
	}
	return nil
}

func (s *BlobStore) Close(context.Context) error {
	if s.closer == nil {
		return nil
	}
	closer := s.closer
	s.closer = nil
	return closer()
}
