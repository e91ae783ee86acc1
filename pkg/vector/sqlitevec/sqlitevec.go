// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/gleaner/pkg/logger"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

// Config holds configuration for the sqlite-vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the embedding width. Required.
	Dimensions uint

	Logger *slog.Logger
}

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDriver opens the database and creates the index tables.
func NewDriver(c Config) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 tables key rows by integer rowid; vec_documents maps record IDs to them.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL DEFAULT '',
			conversation_id TEXT NOT NULL DEFAULT ''
		)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`, c.Dimensions),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating vector tables: %w", err)
		}
	}

	log.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{db: db, logger: log}, nil
}

// encode packs v as little-endian float32s, the sqlite-vec BLOB format.
func encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Add stores documents, replacing any with the same ID.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		var rowID int64
		err := tx.QueryRowContext(ctx, `SELECT rowid FROM vec_documents WHERE doc_id = ?`, doc.ID).Scan(&rowID)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_documents SET kind = ?, conversation_id = ? WHERE rowid = ?`,
				doc.Kind, doc.ConversationID, rowID,
			); err != nil {
				return fmt.Errorf("updating document %s: %w", doc.ID, err)
			}
			// vec0 has no UPDATE
			if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
				return fmt.Errorf("deleting old embedding for doc %s: %w", doc.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO vec_documents(doc_id, kind, conversation_id) VALUES (?, ?, ?)`,
				doc.ID, doc.Kind, doc.ConversationID,
			)
			if err != nil {
				return fmt.Errorf("inserting document %s: %w", doc.ID, err)
			}
			if rowID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("getting rowid for doc %s: %w", doc.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing document %s: %w", doc.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, encode(doc.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for doc %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added documents to sqlite-vec", "count", len(docs))
	return nil
}

// Query runs a KNN search. Scores are 1/(1+distance).
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT d.doc_id, d.kind, d.conversation_id, ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, encode(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			doc      vector.Document
			distance float64
		)
		if err := rows.Scan(&doc.ID, &doc.Kind, &doc.ConversationID, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    float32(1.0 / (1.0 + distance)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	return results, nil
}

// Get retrieves documents and their embeddings by ID. Unknown IDs are skipped.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rowIDs, docs, err := d.lookup(ctx, d.db, ids)
	if err != nil {
		return nil, err
	}

	for i := range docs {
		var blob []byte
		err := d.db.QueryRowContext(ctx, `SELECT embedding FROM vec_embeddings WHERE rowid = ?`, rowIDs[i]).Scan(&blob)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			continue
		case err != nil:
			return nil, fmt.Errorf("reading embedding for doc %s: %w", docs[i].ID, err)
		}
		if docs[i].Embedding, err = decode(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding for doc %s: %w", docs[i].ID, err)
		}
	}

	return docs, nil
}

// Delete removes documents by ID.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rowIDs, _, err := d.lookup(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	in, args := inClause(ids)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM vec_documents WHERE doc_id IN (%s)`, in), args...); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted documents from sqlite-vec", "count", len(ids))
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// lookup resolves record IDs to vec0 rowids. The cursor is fully read and
// closed before returning so callers can issue follow-up queries on the
// single connection.
func (d *Driver) lookup(ctx context.Context, q querier, ids []string) ([]int64, []vector.Document, error) {
	in, args := inClause(ids)
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf(`SELECT rowid, doc_id, kind, conversation_id FROM vec_documents WHERE doc_id IN (%s)`, in),
		args...,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var (
		rowIDs []int64
		docs   []vector.Document
	)
	for rows.Next() {
		var (
			rowID int64
			doc   vector.Document
		)
		if err := rows.Scan(&rowID, &doc.ID, &doc.Kind, &doc.ConversationID); err != nil {
			return nil, nil, fmt.Errorf("scanning document: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
		docs = append(docs, doc)
	}

	return rowIDs, docs, rows.Err()
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

var _ vector.Driver = (*Driver)(nil)
