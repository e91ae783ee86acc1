// Package entdriver implements memory.Driver on database/sql using ent's SQL
// builder. It is dialect-agnostic and is embedded by the sqlite and postgres
// drivers.
package entdriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/papercomputeco/gleaner/pkg/memory"
)

var (
	claimColumns  = []string{"id", "content", "category", "confidence", "evidence", "status", "conversation_id", "embedding", "created_at"}
	actionColumns = []string{"id", "title", "due_window", "source", "reminder", "status", "conversation_id", "evidence", "embedding", "created_at"}
	reviewColumns = []string{"id", "title", "summary", "claim_ids", "action_ids", "status", "resolution", "created_at"}
)

// EntDriver provides memory operations over a *sql.DB.
type EntDriver struct {
	DB      *sql.DB
	Dialect string

	now func() time.Time
}

// New wraps db, applying the schema for the given ent dialect
// (dialect.SQLite or dialect.Postgres).
func New(ctx context.Context, db *sql.DB, dialectName string) (*EntDriver, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &EntDriver{
		DB:      db,
		Dialect: dialectName,
		now:     time.Now,
	}, nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Dialect)
}

// ListClaims returns persisted claims, oldest first.
func (ed *EntDriver) ListClaims(ctx context.Context, status *memory.ClaimStatus) ([]memory.Claim, error) {
	b := ed.builder()
	sel := b.Select(claimColumns...).From(b.Table("claims"))
	if status != nil {
		sel = sel.Where(entsql.EQ("status", string(*status)))
	}
	query, args := sel.OrderBy("created_at", "id").Query()

	return ed.queryClaims(ctx, query, args)
}

func (ed *EntDriver) queryClaims(ctx context.Context, query string, args []any) ([]memory.Claim, error) {
	rows, err := ed.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := []memory.Claim{}
	for rows.Next() {
		var (
			c                   memory.Claim
			status              string
			evidence, embedding string
			createdAt           int64
		)
		if err := rows.Scan(&c.ID, &c.Text, &c.Category, &c.Confidence, &evidence, &status, &c.ConversationID, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		c.Status = memory.ClaimStatus(status)
		c.CreatedAt = time.Unix(0, createdAt)
		if err := decodeJSON(evidence, &c.Evidence); err != nil {
			return nil, fmt.Errorf("failed to decode claim %s evidence: %w", c.ID, err)
		}
		if err := decodeJSON(embedding, &c.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode claim %s embedding: %w", c.ID, err)
		}
		claims = append(claims, c)
	}

	return claims, rows.Err()
}

// ListActions returns persisted actions, oldest first.
func (ed *EntDriver) ListActions(ctx context.Context) ([]memory.Action, error) {
	b := ed.builder()
	query, args := b.Select(actionColumns...).
		From(b.Table("actions")).
		OrderBy("created_at", "id").
		Query()

	return ed.queryActions(ctx, query, args)
}

func (ed *EntDriver) queryActions(ctx context.Context, query string, args []any) ([]memory.Action, error) {
	rows, err := ed.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	actions := []memory.Action{}
	for rows.Next() {
		var (
			a                   memory.Action
			due, source, status string
			evidence, embedding string
			createdAt           int64
		)
		if err := rows.Scan(&a.ID, &a.Title, &due, &source, &a.Reminder, &status, &a.ConversationID, &evidence, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		a.DueWindow = memory.DueWindow(due)
		a.Source = memory.ActionSource(source)
		a.Status = memory.ActionStatus(status)
		a.CreatedAt = time.Unix(0, createdAt)
		if err := decodeJSON(evidence, &a.Evidence); err != nil {
			return nil, fmt.Errorf("failed to decode action %s evidence: %w", a.ID, err)
		}
		if err := decodeJSON(embedding, &a.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode action %s embedding: %w", a.ID, err)
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// UpsertClaim inserts a claim when its ID is empty or unknown, otherwise
// replaces the stored claim. The original creation time is kept.
func (ed *EntDriver) UpsertClaim(ctx context.Context, claim memory.Claim) (string, error) {
	if claim.Status == "" {
		claim.Status = memory.ClaimInferred
	}

	evidence, err := encodeJSON(claim.Evidence)
	if err != nil {
		return "", err
	}
	embedding, err := encodeJSON(claim.Embedding)
	if err != nil {
		return "", err
	}

	tx, err := ed.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	b := ed.builder()

	exists := false
	if claim.ID != "" {
		exists, err = rowExists(ctx, tx, b, "claims", "id", claim.ID)
		if err != nil {
			return "", err
		}
	} else {
		claim.ID = uuid.NewString()
	}

	var (
		query string
		args  []any
	)
	if exists {
		query, args = b.Update("claims").
			Set("content", claim.Text).
			Set("category", claim.Category).
			Set("confidence", claim.Confidence).
			Set("evidence", evidence).
			Set("status", string(claim.Status)).
			Set("conversation_id", claim.ConversationID).
			Set("embedding", embedding).
			Where(entsql.EQ("id", claim.ID)).
			Query()
	} else {
		createdAt := claim.CreatedAt
		if createdAt.IsZero() {
			createdAt = ed.now()
		}
		query, args = b.Insert("claims").
			Columns(claimColumns...).
			Values(claim.ID, claim.Text, claim.Category, claim.Confidence, evidence, string(claim.Status), claim.ConversationID, embedding, createdAt.UnixNano()).
			Query()
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to upsert claim %s: %w", claim.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit claim %s: %w", claim.ID, err)
	}

	return claim.ID, nil
}

// CreateAction inserts a new action with a fresh ID.
func (ed *EntDriver) CreateAction(ctx context.Context, action memory.Action) (string, error) {
	evidence, err := encodeJSON(action.Evidence)
	if err != nil {
		return "", err
	}
	embedding, err := encodeJSON(action.Embedding)
	if err != nil {
		return "", err
	}

	createdAt := action.CreatedAt
	if createdAt.IsZero() {
		createdAt = ed.now()
	}

	id := action.ID
	if id == "" {
		id = uuid.NewString()
	}
	query, args := ed.builder().Insert("actions").
		Columns(actionColumns...).
		Values(id, action.Title, string(action.DueWindow), string(action.Source), action.Reminder, string(action.Status), action.ConversationID, evidence, embedding, createdAt.UnixNano()).
		Query()

	if _, err := ed.DB.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to create action: %w", err)
	}

	return id, nil
}

// AppendConversationClaim links a persisted claim to a conversation.
func (ed *EntDriver) AppendConversationClaim(ctx context.Context, conversationID, claimID string) error {
	return ed.appendLink(ctx, "claims", "conversation_claims", "claim_id", conversationID, claimID)
}

// AppendConversationAction links a persisted action to a conversation.
func (ed *EntDriver) AppendConversationAction(ctx context.Context, conversationID, actionID string) error {
	return ed.appendLink(ctx, "actions", "conversation_actions", "action_id", conversationID, actionID)
}

func (ed *EntDriver) appendLink(ctx context.Context, table, linkTable, column, conversationID, id string) error {
	tx, err := ed.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	b := ed.builder()

	exists, err := rowExists(ctx, tx, b, table, "id", id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("linking %s to conversation %s: %w", id, conversationID, memory.ErrNotFound)
	}

	query, args := b.Select("conversation_id").
		From(b.Table(linkTable)).
		Where(entsql.And(entsql.EQ("conversation_id", conversationID), entsql.EQ(column, id))).
		Query()
	var existing string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&existing)
	switch {
	case err == nil:
		return tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check link: %w", err)
	}

	query, args = b.Insert(linkTable).
		Columns("conversation_id", column, "linked_at").
		Values(conversationID, id, ed.now().UnixNano()).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to link %s to conversation %s: %w", id, conversationID, err)
	}

	return tx.Commit()
}

// CreateReviewItem inserts a review item with a fresh ID.
func (ed *EntDriver) CreateReviewItem(ctx context.Context, item memory.ReviewItem) (string, error) {
	if item.Status == "" {
		item.Status = memory.ReviewPending
	}
	claimIDs, err := encodeJSON(item.ClaimIDs)
	if err != nil {
		return "", err
	}
	actionIDs, err := encodeJSON(item.ActionIDs)
	if err != nil {
		return "", err
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = ed.now()
	}

	id := uuid.NewString()
	query, args := ed.builder().Insert("review_items").
		Columns(reviewColumns...).
		Values(id, item.Title, item.Summary, claimIDs, actionIDs, string(item.Status), item.Resolution, createdAt.UnixNano()).
		Query()

	if _, err := ed.DB.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to create review item: %w", err)
	}

	return id, nil
}

// ListReviewItems returns review items, oldest first.
func (ed *EntDriver) ListReviewItems(ctx context.Context, status *memory.ReviewStatus) ([]memory.ReviewItem, error) {
	b := ed.builder()
	sel := b.Select(reviewColumns...).From(b.Table("review_items"))
	if status != nil {
		sel = sel.Where(entsql.EQ("status", string(*status)))
	}
	query, args := sel.OrderBy("created_at", "id").Query()

	rows, err := ed.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list review items: %w", err)
	}
	defer rows.Close()

	items := []memory.ReviewItem{}
	for rows.Next() {
		var (
			r                   memory.ReviewItem
			claimIDs, actionIDs string
			status              string
			createdAt           int64
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Summary, &claimIDs, &actionIDs, &status, &r.Resolution, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan review item: %w", err)
		}
		r.Status = memory.ReviewStatus(status)
		r.CreatedAt = time.Unix(0, createdAt)
		if err := decodeJSON(claimIDs, &r.ClaimIDs); err != nil {
			return nil, fmt.Errorf("failed to decode review item %s claim ids: %w", r.ID, err)
		}
		if err := decodeJSON(actionIDs, &r.ActionIDs); err != nil {
			return nil, fmt.Errorf("failed to decode review item %s action ids: %w", r.ID, err)
		}
		items = append(items, r)
	}

	return items, rows.Err()
}

// ConversationItems returns the claims and actions linked to a conversation.
func (ed *EntDriver) ConversationItems(ctx context.Context, conversationID string) (*memory.ConversationItems, error) {
	items := &memory.ConversationItems{
		ConversationID: conversationID,
		Claims:         []memory.Claim{},
		Actions:        []memory.Action{},
	}

	claimIDs, err := ed.linkedIDs(ctx, "conversation_claims", "claim_id", conversationID)
	if err != nil {
		return nil, err
	}
	if len(claimIDs) > 0 {
		b := ed.builder()
		query, args := b.Select(claimColumns...).
			From(b.Table("claims")).
			Where(entsql.In("id", toAny(claimIDs)...)).
			Query()
		claims, err := ed.queryClaims(ctx, query, args)
		if err != nil {
			return nil, err
		}
		items.Claims = orderByIDs(claims, claimIDs, func(c memory.Claim) string { return c.ID })
	}

	actionIDs, err := ed.linkedIDs(ctx, "conversation_actions", "action_id", conversationID)
	if err != nil {
		return nil, err
	}
	if len(actionIDs) > 0 {
		b := ed.builder()
		query, args := b.Select(actionColumns...).
			From(b.Table("actions")).
			Where(entsql.In("id", toAny(actionIDs)...)).
			Query()
		actions, err := ed.queryActions(ctx, query, args)
		if err != nil {
			return nil, err
		}
		items.Actions = orderByIDs(actions, actionIDs, func(a memory.Action) string { return a.ID })
	}

	return items, nil
}

func (ed *EntDriver) linkedIDs(ctx context.Context, linkTable, column, conversationID string) ([]string, error) {
	b := ed.builder()
	query, args := b.Select(column).
		From(b.Table(linkTable)).
		Where(entsql.EQ("conversation_id", conversationID)).
		OrderBy("linked_at").
		Query()

	rows, err := ed.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", linkTable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", linkTable, err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.DB.Close()
}

func rowExists(ctx context.Context, tx *sql.Tx, b *entsql.DialectBuilder, table, column, value string) (bool, error) {
	query, args := b.Select(column).
		From(b.Table(table)).
		Where(entsql.EQ(column, value)).
		Query()

	var found string
	err := tx.QueryRowContext(ctx, query, args...).Scan(&found)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check %s existence: %w", table, err)
	}
}

func orderByIDs[T any](records []T, ids []string, id func(T) string) []T {
	byID := make(map[string]T, len(records))
	for _, r := range records {
		byID[id(r)] = r
	}

	ordered := make([]T, 0, len(ids))
	for _, i := range ids {
		if r, ok := byID[i]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}

func toAny(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(data), nil
}

func decodeJSON[T any](s string, dst *T) error {
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}

var _ memory.Driver = (*EntDriver)(nil)
