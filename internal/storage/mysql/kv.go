package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// KV stores drafts in the quotation_drafts table, one row per key.
type KV struct{ db *sql.DB }

func New(db *sql.DB) *KV { return &KV{db: db} }

// Migrate creates the drafts table when it is missing.
func (r *KV) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createDraftsSQL); err != nil {
		return fmt.Errorf("create quotation_drafts: %w", err)
	}
	return nil
}

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, getDraftSQL, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, upsertDraftSQL, key, value)
	return err
}

func (r *KV) Del(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, deleteDraftSQL, key)
	return err
}

func (r *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listDraftKeysSQL, likePrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(p string) string { return likeEscaper.Replace(p) + "%" }
