package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/chorechart/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertAttachments stores attachments owned by either a comment or a strike.
// ownerCol must be "comment_id" or "strike_id".
func insertAttachments(ctx context.Context, ex execer, ownerCol string, ownerID any, atts []model.Attachment) error {
	for i, a := range atts {
		_, err := ex.ExecContext(ctx,
			`INSERT INTO attachments (id, `+ownerCol+`, kind, ref, name, position) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, ownerID, string(a.Kind), a.Ref, a.Name, i,
		)
		if err != nil {
			return fmt.Errorf("insert attachment: %w", err)
		}
	}
	return nil
}

// attachmentsWhere loads attachments grouped by owner. ownerCol selects the
// owning column and filter is a subquery yielding owner ids.
func attachmentsWhere[K comparable](ctx context.Context, db *sql.DB, ownerCol, filter string, args ...any) (map[K][]model.Attachment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+ownerCol+`, id, kind, ref, name FROM attachments
		 WHERE `+ownerCol+` IN (`+filter+`) ORDER BY `+ownerCol+`, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	out := make(map[K][]model.Attachment)
	for rows.Next() {
		var owner K
		var a model.Attachment
		var kind string
		if err := rows.Scan(&owner, &a.ID, &kind, &a.Ref, &a.Name); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		a.Kind = model.AttachmentKind(kind)
		out[owner] = append(out[owner], a)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n == 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
