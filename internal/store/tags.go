package store

import (
	"context"
	"time"

	"github.com/starford/munin/internal/models"
)

// CreateTag inserts a new tag owned by userID.
func (db *DB) CreateTag(ctx context.Context, userID int64, name string) (*models.Tag, error) {
	now := time.Now().Unix()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (user_id, name, created) VALUES (?, ?, ?)`, userID, name, now)
	if err != nil {
		return nil, classify("create tag", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify("create tag id", err)
	}
	return &models.Tag{ID: id, UserID: userID, Name: name, Created: now}, nil
}

// ListTags returns all of the user's tags ordered by id.
func (db *DB) ListTags(ctx context.Context, userID int64) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := db.conn.SelectContext(ctx, &tags,
		`SELECT * FROM tags WHERE user_id = ? ORDER BY id`, userID); err != nil {
		return nil, classify("list tags", err)
	}
	return tags, nil
}

// UpdateTag renames a tag. Zero affected rows is NotFound.
func (db *DB) UpdateTag(ctx context.Context, userID, id int64, name string) (*models.Tag, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE tags SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return nil, classify("update tag", err)
	}
	if err := requireOneRow("update tag", res); err != nil {
		return nil, err
	}
	var t models.Tag
	if err := db.conn.GetContext(ctx, &t,
		`SELECT * FROM tags WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return nil, classify("get tag", err)
	}
	return &t, nil
}

// DeleteTag removes the tag's join rows and the tag itself in one
// transaction. Notes the tag was attached to are untouched.
func (db *DB) DeleteTag(ctx context.Context, userID, id int64) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM note_tags WHERE tag_id IN (SELECT id FROM tags WHERE id = ? AND user_id = ?)`,
		id, userID); err != nil {
		return classify("delete tag links", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return classify("delete tag", err)
	}
	if err := requireOneRow("delete tag", res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify("commit delete tag", err)
	}
	return nil
}
