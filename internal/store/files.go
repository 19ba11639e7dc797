package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/models"
)

// TargetOwned verifies that the attachment target (exactly one of noteID or
// shelfID) exists and belongs to userID. Used before any upload byte is
// accepted.
func (db *DB) TargetOwned(ctx context.Context, userID, noteID, shelfID int64) error {
	tbl, id, err := targetTable(noteID, shelfID)
	if err != nil {
		return err
	}
	var found int64
	err = db.conn.GetContext(ctx, &found,
		fmt.Sprintf(`SELECT id FROM %s WHERE id = ? AND user_id = ?`, tbl), id, userID)
	return classify("check attach target", err)
}

// AttachFile records attachment metadata and its join row in one
// transaction: re-verify the target still belongs to the owner, insert the
// file row, insert the link. Any step failing rolls the whole thing back;
// the caller is responsible for removing the already-written content object.
func (db *DB) AttachFile(ctx context.Context, file models.File, noteID, shelfID int64) (*models.File, error) {
	tbl, targetID, err := targetTable(noteID, shelfID)
	if err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var found int64
	if err := tx.GetContext(ctx, &found,
		fmt.Sprintf(`SELECT id FROM %s WHERE id = ? AND user_id = ?`, tbl),
		targetID, file.UserID); err != nil {
		return nil, classify("check attach target", err)
	}

	file.Created = time.Now().Unix()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO files (user_id, hash, name, size, created) VALUES (?, ?, ?, ?, ?)`,
		file.UserID, file.Hash, file.Name, file.Size, file.Created)
	if err != nil {
		return nil, classify("insert file", err)
	}
	file.ID, err = res.LastInsertId()
	if err != nil {
		return nil, classify("insert file id", err)
	}

	link := `INSERT INTO note_files (note_id, file_id) VALUES (?, ?)`
	if shelfID != 0 {
		link = `INSERT INTO shelf_files (shelf_id, file_id) VALUES (?, ?)`
	}
	if _, err := tx.ExecContext(ctx, link, targetID, file.ID); err != nil {
		return nil, classify("insert file link", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit attach file", err)
	}
	return &file, nil
}

// DeleteFile removes the join rows referencing the file and the file row
// itself in one transaction, then returns the content-store key for
// best-effort object removal by the caller. The metadata deletion is the
// durability boundary.
func (db *DB) DeleteFile(ctx context.Context, userID, id int64) (string, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return "", classify("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var hash string
	if err := tx.GetContext(ctx, &hash,
		`SELECT hash FROM files WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return "", classify("get file", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_files WHERE file_id = ?`, id); err != nil {
		return "", classify("delete note file links", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shelf_files WHERE file_id = ?`, id); err != nil {
		return "", classify("delete shelf file links", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return "", classify("delete file", err)
	}
	if err := requireOneRow("delete file", res); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", classify("commit delete file", err)
	}
	return hash, nil
}

// FileByHash returns the file row for a content-store key, scoped to its
// owner. Downloads go through this check before any byte is read.
func (db *DB) FileByHash(ctx context.Context, hash string, userID int64) (*models.File, error) {
	var f models.File
	if err := db.conn.GetContext(ctx, &f,
		`SELECT * FROM files WHERE hash = ? AND user_id = ?`, hash, userID); err != nil {
		return nil, classify("get file by hash", err)
	}
	return &f, nil
}

// deleteFileRows deletes the given file rows (scoped to userID) inside an
// open transaction and returns their content-store keys.
func deleteFileRows(ctx context.Context, tx *sqlx.Tx, userID int64, fileIDs []int64) ([]string, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT hash FROM files WHERE user_id = ? AND id IN (?)`, userID, fileIDs)
	if err != nil {
		return nil, classify("expand file delete", err)
	}
	var hashes []string
	if err := tx.SelectContext(ctx, &hashes, query, args...); err != nil {
		return nil, classify("select file hashes", err)
	}

	query, args, err = sqlx.In(`DELETE FROM files WHERE user_id = ? AND id IN (?)`, userID, fileIDs)
	if err != nil {
		return nil, classify("expand file delete", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, classify("delete files", err)
	}
	return hashes, nil
}

func targetTable(noteID, shelfID int64) (table string, id int64, err error) {
	switch {
	case noteID != 0 && shelfID == 0:
		return "notes", noteID, nil
	case shelfID != 0 && noteID == 0:
		return "shelves", shelfID, nil
	default:
		return "", 0, fmt.Errorf("store: attach target must be exactly one of note or shelf: %w", apperr.ErrInvalidArgument)
	}
}
