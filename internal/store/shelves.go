package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/starford/munin/internal/models"
)

// GetShelf returns the user's shelf with its files, creating an empty shelf
// on first read.
func (db *DB) GetShelf(ctx context.Context, userID int64) (*models.Shelf, error) {
	var s models.Shelf
	err := db.conn.GetContext(ctx, &s, `SELECT * FROM shelves WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		now := time.Now().Unix()
		res, insErr := db.conn.ExecContext(ctx,
			`INSERT INTO shelves (user_id, text, created, last_edited) VALUES (?, '', ?, ?)`,
			userID, now, now)
		if insErr != nil {
			return nil, classify("create shelf", insErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return nil, classify("create shelf id", idErr)
		}
		s = models.Shelf{ID: id, UserID: userID, Created: now, LastEdited: now}
	} else if err != nil {
		return nil, classify("get shelf", err)
	}

	files := []models.File{}
	if err := db.conn.SelectContext(ctx, &files,
		`SELECT f.* FROM files AS f
		 INNER JOIN shelf_files AS sf ON sf.file_id = f.id
		 WHERE sf.shelf_id = ?
		 ORDER BY f.id ASC`, s.ID); err != nil {
		return nil, classify("get shelf files", err)
	}
	s.Files = files
	return &s, nil
}

// UpdateShelf replaces the shelf text and bumps the edit counters.
func (db *DB) UpdateShelf(ctx context.Context, userID int64, text string) (*models.Shelf, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE shelves SET text = ?, last_edited = ?, times_edited = times_edited + 1 WHERE user_id = ?`,
		text, time.Now().Unix(), userID)
	if err != nil {
		return nil, classify("update shelf", err)
	}
	if err := requireOneRow("update shelf", res); err != nil {
		return nil, err
	}
	return db.GetShelf(ctx, userID)
}

// ClearShelf empties the shelf text and detaches and deletes all its files
// in one transaction. Returns the cleared shelf and the content-store keys
// of the deleted files for best-effort object removal after commit.
func (db *DB) ClearShelf(ctx context.Context, userID int64) (*models.Shelf, []string, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, classify("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE shelves SET text = '', last_edited = ?, times_edited = times_edited + 1 WHERE user_id = ?`,
		time.Now().Unix(), userID)
	if err != nil {
		return nil, nil, classify("clear shelf", err)
	}
	if err := requireOneRow("clear shelf", res); err != nil {
		return nil, nil, err
	}

	var s models.Shelf
	if err := tx.GetContext(ctx, &s, `SELECT * FROM shelves WHERE user_id = ?`, userID); err != nil {
		return nil, nil, classify("get shelf", err)
	}

	fileIDs, err := detachShelfFiles(ctx, tx, s.ID)
	if err != nil {
		return nil, nil, err
	}
	hashes, err := deleteFileRows(ctx, tx, userID, fileIDs)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, classify("commit clear shelf", err)
	}
	s.Files = []models.File{}
	return &s, hashes, nil
}

// ConvertShelfToNote atomically creates a new note with the given title and
// text, moves every shelf file onto it, and clears the shelf. Nothing
// touches the content store; only join rows move.
func (db *DB) ConvertShelfToNote(ctx context.Context, userID int64, title, text string) (*models.Note, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().Unix()
	res, err := tx.ExecContext(ctx,
		`UPDATE shelves SET text = '', last_edited = ?, times_edited = times_edited + 1 WHERE user_id = ?`,
		now, userID)
	if err != nil {
		return nil, classify("clear shelf", err)
	}
	if err := requireOneRow("clear shelf", res); err != nil {
		return nil, err
	}

	var shelfID int64
	if err := tx.GetContext(ctx, &shelfID, `SELECT id FROM shelves WHERE user_id = ?`, userID); err != nil {
		return nil, classify("get shelf", err)
	}

	fileIDs, err := detachShelfFiles(ctx, tx, shelfID)
	if err != nil {
		return nil, err
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO notes (user_id, title, text, created, last_edited) VALUES (?, ?, ?, ?, ?)`,
		userID, title, text, now, now)
	if err != nil {
		return nil, classify("create note", err)
	}
	noteID, err := res.LastInsertId()
	if err != nil {
		return nil, classify("create note id", err)
	}

	for _, fileID := range fileIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO note_files (note_id, file_id) VALUES (?, ?)`, noteID, fileID); err != nil {
			return nil, classify("move file link", err)
		}
	}

	var n models.Note
	if err := tx.GetContext(ctx, &n, `SELECT * FROM notes WHERE id = ?`, noteID); err != nil {
		return nil, classify("get note", err)
	}

	files := []models.File{}
	if len(fileIDs) > 0 {
		if err := tx.SelectContext(ctx, &files,
			`SELECT f.* FROM files AS f
			 INNER JOIN note_files AS nf ON nf.file_id = f.id
			 WHERE nf.note_id = ?
			 ORDER BY f.id ASC`, noteID); err != nil {
			return nil, classify("get note files", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit convert shelf", err)
	}

	n.Tags = []models.Tag{}
	n.Files = files
	return &n, nil
}

// detachShelfFiles deletes all shelf_files rows for shelfID inside an open
// transaction and returns the detached file ids.
func detachShelfFiles(ctx context.Context, tx *sqlx.Tx, shelfID int64) ([]int64, error) {
	var fileIDs []int64
	if err := tx.SelectContext(ctx, &fileIDs,
		`SELECT file_id FROM shelf_files WHERE shelf_id = ?`, shelfID); err != nil {
		return nil, classify("select shelf file links", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shelf_files WHERE shelf_id = ?`, shelfID); err != nil {
		return nil, classify("delete shelf file links", err)
	}
	return fileIDs, nil
}
