package store

import (
	"context"
	"fmt"

	"voiceagent-server/internal/targeting"
)

const sqlLoadSavedLists = `
SELECT id, position, name, filters, contact_ids, created_at
FROM saved_lists
ORDER BY position ASC
`

// LoadSavedLists returns every saved list in creation order.
func (s *Store) LoadSavedLists(ctx context.Context) ([]targeting.SavedList, error) {
	var rows []SavedList
	if err := s.db.SelectContext(ctx, &rows, sqlLoadSavedLists); err != nil {
		return nil, fmt.Errorf("failed to load saved lists: %w", err)
	}
	lists := make([]targeting.SavedList, 0, len(rows))
	for _, r := range rows {
		l, err := r.ToDomain()
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, nil
}

const sqlInsertSavedList = `
INSERT INTO saved_lists (id, position, name, filters, contact_ids, created_at)
VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM saved_lists), ?, ?, ?, ?)
`

// PersistSavedList stores a newly created list.
func (s *Store) PersistSavedList(ctx context.Context, list targeting.SavedList) error {
	row := savedListFromDomain(list, 0)
	_, err := s.db.ExecContext(ctx, s.db.Rebind(sqlInsertSavedList),
		row.ID,
		row.Name,
		row.Filters,
		row.ContactIDs,
		row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to persist saved list: %w", err)
	}
	return nil
}

const sqlRenameSavedList = `UPDATE saved_lists SET name = ? WHERE id = ?`

// RenameSavedList changes the stored name of a list.
func (s *Store) RenameSavedList(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(sqlRenameSavedList), name, id)
	if err != nil {
		return fmt.Errorf("failed to rename saved list: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to rename saved list: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const sqlDeleteSavedList = `DELETE FROM saved_lists WHERE id = ?`

// DeleteSavedList removes a list. Deleting an unknown id is not an error.
func (s *Store) DeleteSavedList(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(sqlDeleteSavedList), id); err != nil {
		return fmt.Errorf("failed to delete saved list: %w", err)
	}
	return nil
}
