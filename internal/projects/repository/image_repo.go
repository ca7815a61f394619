package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/postgres"
)

const imageColumns = `id, project_id, storage_key, caption, is_main, sort_order, created_at`

func scanImage(row pgx.Row) (domain.Image, error) {
	var img domain.Image
	err := row.Scan(&img.ID, &img.ProjectID, &img.StorageKey, &img.Caption, &img.IsMain, &img.Order, &img.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return img, domain.ErrImageNotFound
	}
	return img, err
}

// lockProject serialises main-flag changes on one project.
func lockProject(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE;`, projectID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrProjectNotFound
	}
	return err
}

func clearMain(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE project_images SET is_main = FALSE WHERE project_id = $1 AND is_main;`, projectID)
	return err
}

func nextOrder(ctx context.Context, q postgres.Querier, projectID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM project_images WHERE project_id = $1;`, projectID).Scan(&n)
	return n, err
}

// AddImage inserts an image. A main image replaces the previous main one
// within the same transaction; a negative order appends it last.
func (r *ProjectRepository) AddImage(ctx context.Context, img domain.Image) (domain.Image, error) {
	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	var out domain.Image
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockProject(ctx, tx, img.ProjectID); err != nil {
			return err
		}
		if img.IsMain {
			if err := clearMain(ctx, tx, img.ProjectID); err != nil {
				return fmt.Errorf("clear main image: %w", err)
			}
		}
		if img.Order < 0 {
			n, err := nextOrder(ctx, tx, img.ProjectID)
			if err != nil {
				return err
			}
			img.Order = n
		}

		const q = `
INSERT INTO project_images (id, project_id, storage_key, caption, is_main, sort_order)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + imageColumns + `;`
		var err error
		out, err = scanImage(tx.QueryRow(ctx, q, img.ID, img.ProjectID, img.StorageKey, img.Caption, img.IsMain, img.Order))
		return err
	})
	return out, err
}

// SetMainImage makes imageID the only main image of its project.
func (r *ProjectRepository) SetMainImage(ctx context.Context, projectID, imageID uuid.UUID) (domain.Image, error) {
	var out domain.Image
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := clearMain(ctx, tx, projectID); err != nil {
			return fmt.Errorf("clear main image: %w", err)
		}
		const q = `
UPDATE project_images SET is_main = TRUE
WHERE id = $1 AND project_id = $2
RETURNING ` + imageColumns + `;`
		var err error
		out, err = scanImage(tx.QueryRow(ctx, q, imageID, projectID))
		return err
	})
	return out, err
}

// ListImages returns a project's images by order, then upload time.
func (r *ProjectRepository) ListImages(ctx context.Context, projectID uuid.UUID) ([]domain.Image, error) {
	rows, err := r.db.Query(ctx, `SELECT `+imageColumns+` FROM project_images WHERE project_id = $1 ORDER BY sort_order, created_at;`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Image, 0, 8)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// DeleteImage removes the row and returns it so the caller can drop the file.
func (r *ProjectRepository) DeleteImage(ctx context.Context, projectID, imageID uuid.UUID) (domain.Image, error) {
	const q = `DELETE FROM project_images WHERE id = $1 AND project_id = $2 RETURNING ` + imageColumns + `;`
	return scanImage(r.db.QueryRow(ctx, q, imageID, projectID))
}
