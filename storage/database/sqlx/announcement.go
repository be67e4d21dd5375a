package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/announcement"
)

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(db *sql.DB) *announcementRepository {
	return &announcementRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	q := `
		INSERT INTO announcement (class_id, sender_id, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := repo.db.GetContext(ctx, &ann.ID, q, ann.ClassID, ann.SenderID, ann.Message, ann.CreatedAt)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "creating announcement")
	}
	return ann, nil
}

func (repo *announcementRepository) QueryAnnouncementsByClass(ctx context.Context, classID string, ordering []core.DBOrdering) ([]announcement.Announcement, error) {
	q := `SELECT id, class_id, sender_id, message, created_at FROM announcement WHERE class_id = $1`
	q += orderBy(ordering, "created_at DESC")

	var anns []announcement.Announcement
	rows, err := repo.db.QueryxContext(ctx, q, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ann announcement.Announcement
		if err = rows.Scan(&ann.ID, &ann.ClassID, &ann.SenderID, &ann.Message, &ann.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning announcement")
		}
		anns = append(anns, ann)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	return anns, nil
}
