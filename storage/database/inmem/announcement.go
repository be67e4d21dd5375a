package inmemdb

import (
	"context"
	"sort"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/announcement"
)

type announcementRepository struct {
	db *announcementTable
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db.announcement}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ann.ID = newPK()
	repo.db.table[ann.ID] = &ann
	return ann, nil
}

func (repo *announcementRepository) QueryAnnouncementsByClass(ctx context.Context, classID string, ordering []core.DBOrdering) ([]announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	anns := make([]announcement.Announcement, 0)
	for _, ann := range repo.db.table {
		if ann.ClassID == classID {
			anns = append(anns, *ann)
		}
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].CreatedAt.After(anns[j].CreatedAt) })
	return anns, nil
}
