package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil)

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) Create(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.ID = repo.db.nextPK()
	a.AuthorName = null.String{}
	repo.db.announcements[a.ID] = &a
	return repo.withAuthor(a), nil
}

func (repo *announcementRepository) Delete(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.announcements[id]; !ok {
		return announcement.ErrNotFound
	}
	delete(repo.db.announcements, id)
	return nil
}

// withAuthor must be called with mu held.
func (repo *announcementRepository) withAuthor(a announcement.Announcement) announcement.Announcement {
	if a.AuthorID.Valid {
		if usr, ok := repo.db.users[a.AuthorID.Int64]; ok {
			a.AuthorName = null.StringFrom(usr.Name)
		}
	}
	return a
}

func (repo *announcementRepository) Recent(_ context.Context, limit int) ([]announcement.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	anns := make([]announcement.Announcement, 0, len(repo.db.announcements))
	for _, a := range repo.db.announcements {
		anns = append(anns, repo.withAuthor(*a))
	}
	sort.Slice(anns, func(i, j int) bool {
		if anns[i].PublishedAt.Equal(anns[j].PublishedAt) {
			return anns[i].ID > anns[j].ID
		}
		return anns[i].PublishedAt.After(anns[j].PublishedAt)
	})
	if limit > 0 && len(anns) > limit {
		anns = anns[:limit]
	}
	return anns, nil
}
