package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/announcement"
)

type announcementRepository struct {
	db core.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db core.DB) announcement.Repository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) Create(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	q, args, err := psql.Insert("announcements").
		Columns("title", "body", "published_at", "author_id").
		Values(a.Title, a.Body, a.PublishedAt, a.AuthorID).
		Suffix("RETURNING id, (SELECT name FROM users WHERE id = author_id)").
		ToSql()
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.QueryRowxContext(ctx, q, args...).Scan(&a.ID, &a.AuthorName); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo *announcementRepository) Delete(ctx context.Context, id int64) error {
	b := psql.Delete("announcements").Where(sq.Eq{"id": id})
	if err := execAffecting(ctx, repo.db, b, announcement.ErrNotFound); err != nil {
		if err == announcement.ErrNotFound {
			return err
		}
		return errors.Wrap(err, "deleting announcement")
	}
	return nil
}

func (repo *announcementRepository) Recent(ctx context.Context, limit int) ([]announcement.Announcement, error) {
	b := psql.Select("a.id", "a.title", "a.body", "a.published_at", "a.author_id", "u.name AS author_name").
		From("announcements a").
		LeftJoin("users u ON u.id = a.author_id").
		OrderBy(orderBy(core.DBOrdering{Field: "a.published_at"}, core.DBOrdering{Field: "a.id"})...)
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	anns := make([]announcement.Announcement, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &anns, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting announcements")
	}
	return anns, nil
}
