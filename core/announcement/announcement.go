package announcement

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Announcement struct {
		ID          int64       `db:"id" json:"id"`
		Title       string      `db:"title" json:"title"`
		Body        string      `db:"body" json:"body"`
		PublishedAt time.Time   `db:"published_at" json:"published_at"` // UTC
		AuthorID    null.Int64  `db:"author_id" json:"author_id"`
		AuthorName  null.String `db:"author_name" json:"author_name"` // joined, read-only
	}

	NewAnnouncement struct {
		Title string `form:"title" validate:"required,notblank"`
		Body  string `form:"body" validate:"required,notblank"`
	}

	Repository interface {
		Create(ctx context.Context, a Announcement) (Announcement, error)
		Delete(ctx context.Context, id int64) error
		// Recent returns the newest announcements first; limit 0 returns all of them.
		Recent(ctx context.Context, limit int) ([]Announcement, error)
	}

	Service interface {
		Publish(ctx context.Context, authorID int64, na NewAnnouncement) (Announcement, error)
		Delete(ctx context.Context, id int64) error
		Recent(ctx context.Context, limit int) ([]Announcement, error)
	}

	service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate) Service {
	return &service{repo: repo, validate: validate}
}

func (svc *service) Publish(ctx context.Context, authorID int64, na NewAnnouncement) (Announcement, error) {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	if err := svc.validate.Struct(na); err != nil {
		return Announcement{}, err
	}
	return svc.repo.Create(ctx, Announcement{
		Title:       na.Title,
		Body:        na.Body,
		PublishedAt: core.NowFunc().UTC(),
		AuthorID:    null.Int64From(authorID),
	})
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.Delete(ctx, id)
}

func (svc *service) Recent(ctx context.Context, limit int) ([]Announcement, error) {
	return svc.repo.Recent(ctx, limit)
}
