package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/user"
)

var userColumns = []string{
	"u.id", "u.name", "u.email", "u.role", "u.password_hash", "u.created_at", "u.updated_at", "u.last_login",
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func selectUsers() sq.SelectBuilder {
	return psql.Select(userColumns...).From("users u")
}

func (repo *userRepository) selectMany(ctx context.Context, b sq.SelectBuilder) ([]user.User, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	users := make([]user.User, 0)
	if err = sqlx.SelectContext(ctx, repo.db, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo *userRepository) selectOne(ctx context.Context, b sq.SelectBuilder) (user.User, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var usr user.User
	if err = sqlx.GetContext(ctx, repo.db, &usr, q, args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "selecting user")
	}
	return usr, nil
}

func (repo *userRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	q, args, err := psql.Insert("users").
		Columns("name", "email", "role", "password_hash", "created_at", "updated_at").
		Values(usr.Name, usr.Email, string(usr.Role), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, repo.db, &usr.ID, q, args...); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	b := psql.Update("users").
		SetMap(map[string]interface{}{
			"name":          usr.Name,
			"email":         usr.Email,
			"role":          string(usr.Role),
			"password_hash": usr.PasswordHash,
			"updated_at":    usr.UpdatedAt,
		}).
		Where(sq.Eq{"id": usr.ID})
	if err := execAffecting(ctx, repo.db, b, user.ErrNotFound); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		if err == user.ErrNotFound {
			return user.User{}, err
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	b := psql.Update("users").Set("last_login", at).Where(sq.Eq{"id": id})
	if err := execAffecting(ctx, repo.db, b, user.ErrNotFound); err != nil {
		if err == user.ErrNotFound {
			return err
		}
		return errors.Wrap(err, "setting last login")
	}
	return nil
}

// Delete relies on the foreign keys: links, assignments, enrollments, grades and attendance
// cascade; lesson plans and announcements lose their author.
func (repo *userRepository) Delete(ctx context.Context, id int64) error {
	b := psql.Delete("users").Where(sq.Eq{"id": id})
	if err := execAffecting(ctx, repo.db, b, user.ErrNotFound); err != nil {
		if err == user.ErrNotFound {
			return err
		}
		return errors.Wrap(err, "deleting user")
	}
	return nil
}

func (repo *userRepository) GetByID(ctx context.Context, id int64) (user.User, error) {
	return repo.selectOne(ctx, selectUsers().Where(sq.Eq{"u.id": id}))
}

func (repo *userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.selectOne(ctx, selectUsers().Where(sq.Eq{"u.email": email}))
}

func (repo *userRepository) Query(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	b := selectUsers()
	if filter.Role != "" {
		b = b.Where(sq.Eq{"u.role": string(filter.Role)})
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		b = b.Where(sq.Or{sq.ILike{"u.name": val}, sq.ILike{"u.email": val}})
	}
	return repo.selectMany(ctx, b.OrderBy("lower(u.name)", "u.id"))
}

func (repo *userRepository) CountByRole(ctx context.Context) (user.RoleCounts, error) {
	q, args, err := psql.Select("role", "COUNT(*) AS n").From("users").GroupBy("role").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []struct {
		Role user.Role `db:"role"`
		N    int       `db:"n"`
	}
	if err = sqlx.SelectContext(ctx, repo.db, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "counting users")
	}
	counts := make(user.RoleCounts, len(user.AllRoles))
	for _, r := range rows {
		counts[r.Role] = r.N
	}
	return counts, nil
}

func (repo *userRepository) LinkStudent(ctx context.Context, guardianID, studentID int64) error {
	q, args, err := psql.Insert("guardian_students").
		Columns("guardian_id", "student_id").
		Values(guardianID, studentID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, q, args...); err != nil {
		if isUniqueViolation(err) {
			return user.ErrLinkExists
		}
		return errors.Wrap(err, "linking student")
	}
	return nil
}

func (repo *userRepository) UnlinkStudent(ctx context.Context, guardianID, studentID int64) error {
	q, args, err := psql.Delete("guardian_students").
		Where(sq.Eq{"guardian_id": guardianID, "student_id": studentID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "unlinking student")
	}
	return nil
}

func (repo *userRepository) LinkedStudents(ctx context.Context, guardianID int64) ([]user.User, error) {
	b := selectUsers().
		Join("guardian_students gs ON gs.student_id = u.id").
		Where(sq.Eq{"gs.guardian_id": guardianID}).
		OrderBy("lower(u.name)", "u.id")
	return repo.selectMany(ctx, b)
}

func (repo *userRepository) UnlinkedStudents(ctx context.Context) ([]user.User, error) {
	b := selectUsers().
		Where(sq.Eq{"u.role": string(user.RoleStudent)}).
		Where("NOT EXISTS (SELECT 1 FROM guardian_students gs WHERE gs.student_id = u.id)").
		OrderBy("lower(u.name)", "u.id")
	return repo.selectMany(ctx, b)
}
