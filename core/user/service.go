package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escola/core"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrDeleteSelf           = errors.New("you cannot delete your own account")
	ErrNotGuardian          = errors.New("user is not a guardian")
	ErrNotStudent           = errors.New("user is not a student")
	ErrLinkExists           = errors.New("student is already linked to this guardian")
)

type (
	Repository interface {
		// Create and Update return ErrEmailExists when the email is taken by another user.
		Create(ctx context.Context, usr User) (User, error)
		Update(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id int64, at time.Time) error
		// Delete removes the user and every row depending on it in one transaction.
		Delete(ctx context.Context, id int64) error
		GetByID(ctx context.Context, id int64) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		// Query applies AND on the set QueryFilter fields; Search matches name or email, case-insensitive.
		Query(ctx context.Context, filter QueryFilter) ([]User, error)
		CountByRole(ctx context.Context) (RoleCounts, error)

		LinkStudent(ctx context.Context, guardianID, studentID int64) error
		UnlinkStudent(ctx context.Context, guardianID, studentID int64) error
		LinkedStudents(ctx context.Context, guardianID int64) ([]User, error)
		UnlinkedStudents(ctx context.Context) ([]User, error)
	}

	Service interface {
		Create(ctx context.Context, nu NewUser) (User, error)
		Update(ctx context.Context, id int64, uu UpdateUser) (User, error)
		UpdateProfile(ctx context.Context, id int64, up UpdateProfile) (User, error)
		Delete(ctx context.Context, actor Identity, id int64) error
		GetByID(ctx context.Context, id int64) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter QueryFilter) ([]User, error)
		CountByRole(ctx context.Context) (RoleCounts, error)

		Authenticate(ctx context.Context, email, pwd string) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) (User, error)

		LinkStudent(ctx context.Context, guardianID, studentID int64) error
		UnlinkStudent(ctx context.Context, guardianID, studentID int64) error
		LinkedStudents(ctx context.Context, guardianID int64) ([]User, error)
		UnlinkedStudents(ctx context.Context) ([]User, error)
		IsGuardianOf(ctx context.Context, guardianID, studentID int64) (bool, error)
	}

	service struct {
		conf     *core.Config
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{
		conf:     conf,
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

// emailTaken turns ErrEmailExists into a field error.
func emailTaken(err error) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return err
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}

	now := core.NowFunc().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      Role(nu.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.Create(ctx, usr)
	if err != nil {
		return User{}, emailTaken(err)
	}
	return usr, nil
}

func (svc *service) Update(ctx context.Context, id int64, uu UpdateUser) (User, error) {
	uu.clean()
	if err := svc.validate.Struct(uu); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = Role(uu.Role)
	usr.UpdatedAt = core.NowFunc().UTC()

	usr, err = svc.repo.Update(ctx, usr)
	if err != nil {
		return User{}, emailTaken(err)
	}
	return usr, nil
}

func (svc *service) UpdateProfile(ctx context.Context, id int64, up UpdateProfile) (User, error) {
	up.clean()
	if err := svc.validate.Struct(up); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Name = up.Name
	usr.Email = up.Email
	usr.UpdatedAt = core.NowFunc().UTC()
	if up.Password != "" {
		if err = usr.SetPassword(up.Password); err != nil {
			return User{}, err
		}
	}

	usr, err = svc.repo.Update(ctx, usr)
	if err != nil {
		return User{}, emailTaken(err)
	}
	return usr, nil
}

func (svc *service) Delete(ctx context.Context, actor Identity, id int64) error {
	if actor.ID == id {
		return ErrDeleteSelf
	}
	return svc.repo.Delete(ctx, id)
}

func (svc *service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.Query(ctx, filter)
}

func (svc *service) CountByRole(ctx context.Context) (RoleCounts, error) {
	return svc.repo.CountByRole(ctx)
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}

	now := core.NowFunc().UTC()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	usr.LastLogin = null.TimeFrom(now)
	return usr, nil
}

// RequestPasswordReset mails a reset link to the owner of email.
// Unknown emails are ignored so callers cannot tell which accounts exist.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}

	token, err := MakeResetToken(usr, svc.conf.SecretKey, svc.conf.PasswordResetTimeout)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":      usr.Name,
			"ResetURL":  svc.conf.Server.BaseURL + "/reset-password/" + token,
			"ExpiresIn": svc.conf.PasswordResetTimeout.String(),
		},
	})
	return nil
}

// ResetPassword overwrites the password of the user a valid token was issued for.
func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	if err := svc.validate.Struct(data); err != nil {
		return User{}, err
	}

	email, err := tokenEmail(data.Token)
	if err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidToken
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = verifyResetToken(usr, data.Token, svc.conf.SecretKey); err != nil {
		return User{}, err
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.Update(ctx, usr)
}

func (svc *service) LinkStudent(ctx context.Context, guardianID, studentID int64) error {
	guardian, err := svc.repo.GetByID(ctx, guardianID)
	if err != nil {
		return errors.Wrap(err, "finding guardian")
	}
	if guardian.Role != RoleGuardian {
		return ErrNotGuardian
	}
	student, err := svc.repo.GetByID(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	if student.Role != RoleStudent {
		return ErrNotStudent
	}
	return svc.repo.LinkStudent(ctx, guardianID, studentID)
}

func (svc *service) UnlinkStudent(ctx context.Context, guardianID, studentID int64) error {
	return svc.repo.UnlinkStudent(ctx, guardianID, studentID)
}

func (svc *service) LinkedStudents(ctx context.Context, guardianID int64) ([]User, error) {
	return svc.repo.LinkedStudents(ctx, guardianID)
}

func (svc *service) UnlinkedStudents(ctx context.Context) ([]User, error) {
	return svc.repo.UnlinkedStudents(ctx)
}

func (svc *service) IsGuardianOf(ctx context.Context, guardianID, studentID int64) (bool, error) {
	students, err := svc.repo.LinkedStudents(ctx, guardianID)
	if err != nil {
		return false, err
	}
	for _, s := range students {
		if s.ID == studentID {
			return true, nil
		}
	}
	return false, nil
}
