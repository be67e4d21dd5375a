package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnect/backend/core"
)

var (
	// errors
	ErrNotFound                 = errors.New("user not found")
	ErrEmailExists              = errors.New("a user with this email already exists")
	ErrRegistrationNumberExists = errors.New("a user with this registration number already exists")
	ErrUserExists               = errors.New("user already exists")
	ErrAuthenticationFailed     = errors.New("invalid credentials")
	ErrAccountDeactivated       = errors.New("account deactivated")
)

type (
	Repository interface {
		// CheckIdentifierUniqueness pre-flights the per-role unique indexes; the
		// DB constraint remains the authority under concurrent registration.
		CheckIdentifierUniqueness(ctx context.Context, email, regNum string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	Service interface {
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, identifier, password string, role Role) (User, error)
		CheckUniqueness(email, regNum string, exclUsers ...User) error
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByRegistrationNumber(ctx context.Context, regNum string) (User, error)
		GetByIdentifier(ctx context.Context, identifier string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Deactivate(ctx context.Context, id string) (User, error)
		Delete(ctx context.Context, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(email, regNum string, exclUsers ...User) error {
	if err := svc.repo.CheckIdentifierUniqueness(context.Background(), email, regNum, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrEmailExists:
			field = "email"
		case ErrRegistrationNumberExists:
			field = "registration_number"
		default:
			return err
		}
		return core.NewConflictError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:               nu.Name,
		Role:               nu.Role,
		Email:              nu.Email,
		RegistrationNumber: nu.RegistrationNumber,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

// Authenticate resolves the identifier by shape (email vs registration number)
// and verifies the password. Unknown identity, wrong password and - when
// enforced - role mismatch all return the same ErrAuthenticationFailed.
func (svc *service) Authenticate(ctx context.Context, identifier, password string, role Role) (User, error) {
	usr, err := svc.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by identifier")
	}
	if err = usr.CheckPassword(password); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if svc.conf.Server.LoginEnforcesRole && role != "" && usr.Role != role {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByRegistrationNumber(ctx context.Context, regNum string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{RegistrationNumber: core.CleanString(regNum, true /* lower */)})
}

func (svc *service) GetByIdentifier(ctx context.Context, identifier string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Identifier: core.CleanString(identifier, true /* lower */)})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:                 id,
		Name:               uu.Name,
		Email:              uu.Email,
		RegistrationNumber: uu.RegistrationNumber,
		UpdatedAt:          time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, User{ID: usr.ID, LastLogin: usr.LastLogin}, nil)
}

// Deactivate flips the IsActive flag off; accounts are never hard-deleted by
// the API surface.
func (svc *service) Deactivate(ctx context.Context, id string) (User, error) {
	inactive := false
	return svc.repo.UpdateUser(ctx, User{ID: id, UpdatedAt: time.Now().UTC()}, &inactive)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, User{ID: usr.ID, PasswordHash: usr.PasswordHash, UpdatedAt: usr.UpdatedAt}, nil); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}

func (svc *service) sendWelcomeMail(usr User) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Welcome to " + svc.conf.AppName,
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nYour %s %s account is ready. Sign in at %s to get started.",
			usr.Name, svc.conf.AppName, usr.Role, svc.conf.FrontendBaseURL,
		),
	})
}

func (svc *service) sendPasswordResetMail(usr User) {
	if usr.Email == "" {
		return
	}
	token := makeToken(usr)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password Reset",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nFollow this link to reset your password:\n%s/password-reset?uid=%s&token=%s",
			usr.Name, svc.conf.FrontendBaseURL, EncodeUID(usr), token,
		),
	})
}
