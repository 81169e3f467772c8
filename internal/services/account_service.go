package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"parkometr/internal/auth"
	intconfig "parkometr/internal/config"
	intdb "parkometr/internal/db"
	"parkometr/internal/domain"
	"parkometr/internal/domain/models"
	"parkometr/internal/repositories"
	"parkometr/internal/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// AccountService manages operator and admin accounts and their balances.
type AccountService struct {
	DB        *sql.DB
	Users     repositories.UserRepository
	Tokens    auth.Tokens
	Now       func() time.Time
	RequestID string
}

// NewUser is the payload of an admin creating an account.
type NewUser struct {
	Login     string
	Password  string
	Role      string
	FirstName string
	LastName  string
}

func (s AccountService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s AccountService) users() repositories.UserRepository {
	if s.Users.DB != nil {
		return s.Users
	}
	return repositories.UserRepository{DB: s.db()}
}

func (s AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login checks the password and returns the user with a signed token.
// Unknown logins and wrong passwords fail the same way.
func (s AccountService) Login(ctx context.Context, login, password string) (models.PublicUser, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return models.PublicUser{}, "", domain.ValidationError{Msg: "login and password are required"}
	}

	badCredentials := domain.UnauthorizedError{Msg: "invalid login or password"}
	u, err := s.users().GetByLogin(ctx, login)
	if err != nil {
		if domain.IsNotFound(err) {
			return models.PublicUser{}, "", badCredentials
		}
		return models.PublicUser{}, "", domain.InternalError{Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		utils.LogEvent(s.RequestID, "account", "login_failed", fmt.Sprintf("user_id=%d", u.ID))
		return models.PublicUser{}, "", badCredentials
	}

	token, err := s.Tokens.Issue(u.ID, u.Role, s.now())
	if err != nil {
		return models.PublicUser{}, "", domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "account", "login", fmt.Sprintf("user_id=%d role=%s", u.ID, u.Role))
	return u.ToPublic(), token, nil
}

func (in NewUser) validate() (NewUser, error) {
	in.Login = strings.TrimSpace(in.Login)
	in.FirstName = utils.NormalizeSpace(in.FirstName)
	in.LastName = utils.NormalizeSpace(in.LastName)
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))

	switch {
	case in.Login == "":
		return in, domain.ValidationError{Field: "login", Msg: "is required"}
	case len(in.Password) < minPasswordLength:
		return in, domain.ValidationError{Field: "password", Msg: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	case !domain.ValidRole(in.Role):
		return in, domain.ValidationError{Field: "role", Msg: "must be ADMIN or OPERATOR"}
	case in.FirstName == "":
		return in, domain.ValidationError{Field: "first_name", Msg: "is required"}
	case in.LastName == "":
		return in, domain.ValidationError{Field: "last_name", Msg: "is required"}
	}
	return in, nil
}

// CreateUser stores a new account with a zero balance.
func (s AccountService) CreateUser(ctx context.Context, in NewUser) (models.PublicUser, error) {
	in, err := in.validate()
	if err != nil {
		return models.PublicUser{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.PublicUser{}, domain.InternalError{Err: err}
	}

	u := models.User{
		Login:        in.Login,
		PasswordHash: string(hash),
		Role:         in.Role,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}
	id, err := s.users().Create(ctx, u)
	if err != nil {
		return models.PublicUser{}, wrapInternal(err)
	}
	u.ID = id
	utils.LogEvent(s.RequestID, "account", "create_user", fmt.Sprintf("user_id=%d role=%s", id, u.Role))
	return u.ToPublic(), nil
}

func (s AccountService) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.users().List(ctx)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

// Profile returns the public view of one account.
func (s AccountService) Profile(ctx context.Context, userID int64) (models.PublicUser, error) {
	u, err := s.users().GetByID(ctx, userID)
	if err != nil {
		return models.PublicUser{}, wrapInternal(err)
	}
	return u.ToPublic(), nil
}

// TopUp credits amount to the user's balance and returns the new balance.
// It takes the same user row lock as settlement.
func (s AccountService) TopUp(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if userID <= 0 {
		return decimal.Zero, domain.ValidationError{Field: "user_id", Msg: "must be a positive integer"}
	}
	if !amount.IsPositive() {
		return decimal.Zero, domain.ValidationError{Field: "amount", Msg: "must be greater than zero"}
	}
	if err := domain.CheckAmount("amount", amount); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		current, err := s.users().LockBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		next := current.Add(amount)
		if next.GreaterThan(domain.MaxAmount) {
			return domain.ValidationError{
				Field: "amount",
				Msg:   "would raise the balance above " + domain.MaxAmount.StringFixed(2),
			}
		}
		if err := s.users().AddBalance(ctx, tx, userID, amount); err != nil {
			return err
		}
		balance = next
		return nil
	})
	if err != nil {
		return decimal.Zero, wrapInternal(err)
	}
	utils.LogEvent(s.RequestID, "account", "top_up",
		fmt.Sprintf("user_id=%d amount=%s", userID, utils.FormatPLN(amount)))
	return balance, nil
}

// EnsureAdmin creates the bootstrap admin account unless the login already exists.
// It reports whether an account was created.
func (s AccountService) EnsureAdmin(ctx context.Context, login, password string) (bool, error) {
	_, err := s.users().GetByLogin(ctx, login)
	if err == nil {
		return false, nil
	}
	if !domain.IsNotFound(err) {
		return false, domain.InternalError{Err: err}
	}
	_, err = s.CreateUser(ctx, NewUser{
		Login:     login,
		Password:  password,
		Role:      domain.RoleAdmin,
		FirstName: "System",
		LastName:  "Administrator",
	})
	if err != nil {
		if domain.IsConflict(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
