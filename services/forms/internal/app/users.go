package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"formsapi/internal/util"
	"formsapi/internal/validate"
	"formsapi/pkg/auth"
	"formsapi/pkg/domain"
	"formsapi/pkg/result"
	"formsapi/pkg/store"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserInput changes only the supplied fields.
type UpdateUserInput struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
}

// Register creates an account and logs it in.
func (a *App) Register(ctx context.Context, in RegisterInput) result.Result[Session] {
	return run(ctx, a, "register", KindSession, func() (Session, error) {
		var v validate.Violations
		checkEmail(&v, "email", in.Email)
		checkPassword(&v, in.Password)
		v.Present("name", in.Name, "Name is required")
		if err := v.Err(msgInvalidInput); err != nil {
			return Session{}, err
		}

		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return Session{}, fmt.Errorf("hash password: %w", err)
		}
		now := a.now()
		user := domain.User{
			ID:           util.NewID(),
			Email:        normalizeEmail(in.Email),
			PasswordHash: hash,
			Name:         strings.TrimSpace(in.Name),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := a.store.CreateUser(user); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				return Session{}, result.DuplicateEmail()
			}
			return Session{}, fmt.Errorf("create user: %w", err)
		}
		util.LoggerFromContext(ctx).Info("security_event", "event", "user_registered", "user_id", user.ID)
		return a.issueSession(user)
	})
}

// Login exchanges credentials for a session token.
func (a *App) Login(ctx context.Context, in LoginInput) result.Result[Session] {
	return run(ctx, a, "login", KindSession, func() (Session, error) {
		var v validate.Violations
		v.Present("email", in.Email, "Email is required")
		v.Present("password", in.Password, "Password is required")
		if err := v.Err(msgInvalidInput); err != nil {
			return Session{}, err
		}

		user, ok, err := a.store.GetUserByEmail(normalizeEmail(in.Email))
		if err != nil {
			return Session{}, fmt.Errorf("get user by email: %w", err)
		}
		if !ok || !auth.CheckPassword(in.Password, user.PasswordHash) {
			util.LoggerFromContext(ctx).Warn("security_event", "event", "login_failed")
			return Session{}, result.InvalidCredentials()
		}
		util.LoggerFromContext(ctx).Info("security_event", "event", "login_succeeded", "user_id", user.ID)
		return a.issueSession(user)
	})
}

func (a *App) issueSession(user domain.User) (Session, error) {
	session, err := a.sessions.NewSession(user)
	if err != nil {
		return Session{}, fmt.Errorf("issue session: %w", err)
	}
	return Session{
		Token:     session.Token,
		UserID:    user.ID,
		User:      user,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout revokes token when a revoker is configured; otherwise the token
// stays valid until it expires.
func (a *App) Logout(ctx context.Context, identity domain.Identity, token string) result.Result[Success] {
	return run(ctx, a, "logout", KindSuccess, func() (Success, error) {
		if err := requireIdentity(identity); err != nil {
			return Success{}, err
		}
		if err := a.sessions.DeleteSession(token); err != nil {
			return Success{}, fmt.Errorf("delete session: %w", err)
		}
		return Success{Success: true, Message: "Logged out successfully"}, nil
	})
}

// Me returns the caller's own account.
func (a *App) Me(ctx context.Context, identity domain.Identity) result.Result[domain.User] {
	return run(ctx, a, "me", KindUser, func() (domain.User, error) {
		if err := requireIdentity(identity); err != nil {
			return domain.User{}, err
		}
		return loadUser(a.store, identity.UserID)
	})
}

// Users lists every account, newest first.
func (a *App) Users(ctx context.Context, identity domain.Identity) result.Result[UsersList] {
	return run(ctx, a, "users", KindUsersList, func() (UsersList, error) {
		if err := requireIdentity(identity); err != nil {
			return UsersList{}, err
		}
		users, err := a.store.ListUsers()
		if err != nil {
			return UsersList{}, fmt.Errorf("list users: %w", err)
		}
		return UsersList{Users: users, Count: len(users)}, nil
	})
}

// User looks up any account by ID; callers only need to be signed in.
func (a *App) User(ctx context.Context, identity domain.Identity, userID string) result.Result[domain.User] {
	return run(ctx, a, "user", KindUser, func() (domain.User, error) {
		if err := requireIdentity(identity); err != nil {
			return domain.User{}, err
		}
		return loadUser(a.store, userID)
	})
}

// UpdateUser changes the caller's own account.
func (a *App) UpdateUser(ctx context.Context, identity domain.Identity, userID string, in UpdateUserInput) result.Result[domain.User] {
	return run(ctx, a, "updateUser", KindUser, func() (domain.User, error) {
		if err := requireIdentity(identity); err != nil {
			return domain.User{}, err
		}
		var v validate.Violations
		if in.Email != nil {
			checkEmail(&v, "email", *in.Email)
		}
		if in.Password != nil {
			checkPassword(&v, *in.Password)
		}
		if in.Name != nil {
			v.Present("name", *in.Name, "Name is required")
		}
		if err := v.Err(msgInvalidInput); err != nil {
			return domain.User{}, err
		}
		if identity.UserID != userID {
			return domain.User{}, result.Forbidden(msgForbiddenUpdateUser)
		}

		user, err := loadUser(a.store, userID)
		if err != nil {
			return domain.User{}, err
		}
		if in.Email != nil {
			user.Email = normalizeEmail(*in.Email)
		}
		if in.Name != nil {
			user.Name = strings.TrimSpace(*in.Name)
		}
		if in.Password != nil {
			hash, err := auth.HashPassword(*in.Password)
			if err != nil {
				return domain.User{}, fmt.Errorf("hash password: %w", err)
			}
			user.PasswordHash = hash
		}
		user.UpdatedAt = a.now()
		if err := a.store.SaveUser(user); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				return domain.User{}, result.DuplicateEmail()
			}
			return domain.User{}, fmt.Errorf("save user: %w", err)
		}
		return user, nil
	})
}

// DeleteUser removes the caller's account with every form it owns and
// revokes the presented token.
func (a *App) DeleteUser(ctx context.Context, identity domain.Identity, userID, token string) result.Result[Success] {
	return run(ctx, a, "deleteUser", KindSuccess, func() (Success, error) {
		if err := requireIdentity(identity); err != nil {
			return Success{}, err
		}
		if identity.UserID != userID {
			return Success{}, result.Forbidden(msgForbiddenDeleteUser)
		}
		if _, err := loadUser(a.store, userID); err != nil {
			return Success{}, err
		}
		if err := a.store.DeleteUser(userID); err != nil {
			return Success{}, fmt.Errorf("delete user: %w", err)
		}
		if err := a.sessions.DeleteSession(token); err != nil {
			util.LoggerFromContext(ctx).Warn("revoke session after account deletion failed", "err", err)
		}
		util.LoggerFromContext(ctx).Info("security_event", "event", "user_deleted", "user_id", userID)
		return Success{Success: true, Message: "User deleted successfully and logged out"}, nil
	})
}
