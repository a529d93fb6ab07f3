package villa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Authenticate resolves a user by username and password. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (service *Service) Authenticate(ctx context.Context, username string, password string) (User, error) {
	user, err := service.authenticate(ctx, username, password)
	service.logOperation(ctx, OperationLog{
		Operation: operationLogin,
		UserID:    user.ID,
		Subject:   strings.TrimSpace(username),
		Error:     err,
	})
	return user, err
}

func (service *Service) authenticate(ctx context.Context, username string, password string) (User, error) {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	user, err := service.store.GetUserByUsername(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			_ = bcrypt.CompareHashAndPassword(service.unknownUserHash(), []byte(password))
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// unknownUserHash is compared against when the username does not exist so
// both login failures pay the same bcrypt cost.
func (service *Service) unknownUserHash() []byte {
	service.decoyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(decoyPassword), service.passwordCost)
		if err == nil {
			service.decoyHash = hash
		}
	})
	return service.decoyHash
}

// GetUser loads one account.
func (service *Service) GetUser(ctx context.Context, userID UserID) (User, error) {
	return service.store.GetUser(ctx, userID)
}

// ListUsers returns every account.
func (service *Service) ListUsers(ctx context.Context) ([]User, error) {
	return service.store.ListUsers(ctx)
}

// CreateUser stores a new account with a bcrypt password hash. The role
// defaults to owner.
func (service *Service) CreateUser(ctx context.Context, input UserInput) (User, error) {
	user, err := service.newUser(input)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationCreateUser, Subject: strings.TrimSpace(input.Username), Error: err})
		return User{}, err
	}
	var created User
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := ensureUsernameFree(ctx, transactionStore, user.Username, 0); err != nil {
			return err
		}
		created, err = transactionStore.CreateUser(ctx, user)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateUser,
		UserID:    created.ID,
		Subject:   user.Username,
		Error:     operationError,
	})
	if operationError != nil {
		return User{}, operationError
	}
	return created, nil
}

func (service *Service) newUser(input UserInput) (User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return User{}, fmt.Errorf("%w: username is required", ErrInvalidUsername)
	}
	if input.Password == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrInvalidPassword)
	}
	role := defaultRole
	if strings.TrimSpace(input.Role) != "" {
		parsed, err := ParseRole(input.Role)
		if err != nil {
			return User{}, err
		}
		role = parsed
	}
	passwordHash, err := service.hashPassword(input.Password)
	if err != nil {
		return User{}, err
	}
	return User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    service.Now(),
	}, nil
}

// UpdateUser applies a partial update. An empty password leaves the hash
// untouched.
func (service *Service) UpdateUser(ctx context.Context, userID UserID, update UserUpdate) (User, error) {
	var saved User
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		user, err := transactionStore.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if update.Username != nil {
			username := strings.TrimSpace(*update.Username)
			if username == "" {
				return fmt.Errorf("%w: username is required", ErrInvalidUsername)
			}
			if username != user.Username {
				if err := ensureUsernameFree(ctx, transactionStore, username, userID); err != nil {
					return err
				}
			}
			user.Username = username
		}
		if update.Role != nil && strings.TrimSpace(*update.Role) != "" {
			role, err := ParseRole(*update.Role)
			if err != nil {
				return err
			}
			user.Role = role
		}
		if update.Password != nil && *update.Password != "" {
			passwordHash, err := service.hashPassword(*update.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = passwordHash
		}
		saved, err = transactionStore.SaveUser(ctx, user)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdateUser,
		UserID:    userID,
		Error:     operationError,
	})
	if operationError != nil {
		return User{}, operationError
	}
	return saved, nil
}

// DeleteUser removes an account. actorID is the signed-in user, who cannot
// remove themselves.
func (service *Service) DeleteUser(ctx context.Context, actorID UserID, userID UserID) error {
	var operationError error
	if actorID == userID {
		operationError = ErrSelfDeletion
	} else {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if _, err := transactionStore.GetUser(ctx, userID); err != nil {
				return err
			}
			return transactionStore.DeleteUser(ctx, userID)
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationDeleteUser,
		UserID:    userID,
		Error:     operationError,
	})
	return operationError
}

func (service *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), service.passwordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: longer than 72 bytes", ErrInvalidPassword)
		}
		return "", err
	}
	return string(hash), nil
}

func ensureUsernameFree(ctx context.Context, store Store, username string, owner UserID) error {
	existing, err := store.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUnknownUser) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == owner {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
}
