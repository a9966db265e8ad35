package service

import (
	"context"
	"crypto/subtle"
	"sort"
	"strings"

	"exam-room/internal/domain"
	"exam-room/internal/logger"
	"exam-room/internal/util"
	"exam-room/internal/validation"

	"go.uber.org/zap"
)

// AuthService authenticates teachers and students against the credential tables.
type AuthService interface {
	// Authenticate returns the identity for a matching username and password.
	// It reports false on any mismatch, unknown user, malformed input or
	// storage failure and never returns an error.
	Authenticate(ctx context.Context, username, password string) (*domain.Identity, bool)

	// ListClassIDs returns the distinct non-empty student class ids, sorted.
	ListClassIDs(ctx context.Context) ([]string, error)
}

type authServiceImpl struct {
	credentials domain.CredentialRepository
	serializer  WriteSerializer
	validator   *validation.Validator
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(credentials domain.CredentialRepository, serializer WriteSerializer, validator *validation.Validator) AuthService {
	return &authServiceImpl{
		credentials: credentials,
		serializer:  serializer,
		validator:   validator,
	}
}

func (s *authServiceImpl) Authenticate(ctx context.Context, username, password string) (*domain.Identity, bool) {
	if errs := s.validator.ValidateCredentials(username, password); len(errs) > 0 {
		logger.Get().Debug("Rejected malformed login", zap.String("reason", errs.Error()))
		return nil, false
	}
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	for _, role := range []domain.Role{domain.RoleTeacher, domain.RoleStudent} {
		cred, err := s.find(ctx, role, username)
		if err != nil {
			logger.Get().Error("Failed to look up credential",
				zap.String("role", string(role)),
				zap.String("username", username),
				zap.Error(err))
			return nil, false
		}
		if cred == nil || !verifyPassword(password, cred.Password) {
			continue
		}
		if !util.IsPasswordDigest(cred.Password) {
			s.migratePassword(ctx, role, username, password)
		}
		identity := &domain.Identity{Username: cred.Username, Name: cred.Name, Role: role}
		if role == domain.RoleStudent {
			identity.ClassID = cred.Extra
		}
		return identity, true
	}
	return nil, false
}

func (s *authServiceImpl) find(ctx context.Context, role domain.Role, username string) (*domain.Credential, error) {
	if role == domain.RoleTeacher {
		return s.credentials.FindTeacher(ctx, username)
	}
	return s.credentials.FindStudent(ctx, username)
}

// migratePassword replaces a legacy plaintext password with its digest. A busy
// lock or failed write leaves the plaintext in place for the next login.
func (s *authServiceImpl) migratePassword(ctx context.Context, role domain.Role, username, password string) {
	err := s.serializer.Do(ctx, "LOGIN_MIGRATE_PASSWORD", func(ctx context.Context) error {
		return s.credentials.UpdatePassword(ctx, role, username, util.HashPassword(password))
	})
	if err != nil {
		logger.Get().Warn("Skipped password digest migration",
			zap.String("role", string(role)),
			zap.String("username", username),
			zap.Error(err))
		return
	}
	logger.Get().Info("Migrated legacy password to digest",
		zap.String("role", string(role)),
		zap.String("username", username))
}

// verifyPassword compares against a stored digest, or against trimmed
// plaintext for credentials that were never migrated.
func verifyPassword(input, stored string) bool {
	if util.IsPasswordDigest(stored) {
		return subtle.ConstantTimeCompare([]byte(util.HashPassword(input)), []byte(strings.ToLower(stored))) == 1
	}
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(stored)) == 1
}

func (s *authServiceImpl) ListClassIDs(ctx context.Context) ([]string, error) {
	raw, err := s.credentials.ListStudentClassIDs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}
