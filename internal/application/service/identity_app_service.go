package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
	"github.com/turtacn/advisorhub/pkg/utils"
)

// IdentityAppService defines the interface for registration, sign-in and user management
type IdentityAppService interface {
	// Register creates a firm on a trial subscription together with its first firm admin
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)

	// Login verifies credentials and issues an access token
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)

	// Logout revokes the caller's access token until it expires
	Logout(ctx context.Context, p *models.Principal) error

	// Me returns the caller's user record
	Me(ctx context.Context, p *models.Principal) (*models.User, error)

	// InviteUser creates a user with a temporary password
	InviteUser(ctx context.Context, p *models.Principal, req *dto.InviteUserRequest) (*dto.InviteUserResponse, error)

	// DeactivateUser disables a user of the caller's firm
	DeactivateUser(ctx context.Context, p *models.Principal, userID string) (*models.User, error)

	// ListUsers returns a page of the firm's users
	ListUsers(ctx context.Context, p *models.Principal, page dto.PageRequest) (*dto.PageResult, error)

	// ChangePassword replaces the caller's password after checking the current one
	ChangePassword(ctx context.Context, p *models.Principal, req *dto.ChangePasswordRequest) error
}

// identityAppServiceImpl is the concrete implementation of IdentityAppService
type identityAppServiceImpl struct {
	tx        repository.Transactor
	repos     repository.Repositories
	hasher    domainService.PasswordHasher
	tokens    domainService.TokenManager
	blacklist domainService.TokenBlacklistStore
	quota     *quotaGuard
	audit     domainService.AuditService
	logger    logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewIdentityAppService creates a new instance of IdentityAppService
func NewIdentityAppService(
	tx repository.Transactor,
	repos repository.Repositories,
	hasher domainService.PasswordHasher,
	tokens domainService.TokenManager,
	blacklist domainService.TokenBlacklistStore,
	cache domainService.SubscriptionCache,
	audit domainService.AuditService,
	log logger.Logger,
) IdentityAppService {
	log = log.WithComponent("IdentityAppService")
	return &identityAppServiceImpl{
		tx:        tx,
		repos:     repos,
		hasher:    hasher,
		tokens:    tokens,
		blacklist: blacklist,
		quota:     newQuotaGuard(cache, log),
		audit:     audit,
		logger:    log,
	}
}

// Register implements firm sign-up
func (s *identityAppServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	// 1. Validate request payload
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(req.Email)

	// 2. Hash outside the transaction, bcrypt is slow
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, asServerError(err, "failed to hash password")
	}

	var (
		firm *models.Firm
		sub  *models.Subscription
		user *models.User
	)
	// 3. Create firm, trial subscription and first admin atomically
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.FindByEmail(ctx, email); err == nil {
			return errors.ErrConflict("email is already registered")
		} else if !errors.IsNotFoundError(err) {
			return err
		}

		slug, err := uniqueSlug(ctx, repos.Firms, req.FirmName)
		if err != nil {
			return err
		}
		firm = models.NewFirm(req.FirmName, slug)
		if err := repos.Firms.Save(ctx, firm); err != nil {
			return err
		}
		sub = models.NewTrialSubscription(firm.ID, time.Now())
		if err := repos.Subscriptions.Save(ctx, sub); err != nil {
			return err
		}
		user = models.NewUser(&firm.ID, email, req.FullName, hash, constants.RoleFirmAdmin)
		return repos.Users.Save(ctx, user)
	})
	if err != nil {
		s.logger.Warn(ctx, "Registration failed", logger.String("email", utils.MaskEmail(email)), logger.Err(err))
		return nil, err
	}

	// 4. Issue the first token
	token, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger,
		models.NewAuditEvent(&firm.ID, constants.AuditUserRegistered, "user", user.ID.String()).
			WithActor(user.ID).
			WithMetadata("firm_slug", firm.Slug))
	s.logger.Info(ctx, "Firm registered", logger.String("firm_id", firm.ID.String()), logger.String("slug", firm.Slug))

	return &dto.RegisterResponse{Firm: firm, Subscription: sub, Token: token}, nil
}

// Login implements credential verification
func (s *identityAppServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(req.Email)
	invalid := errors.ErrUnauthorized("invalid email or password")

	user, err := s.repos.Users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.IsNotFoundError(err) {
			return nil, err
		}
		// keep unknown emails as slow as wrong passwords
		_ = s.hasher.Compare(s.timingHash(), req.Password)
		s.logger.Warn(ctx, "Login for unknown email", logger.String("email", utils.MaskEmail(email)))
		return nil, invalid
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.logger.Warn(ctx, "Login with wrong password", logger.String("user_id", user.ID.String()))
		return nil, invalid
	}

	if !user.Active {
		return nil, errors.ErrForbidden("user is deactivated")
	}
	if user.FirmID != nil {
		firm, err := s.repos.Firms.FindByID(ctx, *user.FirmID)
		if err != nil {
			return nil, err
		}
		if !firm.IsActive() {
			return nil, errors.ErrForbidden("firm is suspended")
		}
	}

	user.MarkLogin(time.Now())
	user.UpdatedAt = time.Now().UTC()
	if err := s.repos.Users.Update(ctx, user); err != nil {
		s.logger.Warn(ctx, "Failed to record last login", logger.String("user_id", user.ID.String()), logger.Err(err))
	}

	token, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger,
		models.NewAuditEvent(user.FirmID, constants.AuditUserLoggedIn, "user", user.ID.String()).WithActor(user.ID))
	return token, nil
}

// Logout implements token revocation
func (s *identityAppServiceImpl) Logout(ctx context.Context, p *models.Principal) error {
	if p == nil || p.TokenID == "" {
		return errors.ErrUnauthorized("authentication required")
	}
	if err := s.blacklist.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return errors.ErrCache("revoke token", err)
	}
	s.logger.Info(ctx, "Token revoked", logger.String("user_id", p.UserID.String()), logger.String("jti", p.TokenID))
	return nil
}

// Me implements current-user lookup
func (s *identityAppServiceImpl) Me(ctx context.Context, p *models.Principal) (*models.User, error) {
	if p == nil {
		return nil, errors.ErrUnauthorized("authentication required")
	}
	return s.repos.Users.FindByID(ctx, p.UserID)
}

// InviteUser implements user invitation
func (s *identityAppServiceImpl) InviteUser(ctx context.Context, p *models.Principal, req *dto.InviteUserRequest) (*dto.InviteUserResponse, error) {
	// 1. Only firm admins invite
	firmID, err := requireFirmRole(p, constants.RoleFirmAdmin)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(req.Email)

	// 2. Generate the temporary password
	password, err := utils.GenerateTemporaryPassword(constants.TemporaryPasswordLength)
	if err != nil {
		return nil, asServerError(err, "failed to generate password")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, asServerError(err, "failed to hash password")
	}

	// 3. Check uniqueness and seats, then create
	var user *models.User
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.FindByEmail(ctx, email); err == nil {
			return errors.ErrConflict("email is already registered")
		} else if !errors.IsNotFoundError(err) {
			return err
		}
		if req.Role.ConsumesSeat() {
			if err := s.quota.requireSeat(ctx, repos, firmID); err != nil {
				return err
			}
		}
		user = models.NewUser(&firmID, email, req.FullName, hash, req.Role)
		return repos.Users.Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditUserInvited, "user", user.ID.String()).WithMetadata("role", string(user.Role)))
	s.logger.Info(ctx, "User invited",
		logger.String("firm_id", firmID.String()),
		logger.String("user_id", user.ID.String()),
		logger.String("role", string(user.Role)))

	return &dto.InviteUserResponse{User: user, TemporaryPassword: password}, nil
}

// DeactivateUser implements user deactivation
func (s *identityAppServiceImpl) DeactivateUser(ctx context.Context, p *models.Principal, userID string) (*models.User, error) {
	firmID, err := requireFirmRole(p, constants.RoleFirmAdmin)
	if err != nil {
		return nil, err
	}
	id, err := parseID("user_id", userID)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err = repos.Users.FindInFirm(ctx, firmID, id)
		if err != nil {
			return err
		}
		if !user.Active {
			return nil
		}
		if user.Role == constants.RoleFirmAdmin {
			admins, err := repos.Users.CountActiveByRoles(ctx, firmID, constants.RoleFirmAdmin)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return errors.ErrWorkflowViolation("cannot deactivate the last active firm admin")
			}
		}
		user.Active = false
		user.UpdatedAt = time.Now().UTC()
		return repos.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, auditEvent(p, constants.AuditUserDeactivated, "user", user.ID.String()))
	return user, nil
}

// ListUsers implements the firm user listing
func (s *identityAppServiceImpl) ListUsers(ctx context.Context, p *models.Principal, page dto.PageRequest) (*dto.PageResult, error) {
	firmID, err := requireFirmRole(p, editorRoles...)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(&page); err != nil {
		return nil, err
	}
	users, total, err := s.repos.Users.ListByFirm(ctx, firmID, page.ToPage())
	if err != nil {
		return nil, err
	}
	return dto.NewPageResult(users, page.ToPage(), total), nil
}

// ChangePassword implements password rotation
func (s *identityAppServiceImpl) ChangePassword(ctx context.Context, p *models.Principal, req *dto.ChangePasswordRequest) error {
	if p == nil {
		return errors.ErrUnauthorized("authentication required")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.repos.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		return errors.ErrUnauthorized("current password is incorrect")
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return asServerError(err, "failed to hash password")
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info(ctx, "Password changed", logger.String("user_id", user.ID.String()))
	return nil
}

func (s *identityAppServiceImpl) issue(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	token, _, expiresAt, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, asServerError(err, "failed to issue token")
	}
	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// timingHash lazily builds a throwaway hash compared against on unknown emails.
func (s *identityAppServiceImpl) timingHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}

// uniqueSlug derives a slug from name and appends a counter until it is free.
func uniqueSlug(ctx context.Context, firms repository.FirmRepository, name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "firm"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := firms.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		if i > 50 {
			return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

//Personal.AI order the ending
