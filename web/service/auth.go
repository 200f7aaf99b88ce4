package service

import (
	"context"
	"errors"
	"time"

	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/database/model"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/util/crypto"
	"github.com/postscript-blog/postscript/util/random"
)

const (
	ResetTokenTTL   = time.Hour
	resetTokenBytes = 32
)

// AuthService runs the password reset lifecycle. Only the SHA-256 of a token is stored.
type AuthService struct {
	userService UserService
	notifier    Notifier
	baseURL     string
	now         func() time.Time
}

func NewAuthService(notifier Notifier, baseURL string) *AuthService {
	return &AuthService{notifier: notifier, baseURL: baseURL}
}

func (s *AuthService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// RequestPasswordReset issues a token for email and sends the link. An unknown email is
// not an error: callers must answer the same way whether or not the account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userService.GetByEmail(email)
	if errors.Is(err, common.ErrNotFound) {
		logger.Debugf("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := random.Token(resetTokenBytes)
	if err != nil {
		return common.Server(err, "generate reset token")
	}
	hash := crypto.HashToken(token)
	expires := s.clock().Add(ResetTokenTTL)
	err = database.GetDB().Model(&model.User{}).
		Where("id = ?", user.Id).
		Updates(map[string]any{"reset_token_hash": hash, "reset_expires": expires}).Error
	if err != nil {
		return common.Server(err, "store reset token")
	}

	link := s.baseURL + "/reset-password/" + token
	if err := s.notifier.SendPasswordReset(ctx, user.Email, link); err != nil {
		logger.Error("send password reset email:", err)
		return common.Server(err, "send reset email")
	}
	logger.Infof("password reset link sent to user %s", user.Username)
	return nil
}

// ValidateResetToken reports whether token is known and unexpired.
func (s *AuthService) ValidateResetToken(token string) error {
	_, err := s.resetTokenOwner(token)
	return err
}

func (s *AuthService) resetTokenOwner(token string) (int, error) {
	invalid := common.Token("Password reset token is invalid or has expired.")
	if token == "" {
		return 0, invalid
	}
	var user model.User
	err := database.GetDB().Model(&model.User{}).Select("id").
		Where("reset_token_hash = ? AND reset_expires > ?", crypto.HashToken(token), s.clock()).
		First(&user).Error
	if database.IsNotFound(err) {
		return 0, invalid
	}
	if err != nil {
		return 0, common.Server(err, "look up reset token")
	}
	return user.Id, nil
}

// ConsumePasswordReset sets a new password and clears the token in one conditional update,
// so a token can be used at most once. Sessions of the account are revoked afterwards.
func (s *AuthService) ConsumePasswordReset(ctx context.Context, token, newPassword string) error {
	userId, err := s.resetTokenOwner(token)
	if err != nil {
		return err
	}
	if err := check(passwordInput{Password: newPassword}); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	res := database.GetDB().Model(&model.User{}).
		Where("id = ? AND reset_token_hash = ? AND reset_expires > ?", userId, crypto.HashToken(token), s.clock()).
		Updates(map[string]any{
			"password_hash":    hash,
			"reset_token_hash": nil,
			"reset_expires":    nil,
		})
	if res.Error != nil {
		return common.Server(res.Error, "reset password")
	}
	if res.RowsAffected == 0 {
		return common.Token("Password reset token is invalid or has expired.")
	}
	revokeSessions(ctx, userId)
	logger.Info("password reset completed")
	return nil
}

// ClearExpiredResetTokens drops every token pair whose expiry has passed.
func (s *AuthService) ClearExpiredResetTokens() (int64, error) {
	res := database.GetDB().Model(&model.User{}).
		Where("reset_expires IS NOT NULL AND reset_expires <= ?", s.clock()).
		Updates(map[string]any{"reset_token_hash": nil, "reset_expires": nil})
	return res.RowsAffected, res.Error
}
