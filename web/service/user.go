package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/database/model"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/util/crypto"
	"github.com/postscript-blog/postscript/web/cache"
	"github.com/postscript-blog/postscript/web/entity"

	"golang.org/x/crypto/bcrypt"
)

// errBadCredentials is shared by every login failure so callers cannot tell them apart.
var errBadCredentials = common.Auth("Invalid username or password.")

type UserService struct {
	uploadService UploadService
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := crypto.HashPasswordAsBcrypt(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", common.Validation("Password must be at most 72 bytes long.")
	}
	if err != nil {
		return "", common.Server(err, "hash password")
	}
	return hash, nil
}

// Signup validates the input, hashes the password and creates the user.
func (s *UserService) Signup(username, email, password string) (*model.User, error) {
	in := signupInput{
		Username: strings.TrimSpace(username),
		Email:    NormalizeEmail(email),
		Password: password,
	}
	if err := check(in); err != nil {
		return nil, err
	}

	db := database.GetDB()
	var taken int64
	err := db.Model(&model.User{}).
		Where("username = ? OR email = ?", in.Username, in.Email).
		Count(&taken).Error
	if err != nil {
		return nil, common.Server(err, "check existing user")
	}
	if taken > 0 {
		return nil, common.Conflict("Username or email already exists.")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := db.Create(user).Error; err != nil {
		// lost a race with a concurrent signup
		if database.IsUniqueViolation(err) {
			return nil, common.Conflict("Username or email already exists.")
		}
		return nil, common.Server(err, "create user")
	}
	logger.Infof("user %s signed up", user.Username)
	return user, nil
}

// Login checks the credentials and returns the principal to store in the session.
// Unknown user and wrong password produce the same error.
func (s *UserService) Login(username, password string) (*entity.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errBadCredentials
	}
	user, err := s.GetByUsername(username)
	if errors.Is(err, common.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !crypto.CheckPasswordHash(user.PasswordHash, password) {
		return nil, errBadCredentials
	}
	return &entity.Principal{UserId: user.Id, Username: user.Username}, nil
}

func (s *UserService) GetByUsername(username string) (*model.User, error) {
	return s.getBy("username = ?", username)
}

func (s *UserService) GetById(id int) (*model.User, error) {
	return s.getBy("id = ?", id)
}

func (s *UserService) GetByEmail(email string) (*model.User, error) {
	return s.getBy("email = ?", NormalizeEmail(email))
}

func (s *UserService) getBy(query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := database.GetDB().Where(query, arg).First(user).Error
	if database.IsNotFound(err) {
		return nil, common.NotFound("User not found.")
	}
	if err != nil {
		return nil, common.Server(err, "load user")
	}
	return user, nil
}

// UpdateProfile sets the bio and, when avatar is given, replaces the avatar file.
func (s *UserService) UpdateProfile(p *entity.Principal, bio string, avatar *multipart.FileHeader) (*model.User, error) {
	if p == nil {
		return nil, common.Auth("Login required.")
	}
	in := profileInput{Bio: strings.TrimSpace(bio)}
	if err := check(in); err != nil {
		return nil, err
	}
	user, err := s.GetById(p.UserId)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"bio": in.Bio}
	oldAvatar := user.Avatar
	if avatar != nil {
		path, err := s.uploadService.Save(avatar)
		if err != nil {
			return nil, err
		}
		updates["avatar"] = path
	}
	if err := database.GetDB().Model(user).Updates(updates).Error; err != nil {
		if saved, ok := updates["avatar"].(string); ok {
			s.uploadService.Remove(saved)
		}
		return nil, common.Server(err, "update profile")
	}
	user.Bio = in.Bio
	if saved, ok := updates["avatar"].(string); ok {
		user.Avatar = saved
		if oldAvatar != "" {
			s.uploadService.Remove(oldAvatar)
		}
	}
	return user, nil
}

// SetPassword replaces a user's password and signs them out everywhere. Used by the admin CLI.
func (s *UserService) SetPassword(ctx context.Context, username, password string) error {
	if err := check(passwordInput{Password: password}); err != nil {
		return err
	}
	user, err := s.GetByUsername(username)
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	err = database.GetDB().Model(&model.User{}).
		Where("id = ?", user.Id).
		Updates(map[string]any{"password_hash": hash, "reset_token_hash": nil, "reset_expires": nil}).Error
	if err != nil {
		return common.Server(err, "set password")
	}
	revokeSessions(ctx, user.Id)
	return nil
}

// revokeSessions is best effort: the password has already changed when it runs.
func revokeSessions(ctx context.Context, userId int) {
	if err := cache.RevokeUserSessions(ctx, userId); err != nil {
		logger.Warningf("revoke sessions of user %d: %v", userId, err)
	}
}

func toAuthorView(u *model.User) entity.AuthorView {
	return entity.AuthorView{Id: u.Id, Username: u.Username, Bio: u.Bio, Avatar: u.Avatar}
}
