// Package session stores the authenticated principal in the cookie-keyed session.
package session

import (
	"encoding/gob"
	"net/http"
	"time"

	"github.com/postscript-blog/postscript/config"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/cache"
	"github.com/postscript-blog/postscript/web/entity"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	loginUser  = "LOGIN_USER"
	renewerKey = "session-renewer"
	// CookieName is the name of the session cookie.
	CookieName = "postscript"
)

func init() {
	gob.Register(entity.Principal{})
}

// Renewer gives the request's session a new id on its next save.
type Renewer interface {
	Renew(r *http.Request, name string) error
}

// WithRenewer makes r available to SetLoginUser. Register it after sessions.Sessions.
func WithRenewer(r Renewer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(renewerKey, r)
		c.Next()
	}
}

// SetLoginUser starts a fresh session for p. The id the client arrived with is dropped,
// so a planted cookie never becomes an authenticated one.
func SetLoginUser(c *gin.Context, p *entity.Principal) error {
	if v, ok := c.Get(renewerKey); ok {
		if err := v.(Renewer).Renew(c.Request, CookieName); err != nil {
			return common.Session(err)
		}
	}
	s := sessions.Default(c)
	s.Clear()
	s.Set(loginUser, *p)
	if err := s.Save(); err != nil {
		return common.Session(err)
	}
	ttl := time.Duration(config.GetSessionMaxAge()) * time.Minute
	if err := cache.TrackUserSession(c.Request.Context(), p.UserId, s.ID(), ttl); err != nil {
		logger.Warningf("track session of user %d: %v", p.UserId, err)
	}
	return nil
}

func SetMaxAge(c *gin.Context, maxAge int) error {
	s := sessions.Default(c)
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
	})
	if err := s.Save(); err != nil {
		return common.Session(err)
	}
	return nil
}

// GetPrincipal returns the signed-in caller, or nil for anonymous requests.
func GetPrincipal(c *gin.Context) *entity.Principal {
	s := sessions.Default(c)
	if obj := s.Get(loginUser); obj != nil {
		if p, ok := obj.(entity.Principal); ok && p.UserId > 0 {
			return &p
		}
	}
	return nil
}

func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	if p := GetPrincipal(c); p != nil {
		_ = cache.Delete(c.Request.Context(), cache.UserSessionKey(p.UserId, s.ID()))
	}
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	if err := s.Save(); err != nil {
		return common.Session(err)
	}
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
	return nil
}
