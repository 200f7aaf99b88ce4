// Package controller provides the HTTP handlers of the blog: auth forms, posts, likes,
// comments, the profile dashboard and the like event socket.
package controller

import (
	"net/http"

	"github.com/postscript-blog/postscript/web/entity"
	"github.com/postscript-blog/postscript/web/locale"
	"github.com/postscript-blog/postscript/web/middleware"

	"github.com/gin-gonic/gin"
)

// BaseController provides common functionality for all controllers, including authentication checks.
type BaseController struct{}

// checkLogin aborts anonymous requests: JSON 401 for scripts, a redirect to /login otherwise.
func (a *BaseController) checkLogin(c *gin.Context) {
	if middleware.Principal(c) == nil {
		if wantsJSON(c) {
			pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "loginRequired"))
		} else {
			c.Redirect(http.StatusSeeOther, "/login")
		}
		c.Abort()
	} else {
		c.Next()
	}
}

// principal is the caller of this request, nil when anonymous.
func principal(c *gin.Context) *entity.Principal {
	return middleware.Principal(c)
}

// I18nWeb retrieves an internationalized message based on the request locale.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	return locale.I18n(locale.FromContext(c), name, params...)
}
