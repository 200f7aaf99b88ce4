package controller

import (
	"github.com/postscript-blog/postscript/config"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/web/service"
	"github.com/postscript-blog/postscript/web/session"

	"github.com/gin-gonic/gin"
)

// AuthController handles signup, login, logout and the password reset forms.
type AuthController struct {
	BaseController

	userService service.UserService
	authService *service.AuthService
}

func NewAuthController(g *gin.RouterGroup, authService *service.AuthService) *AuthController {
	a := &AuthController{authService: authService}
	a.initRouter(g)
	return a
}

func (a *AuthController) initRouter(g *gin.RouterGroup) {
	g.POST("/signup", a.signup)
	g.POST("/login", a.login)
	g.GET("/logout", a.logout)
	g.POST("/forgot-password", a.forgotPassword)
	g.GET("/reset-password/:token", a.checkResetToken)
	g.POST("/reset-password/:token", a.resetPassword)
}

func (a *AuthController) signup(c *gin.Context) {
	user, err := a.userService.Signup(c.PostForm("username"), c.PostForm("email"), c.PostForm("password"))
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, "/login", I18nWeb(c, "pages.signup.success", "Username=="+user.Username), user)
}

func (a *AuthController) login(c *gin.Context) {
	username := c.PostForm("username")
	p, err := a.userService.Login(username, c.PostForm("password"))
	if err != nil {
		logger.Warningf("failed login for %q from %s", username, getRemoteIp(c))
		respondError(c, err)
		return
	}
	if err := session.SetLoginUser(c, p); err != nil {
		respondError(c, err)
		return
	}
	if err := session.SetMaxAge(c, config.GetSessionMaxAge()*60); err != nil {
		respondError(c, err)
		return
	}
	logger.Infof("%s logged in from %s", p.Username, getRemoteIp(c))
	finish(c, "/", I18nWeb(c, "pages.login.success"), p)
}

func (a *AuthController) logout(c *gin.Context) {
	if p := principal(c); p != nil {
		logger.Infof("%s logged out", p.Username)
	}
	if err := session.ClearSession(c); err != nil {
		respondError(c, err)
		return
	}
	finish(c, "/", I18nWeb(c, "pages.logout.success"), nil)
}

// forgotPassword answers the same way whether or not the email belongs to an account.
func (a *AuthController) forgotPassword(c *gin.Context) {
	if err := a.authService.RequestPasswordReset(c.Request.Context(), c.PostForm("email")); err != nil {
		respondError(c, err)
		return
	}
	jsonMsg(c, I18nWeb(c, "pages.forgot.sent"), nil)
}

func (a *AuthController) checkResetToken(c *gin.Context) {
	jsonMsg(c, I18nWeb(c, "pages.reset.valid"), a.authService.ValidateResetToken(c.Param("token")))
}

func (a *AuthController) resetPassword(c *gin.Context) {
	if err := a.authService.ConsumePasswordReset(c.Request.Context(), c.Param("token"), c.PostForm("password")); err != nil {
		respondError(c, err)
		return
	}
	finish(c, "/login", I18nWeb(c, "pages.reset.success"), nil)
}
