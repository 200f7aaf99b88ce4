package controller

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/service"

	"github.com/gin-gonic/gin"
)

// ProfileController serves the signed-in user's dashboard and profile form.
type ProfileController struct {
	BaseController

	userService service.UserService
	postService service.PostService
}

func NewProfileController(g *gin.RouterGroup) *ProfileController {
	a := &ProfileController{}
	a.initRouter(g)
	return a
}

func (a *ProfileController) initRouter(g *gin.RouterGroup) {
	g = g.Group("", a.checkLogin)
	g.GET("/dashboard", a.dashboard)
	g.GET("/edit-profile", a.profile)
	g.POST("/edit-profile", a.editProfile)
}

func (a *ProfileController) dashboard(c *gin.Context) {
	dash, err := a.postService.Dashboard(principal(c))
	jsonObj(c, dash, err)
}

func (a *ProfileController) profile(c *gin.Context) {
	user, err := a.userService.GetById(principal(c).UserId)
	jsonObj(c, user, err)
}

func (a *ProfileController) editProfile(c *gin.Context) {
	var avatar *multipart.FileHeader
	fh, err := c.FormFile("avatar")
	switch {
	case err == nil:
		avatar = fh
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		respondError(c, common.Validation("Could not read the uploaded image."))
		return
	}
	user, err := a.userService.UpdateProfile(principal(c), c.PostForm("bio"), avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, "/dashboard", I18nWeb(c, "pages.profile.updated"), user)
}
