package controller

import (
	"errors"
	"net/http"

	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/entity"
	"github.com/postscript-blog/postscript/web/service"

	"github.com/gin-gonic/gin"
)

// PostController serves listings, single posts, likes and comments, and the authoring forms.
type PostController struct {
	BaseController

	postService    service.PostService
	likeService    service.LikeService
	commentService service.CommentService
	likeEvents     *service.LikeEventService
}

func NewPostController(g *gin.RouterGroup, likeEvents *service.LikeEventService) *PostController {
	a := &PostController{likeEvents: likeEvents}
	a.initRouter(g)
	return a
}

func (a *PostController) initRouter(g *gin.RouterGroup) {
	g.GET("/", a.list)
	g.GET("/all-posts", a.list)
	g.GET("/post/:slug", a.detail)
	g.GET("/post/:slug/likes", a.lastLikeEvent)
	g.GET("/tags/:tagname", a.byTag)
	g.GET("/search", a.search)

	// answers 401 JSON itself, the button script never follows redirects
	g.POST("/post/:slug/like", a.toggleLike)

	auth := g.Group("", a.checkLogin)
	auth.POST("/new-post", a.create)
	auth.GET("/edit-post/:slug", a.editForm)
	auth.POST("/edit-post/:slug", a.edit)
	auth.POST("/delete-post/:slug", a.delete)
	auth.POST("/post/:slug/comment", a.comment)
}

func (a *PostController) list(c *gin.Context) {
	page, err := a.postService.List(pageParam(c))
	jsonObj(c, page, err)
}

func (a *PostController) detail(c *gin.Context) {
	post, err := a.postService.Detail(c.Param("slug"), principal(c))
	jsonObj(c, post, err)
}

func (a *PostController) byTag(c *gin.Context) {
	posts, err := a.postService.ByTag(c.Param("tagname"))
	jsonObj(c, posts, err)
}

func (a *PostController) search(c *gin.Context) {
	posts, err := a.postService.Search(c.Query("query"))
	jsonObj(c, posts, err)
}

func (a *PostController) toggleLike(c *gin.Context) {
	slug := c.Param("slug")
	res, err := a.likeService.ToggleLike(principal(c), slug)
	if err != nil {
		respondError(c, err)
		return
	}
	a.likeEvents.Publish(c.Request.Context(), entity.LikeEvent{Slug: slug, Likes: res.Likes})
	c.JSON(http.StatusOK, res)
}

// lastLikeEvent serves tabs without a socket. With no recent event the current count is
// returned.
func (a *PostController) lastLikeEvent(c *gin.Context) {
	slug := c.Param("slug")
	ev, err := a.likeEvents.Last(c.Request.Context(), slug)
	if err == nil {
		jsonObj(c, ev, nil)
		return
	}
	if !errors.Is(err, common.ErrNotFound) {
		respondError(c, err)
		return
	}
	post, err := a.postService.GetBySlug(slug)
	if err != nil {
		respondError(c, err)
		return
	}
	likes, err := a.likeService.Count(post.Id)
	jsonObj(c, entity.LikeEvent{Slug: slug, Likes: likes}, err)
}

func (a *PostController) comment(c *gin.Context) {
	slug := c.Param("slug")
	comment, err := a.commentService.AddComment(principal(c), slug, c.PostForm("content"))
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, "/post/"+slug, I18nWeb(c, "pages.comment.added"), comment)
}

// postInput reads the authoring form. A missing image is not an error.
func postInput(c *gin.Context) (service.PostInput, error) {
	in := service.PostInput{
		Title:   c.PostForm("title"),
		Content: c.PostForm("content"),
		Tags:    c.PostForm("tags"),
	}
	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		in.Image = fh
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return in, common.Validation("Could not read the uploaded image.")
	}
	return in, nil
}

func (a *PostController) create(c *gin.Context) {
	in, err := postInput(c)
	if err != nil {
		respondError(c, err)
		return
	}
	post, err := a.postService.Create(principal(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, "/post/"+post.Slug, I18nWeb(c, "pages.post.created"), post)
}

func (a *PostController) editForm(c *gin.Context) {
	post, err := a.postService.GetBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	if post.AuthorId != principal(c).UserId {
		respondError(c, common.Forbidden("You can only edit your own posts."))
		return
	}
	jsonObj(c, post, nil)
}

func (a *PostController) edit(c *gin.Context) {
	in, err := postInput(c)
	if err != nil {
		respondError(c, err)
		return
	}
	oldSlug := c.Param("slug")
	post, err := a.postService.Edit(principal(c), oldSlug, in)
	if err != nil {
		respondError(c, err)
		return
	}
	if post.Slug != oldSlug {
		a.likeEvents.Forget(c.Request.Context(), oldSlug)
	}
	finish(c, "/post/"+post.Slug, I18nWeb(c, "pages.post.updated"), post)
}

func (a *PostController) delete(c *gin.Context) {
	slug := c.Param("slug")
	if err := a.postService.Delete(principal(c), slug); err != nil {
		respondError(c, err)
		return
	}
	a.likeEvents.Forget(c.Request.Context(), slug)
	finish(c, "/dashboard", I18nWeb(c, "pages.post.deleted"), nil)
}
