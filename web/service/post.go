package service

import (
	"math"
	"mime/multipart"
	"strings"

	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/database/model"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/util/slug"
	"github.com/postscript-blog/postscript/web/entity"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

const PostsPerPage = 10

// PostInput is the author-supplied part of a post. Tags is the raw comma separated list.
type PostInput struct {
	Title   string
	Content string
	Tags    string
	Image   *multipart.FileHeader
}

type PostService struct {
	uploadService  UploadService
	userService    UserService
	likeService    LikeService
	commentService CommentService
}

// ParseTags splits a comma separated list into trimmed, lower-cased, de-duplicated tags,
// keeping the order of first appearance.
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	seen := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

func toPostTags(tags []string) []model.PostTag {
	out := make([]model.PostTag, 0, len(tags))
	for i, t := range tags {
		out = append(out, model.PostTag{Tag: t, Position: i})
	}
	return out
}

func (s *PostService) validate(in PostInput) (postInput, string, error) {
	v := postInput{Title: strings.TrimSpace(in.Title), Content: strings.TrimSpace(in.Content)}
	if err := check(v); err != nil {
		return v, "", err
	}
	sl := slug.Slugify(v.Title)
	if sl == "" {
		return v, "", common.Validation("Title must contain at least one letter or number.")
	}
	return v, sl, nil
}

func (s *PostService) slugTaken(sl string, exceptId int) (bool, error) {
	var count int64
	err := database.GetDB().Model(&model.Post{}).
		Where("slug = ? AND id <> ?", sl, exceptId).
		Count(&count).Error
	return count > 0, err
}

// Create stores a new post owned by p.
func (s *PostService) Create(p *entity.Principal, in PostInput) (*model.Post, error) {
	if p == nil {
		return nil, common.Auth("Login required.")
	}
	v, sl, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	author, err := s.userService.GetById(p.UserId)
	if err != nil {
		return nil, err
	}
	taken, err := s.slugTaken(sl, 0)
	if err != nil {
		return nil, common.Server(err, "check slug")
	}
	if taken {
		return nil, common.Conflict("A post with a similar title already exists.")
	}

	post := &model.Post{
		Title:    v.Title,
		Slug:     sl,
		Content:  v.Content,
		AuthorId: author.Id,
		Tags:     toPostTags(ParseTags(in.Tags)),
	}
	if in.Image != nil {
		if post.Image, err = s.uploadService.Save(in.Image); err != nil {
			return nil, err
		}
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Author").Create(post).Error
	})
	if err != nil {
		s.uploadService.Remove(post.Image)
		if database.IsUniqueViolation(err) {
			return nil, common.Conflict("A post with a similar title already exists.")
		}
		return nil, common.Server(err, "create post")
	}
	post.Author = *author
	logger.Infof("user %s created post %s", p.Username, post.Slug)
	return post, nil
}

// Edit updates a post. Only its author may edit it; a new title yields a new slug.
func (s *PostService) Edit(p *entity.Principal, postSlug string, in PostInput) (*model.Post, error) {
	if p == nil {
		return nil, common.Auth("Login required.")
	}
	post, err := s.GetBySlug(postSlug)
	if err != nil {
		return nil, err
	}
	if post.AuthorId != p.UserId {
		return nil, common.Forbidden("You can only edit your own posts.")
	}
	v, sl, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	if sl != post.Slug {
		taken, err := s.slugTaken(sl, post.Id)
		if err != nil {
			return nil, common.Server(err, "check slug")
		}
		if taken {
			return nil, common.Conflict("A post with a similar title already exists.")
		}
	}

	oldImage := post.Image
	newImage := ""
	if in.Image != nil {
		if newImage, err = s.uploadService.Save(in.Image); err != nil {
			return nil, err
		}
	}
	updates := map[string]any{"title": v.Title, "slug": sl, "content": v.Content}
	if newImage != "" {
		updates["image"] = newImage
	}
	tags := toPostTags(ParseTags(in.Tags))

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(post).Omit("Author", "Tags").Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.Id).Delete(&model.PostTag{}).Error; err != nil {
			return err
		}
		for i := range tags {
			tags[i].PostId = post.Id
		}
		if len(tags) > 0 {
			return tx.Create(&tags).Error
		}
		return nil
	})
	if err != nil {
		s.uploadService.Remove(newImage)
		if database.IsUniqueViolation(err) {
			return nil, common.Conflict("A post with a similar title already exists.")
		}
		return nil, common.Server(err, "update post")
	}
	if newImage != "" {
		s.uploadService.Remove(oldImage)
	}
	logger.Infof("user %s edited post %s", p.Username, sl)
	return s.GetBySlug(sl)
}

// Delete removes a post with its tags, likes, comments and image. Author only.
func (s *PostService) Delete(p *entity.Principal, postSlug string) error {
	if p == nil {
		return common.Auth("Login required.")
	}
	post, err := s.GetBySlug(postSlug)
	if err != nil {
		return err
	}
	if post.AuthorId != p.UserId {
		return common.Forbidden("You can only delete your own posts.")
	}
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.PostLike{}, &model.Comment{}, &model.PostTag{}} {
			if err := tx.Where("post_id = ?", post.Id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Post{}, post.Id).Error
	})
	if err != nil {
		return common.Server(err, "delete post")
	}
	s.uploadService.Remove(post.Image)
	logger.Infof("user %s deleted post %s", p.Username, post.Slug)
	return nil
}

func withTags(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

// GetBySlug loads a post with its author and ordered tags.
func (s *PostService) GetBySlug(postSlug string) (*model.Post, error) {
	post := &model.Post{}
	err := database.GetDB().
		Preload("Author").
		Preload("Tags", withTags).
		Where("slug = ?", postSlug).
		First(post).Error
	if database.IsNotFound(err) {
		return nil, common.NotFound("Post not found.")
	}
	if err != nil {
		return nil, common.Server(err, "load post")
	}
	return post, nil
}

// Detail is the public view of one post. viewer may be nil.
func (s *PostService) Detail(postSlug string, viewer *entity.Principal) (*entity.PostDetail, error) {
	post, err := s.GetBySlug(postSlug)
	if err != nil {
		return nil, err
	}
	views, err := s.views([]model.Post{*post})
	if err != nil {
		return nil, err
	}
	detail := &entity.PostDetail{PostView: views[0]}
	if viewer != nil {
		if detail.Liked, err = s.likeService.LikedBy(post.Id, viewer.UserId); err != nil {
			return nil, err
		}
	}
	comments, err := s.commentService.ListByPost(post.Id)
	if err != nil {
		return nil, err
	}
	detail.CommentsList = make([]entity.CommentView, 0, len(comments))
	for i := range comments {
		detail.CommentsList = append(detail.CommentsList, entity.CommentView{
			Id:        comments[i].Id,
			Content:   comments[i].Content,
			Author:    toAuthorView(&comments[i].Author),
			CreatedAt: comments[i].CreatedAt,
		})
	}
	return detail, nil
}

func (s *PostService) find(scope func(*gorm.DB) *gorm.DB) ([]entity.PostView, error) {
	var posts []model.Post
	err := scope(database.GetDB().
		Preload("Author").
		Preload("Tags", withTags).
		Order("created_at desc").
		Order("id desc")).
		Find(&posts).Error
	if err != nil {
		return nil, common.Server(err, "list posts")
	}
	return s.views(posts)
}

// List returns one page of posts, newest first. Pages start at 1.
func (s *PostService) List(page int) (*entity.PostPage, error) {
	if page < 1 {
		page = 1
	}
	var total int64
	if err := database.GetDB().Model(&model.Post{}).Count(&total).Error; err != nil {
		return nil, common.Server(err, "count posts")
	}
	posts, err := s.find(func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * PostsPerPage).Limit(PostsPerPage)
	})
	if err != nil {
		return nil, err
	}
	return &entity.PostPage{
		Posts:      posts,
		Page:       page,
		TotalPages: int(math.Ceil(float64(total) / PostsPerPage)),
		Total:      total,
	}, nil
}

func (s *PostService) ByTag(tag string) ([]entity.PostView, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return s.find(func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN (?)", database.GetDB().Model(&model.PostTag{}).Select("post_id").Where("tag = ?", tag))
	})
}

// Search matches query case-insensitively against title and content, or exactly against a tag.
func (s *PostService) Search(query string) ([]entity.PostView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entity.PostView{}, nil
	}
	ids, err := postsContaining(query)
	if err != nil {
		return nil, err
	}
	tagged := database.GetDB().Model(&model.PostTag{}).Select("post_id").Where("tag = ?", strings.ToLower(query))
	return s.find(func(db *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return db.Where("id IN (?)", tagged)
		}
		return db.Where("id IN ? OR id IN (?)", ids, tagged)
	})
}

// postsContaining compares with Unicode case folding in Go; sqlite's LOWER() only folds ASCII.
func postsContaining(query string) ([]int, error) {
	fold := cases.Fold()
	needle := fold.String(query)

	rows, err := database.GetDB().Model(&model.Post{}).Select("id, title, content").Rows()
	if err != nil {
		return nil, common.Server(err, "search posts")
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var (
			id             int
			title, content string
		)
		if err := rows.Scan(&id, &title, &content); err != nil {
			return nil, common.Server(err, "search posts")
		}
		if strings.Contains(fold.String(title), needle) || strings.Contains(fold.String(content), needle) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, common.Server(err, "search posts")
	}
	return ids, nil
}

func (s *PostService) ByAuthor(userId int) ([]entity.PostView, error) {
	return s.find(func(db *gorm.DB) *gorm.DB {
		return db.Where("author_id = ?", userId)
	})
}

// Dashboard returns the signed-in user's profile and posts.
func (s *PostService) Dashboard(p *entity.Principal) (*entity.Dashboard, error) {
	if p == nil {
		return nil, common.Auth("Login required.")
	}
	user, err := s.userService.GetById(p.UserId)
	if err != nil {
		return nil, err
	}
	posts, err := s.ByAuthor(user.Id)
	if err != nil {
		return nil, err
	}
	return &entity.Dashboard{User: toAuthorView(user), Email: user.Email, Posts: posts}, nil
}

type countRow struct {
	PostId int
	N      int64
}

func countBy(m any, ids []int) (map[int]int64, error) {
	var rows []countRow
	err := database.GetDB().Model(m).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(rows))
	for _, r := range rows {
		out[r.PostId] = r.N
	}
	return out, nil
}

// views attaches like and comment counts with one grouped query each.
func (s *PostService) views(posts []model.Post) ([]entity.PostView, error) {
	out := make([]entity.PostView, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.Id)
	}
	likes, err := countBy(&model.PostLike{}, ids)
	if err != nil {
		return nil, common.Server(err, "count likes")
	}
	comments, err := countBy(&model.Comment{}, ids)
	if err != nil {
		return nil, common.Server(err, "count comments")
	}
	for i := range posts {
		p := &posts[i]
		out = append(out, entity.PostView{
			Id:        p.Id,
			Title:     p.Title,
			Slug:      p.Slug,
			Content:   p.Content,
			Author:    toAuthorView(&p.Author),
			Tags:      p.TagNames(),
			Image:     p.Image,
			Likes:     likes[p.Id],
			Comments:  comments[p.Id],
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}
