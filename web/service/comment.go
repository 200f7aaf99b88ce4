package service

import (
	"strings"

	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/database/model"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/entity"
)

// CommentService appends comments to posts. Comments are never edited or removed on their own.
type CommentService struct{}

func (s *CommentService) AddComment(p *entity.Principal, postSlug, content string) (*model.Comment, error) {
	if p == nil {
		return nil, common.Auth("Login required.")
	}
	var post model.Post
	err := database.GetDB().Select("id").Where("slug = ?", postSlug).First(&post).Error
	if database.IsNotFound(err) {
		return nil, common.NotFound("Post not found.")
	}
	if err != nil {
		return nil, common.Server(err, "load post")
	}
	in := commentInput{Content: strings.TrimSpace(content)}
	if err := check(in); err != nil {
		return nil, err
	}

	comment := &model.Comment{Content: in.Content, AuthorId: p.UserId, PostId: post.Id}
	if err := database.GetDB().Omit("Author").Create(comment).Error; err != nil {
		return nil, common.Server(err, "create comment")
	}
	return comment, nil
}

// ListByPost returns the comments of a post in the order they were added.
func (s *CommentService) ListByPost(postId int) ([]model.Comment, error) {
	var comments []model.Comment
	err := database.GetDB().
		Preload("Author").
		Where("post_id = ?", postId).
		Order("id asc").
		Find(&comments).Error
	if err != nil {
		return nil, common.Server(err, "list comments")
	}
	return comments, nil
}
