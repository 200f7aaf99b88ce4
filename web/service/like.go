package service

import (
	"errors"

	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/database/model"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeService toggles membership of a user in a post's like set. The set is the
// post_likes table keyed by (post_id, user_id), so membership is always decided on
// canonical ids and duplicates cannot exist.
type LikeService struct{}

// ToggleLike adds p to the post's like set if absent, removes it if present, and returns
// the new state and set size. The whole toggle runs in one transaction.
func (s *LikeService) ToggleLike(p *entity.Principal, postSlug string) (*entity.LikeResult, error) {
	if p == nil {
		return nil, common.Auth("Login required.")
	}

	result := &entity.LikeResult{Success: true}
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Select("id").Where("slug = ?", postSlug).First(&post).Error; err != nil {
			if database.IsNotFound(err) {
				return common.NotFound("Post not found.")
			}
			return err
		}
		var user model.User
		if err := tx.Select("id").Where("id = ?", p.UserId).First(&user).Error; err != nil {
			if database.IsNotFound(err) {
				return common.NotFound("User not found.")
			}
			return err
		}

		// Entries whose user no longer resolves are dropped before deciding membership.
		err := tx.Where("post_id = ? AND (user_id <= 0 OR user_id NOT IN (?))",
			post.Id, tx.Model(&model.User{}).Select("id")).
			Delete(&model.PostLike{}).Error
		if err != nil {
			return err
		}

		removed := tx.Where("post_id = ? AND user_id = ?", post.Id, user.Id).Delete(&model.PostLike{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected == 0 {
			like := model.PostLike{PostId: post.Id, UserId: user.Id}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			result.Liked = true
		}
		return tx.Model(&model.PostLike{}).Where("post_id = ?", post.Id).Count(&result.Likes).Error
	})
	if err != nil {
		var ke *common.KindError
		if errors.As(err, &ke) {
			return nil, err
		}
		return nil, common.Server(err, "toggle like")
	}
	return result, nil
}

func (s *LikeService) Count(postId int) (int64, error) {
	var n int64
	err := database.GetDB().Model(&model.PostLike{}).Where("post_id = ?", postId).Count(&n).Error
	if err != nil {
		return 0, common.Server(err, "count likes")
	}
	return n, nil
}

func (s *LikeService) LikedBy(postId, userId int) (bool, error) {
	var n int64
	err := database.GetDB().Model(&model.PostLike{}).
		Where("post_id = ? AND user_id = ?", postId, userId).
		Count(&n).Error
	if err != nil {
		return false, common.Server(err, "load like state")
	}
	return n > 0, nil
}
