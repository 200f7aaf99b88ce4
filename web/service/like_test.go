package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/postscript-blog/postscript/database"
	"github.com/postscript-blog/postscript/database/model"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeScenario(t *testing.T) {
	setup(t)
	a := signup(t, "author_a")
	b := signup(t, "reader_b")
	slug := createPost(t, a, "My First Post")
	require.Equal(t, "my-first-post", slug)

	s := LikeService{}
	res, err := s.ToggleLike(b, slug)
	require.NoError(t, err)
	assert.Equal(t, &entity.LikeResult{Success: true, Liked: true, Likes: 1}, res)

	res, err = s.ToggleLike(b, slug)
	require.NoError(t, err)
	assert.Equal(t, &entity.LikeResult{Success: true, Liked: false, Likes: 0}, res)
}

func TestToggleTwiceRestoresState(t *testing.T) {
	setup(t)
	a := signup(t, "author_a")
	b := signup(t, "reader_b")
	c := signup(t, "reader_c")
	slug := createPost(t, a, "Round trip")
	s := LikeService{}

	_, err := s.ToggleLike(c, slug)
	require.NoError(t, err)

	for _, startLiked := range []bool{false, true} {
		if startLiked {
			_, err := s.ToggleLike(b, slug)
			require.NoError(t, err)
		}
		post, err := (&PostService{}).GetBySlug(slug)
		require.NoError(t, err)
		before, err := s.Count(post.Id)
		require.NoError(t, err)
		beforeLiked, err := s.LikedBy(post.Id, b.UserId)
		require.NoError(t, err)

		_, err = s.ToggleLike(b, slug)
		require.NoError(t, err)
		res, err := s.ToggleLike(b, slug)
		require.NoError(t, err)

		assert.Equal(t, before, res.Likes)
		assert.Equal(t, beforeLiked, res.Liked)
	}
}

func TestLikeCountAcrossUsers(t *testing.T) {
	setup(t)
	a := signup(t, "author_a")
	slug := createPost(t, a, "Popular")
	s := LikeService{}

	const n = 5
	users := make([]*entity.Principal, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, signup(t, fmt.Sprintf("reader_%d", i)))
	}
	var last *entity.LikeResult
	for _, u := range users {
		res, err := s.ToggleLike(u, slug)
		require.NoError(t, err)
		assert.True(t, res.Liked)
		last = res
	}
	assert.Equal(t, int64(n), last.Likes)

	for _, u := range users {
		res, err := s.ToggleLike(u, slug)
		require.NoError(t, err)
		assert.False(t, res.Liked)
		last = res
	}
	assert.Zero(t, last.Likes)
}

func TestConcurrentTogglesNeverDuplicate(t *testing.T) {
	setup(t)
	a := signup(t, "author_a")
	b := signup(t, "reader_b")
	slug := createPost(t, a, "Contended")
	s := LikeService{}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ToggleLike(b, slug)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int64
	require.NoError(t, database.GetDB().Model(&model.PostLike{}).Where("user_id = ?", b.UserId).Count(&rows).Error)
	// ten toggles leave the user out of the set
	assert.Zero(t, rows)
}

func TestToggleLikeErrors(t *testing.T) {
	setup(t)
	a := signup(t, "author_a")
	slug := createPost(t, a, "Errors")
	s := LikeService{}

	_, err := s.ToggleLike(nil, slug)
	assert.ErrorIs(t, err, common.ErrAuth)

	_, err = s.ToggleLike(a, "missing-post")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.ToggleLike(&entity.Principal{UserId: 999, Username: "ghost"}, slug)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestToggleLikeDropsDanglingEntries(t *testing.T) {
	setup(t)
	a := signup(t, "author_a")
	b := signup(t, "reader_b")
	slug := createPost(t, a, "Legacy data")
	post, err := (&PostService{}).GetBySlug(slug)
	require.NoError(t, err)

	db := database.GetDB()
	require.NoError(t, db.Create(&model.PostLike{PostId: post.Id, UserId: 0}).Error)
	require.NoError(t, db.Create(&model.PostLike{PostId: post.Id, UserId: 4242}).Error)

	res, err := (&LikeService{}).ToggleLike(b, slug)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, int64(1), res.Likes)
}
