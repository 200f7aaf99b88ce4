package service

import (
	"strings"
	"testing"

	"github.com/postscript-blog/postscript/util/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCommentAppends(t *testing.T) {
	setup(t)
	a := signup(t, "author_a")
	b := signup(t, "reader_b")
	slug := createPost(t, a, "Discuss")
	post, err := (&PostService{}).GetBySlug(slug)
	require.NoError(t, err)
	s := CommentService{}

	_, err = s.AddComment(a, slug, "first")
	require.NoError(t, err)
	_, err = s.AddComment(b, slug, "second")
	require.NoError(t, err)
	before, err := s.ListByPost(post.Id)
	require.NoError(t, err)

	added, err := s.AddComment(b, slug, "  third  ")
	require.NoError(t, err)
	assert.Equal(t, "third", added.Content)

	after, err := s.ListByPost(post.Id)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, added.Id, after[len(after)-1].Id)
	assert.Equal(t, "reader_b", after[len(after)-1].Author.Username)
	for i := range before {
		assert.Equal(t, before[i].Id, after[i].Id)
		assert.Equal(t, before[i].Content, after[i].Content)
	}
}

func TestAddCommentErrors(t *testing.T) {
	setup(t)
	a := signup(t, "author_a")
	slug := createPost(t, a, "Discuss")
	s := CommentService{}

	_, err := s.AddComment(nil, slug, "hi")
	assert.ErrorIs(t, err, common.ErrAuth)

	_, err = s.AddComment(a, "nope", "hi")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.AddComment(a, slug, "   ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.AddComment(a, slug, strings.Repeat("x", 1001))
	assert.ErrorIs(t, err, common.ErrValidation)
}
