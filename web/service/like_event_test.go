package service

import (
	"context"
	"testing"
	"time"

	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/cache"
	"github.com/postscript-blog/postscript/web/entity"
	"github.com/postscript-blog/postscript/web/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeEventPublish(t *testing.T) {
	require.NoError(t, cache.InitRedis(""))
	t.Cleanup(func() { _ = cache.Close() })

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	client := websocket.NewClient("tab-1", websocket.MessageTypeLike)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	s := NewLikeEventService(hub)
	_, err := s.Last(context.Background(), "first-post")
	assert.ErrorIs(t, err, common.ErrNotFound)

	s.Publish(context.Background(), entity.LikeEvent{Slug: "first-post", Likes: 3})

	select {
	case msg := <-client.Send:
		assert.Contains(t, string(msg), `"post-likes"`)
		assert.Contains(t, string(msg), `"first-post"`)
		assert.NotContains(t, string(msg), `"liked"`)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	ev, err := s.Last(context.Background(), "first-post")
	require.NoError(t, err)
	assert.Equal(t, entity.LikeEvent{Slug: "first-post", Likes: 3}, *ev)

	s.Forget(context.Background(), "first-post")
	_, err = s.Last(context.Background(), "first-post")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLikeEventWithoutHub(t *testing.T) {
	require.NoError(t, cache.InitRedis(""))
	t.Cleanup(func() { _ = cache.Close() })

	s := NewLikeEventService(nil)
	s.Publish(context.Background(), entity.LikeEvent{Slug: "p", Likes: 1})
	ev, err := s.Last(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.Likes)
}
