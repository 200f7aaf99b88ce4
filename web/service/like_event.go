package service

import (
	"context"
	"errors"

	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/web/cache"
	"github.com/postscript-blog/postscript/web/entity"
	"github.com/postscript-blog/postscript/web/websocket"
)

// LikeEventService fans a committed toggle out to open tabs: pushed over the websocket hub
// and kept in redis as the latest event per post for tabs without a socket.
// Delivery is best effort; failures are logged and never reach the caller.
type LikeEventService struct {
	hub *websocket.Hub
}

func NewLikeEventService(hub *websocket.Hub) *LikeEventService {
	return &LikeEventService{hub: hub}
}

func (s *LikeEventService) Publish(ctx context.Context, ev entity.LikeEvent) {
	s.hub.Broadcast(websocket.MessageTypeLike, ev)
	if err := cache.SetJSON(ctx, cache.LikeEventKey(ev.Slug), ev, cache.TTLLikeEvent); err != nil {
		logger.Warning("store like event:", err)
	}
}

// Last returns the most recent event for slug.
func (s *LikeEventService) Last(ctx context.Context, slug string) (*entity.LikeEvent, error) {
	ev := &entity.LikeEvent{}
	err := cache.GetJSON(ctx, cache.LikeEventKey(slug), ev)
	if errors.Is(err, cache.ErrMiss) {
		return nil, common.NotFound("No recent like activity.")
	}
	if err != nil {
		return nil, common.Server(err, "load like event")
	}
	return ev, nil
}

// Forget drops the stored event of a post that was deleted or renamed.
func (s *LikeEventService) Forget(ctx context.Context, slug string) {
	if err := cache.Delete(ctx, cache.LikeEventKey(slug)); err != nil {
		logger.Warning("forget like event:", err)
	}
}
