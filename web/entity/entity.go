// Package entity defines the values exchanged between services, controllers and the browser.
package entity

import "time"

// Msg is the standard JSON envelope.
type Msg struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Obj     any    `json:"obj"`
}

// Principal identifies the authenticated caller. It is read from the session once per
// request and passed explicitly into every operation that needs it.
type Principal struct {
	UserId   int    `json:"userId"`
	Username string `json:"username"`
}

// LikeResult is the response of a like toggle.
type LikeResult struct {
	Success bool  `json:"success"`
	Liked   bool  `json:"liked"`
	Likes   int64 `json:"likes"`
}

// LikeEvent is what other tabs and windows receive after a toggle. It carries the count
// only; whether the post is liked depends on who is looking.
type LikeEvent struct {
	Slug  string `json:"slug"`
	Likes int64  `json:"likes"`
}

type AuthorView struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type PostView struct {
	Id        int        `json:"id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Content   string     `json:"content"`
	Author    AuthorView `json:"author"`
	Tags      []string   `json:"tags"`
	Image     string     `json:"image,omitempty"`
	Likes     int64      `json:"likes"`
	Comments  int64      `json:"comments"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CommentView struct {
	Id        int        `json:"id"`
	Content   string     `json:"content"`
	Author    AuthorView `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PostDetail is a single post page. Liked is relative to the viewer, false for anonymous readers.
type PostDetail struct {
	PostView
	Liked        bool          `json:"liked"`
	CommentsList []CommentView `json:"commentsList"`
}

type PostPage struct {
	Posts      []PostView `json:"posts"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
	Total      int64      `json:"total"`
}

// Dashboard is the signed-in user's own profile and posts.
type Dashboard struct {
	User  AuthorView `json:"user"`
	Email string     `json:"email"`
	Posts []PostView `json:"posts"`
}
