// Package model contains the gorm models persisted by the blog.
package model

import "time"

type Post struct {
	Id        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title" gorm:"size:100;not null"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	AuthorId  int       `json:"authorId" gorm:"index;not null"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorId;references:Id;constraint:OnDelete:RESTRICT"`
	Image     string    `json:"image"`
	Tags      []PostTag `json:"tags" gorm:"foreignKey:PostId;references:Id;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TagNames returns the tags in their stored order.
func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Tag)
	}
	return names
}

// PostTag keeps a post's tags as an ordered list.
type PostTag struct {
	Id       int    `json:"-" gorm:"primaryKey;autoIncrement"`
	PostId   int    `json:"-" gorm:"uniqueIndex:idx_post_tag;not null"`
	Tag      string `json:"tag" gorm:"uniqueIndex:idx_post_tag;index;not null"`
	Position int    `json:"-" gorm:"not null"`
}

// PostLike is one member of a post's like set. The composite unique index makes a user
// appear at most once per post.
type PostLike struct {
	Id        int       `json:"-" gorm:"primaryKey;autoIncrement"`
	PostId    int       `json:"postId" gorm:"uniqueIndex:idx_post_user;not null"`
	UserId    int       `json:"userId" gorm:"uniqueIndex:idx_post_user;index;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is append-only. Order within a post follows Id.
type Comment struct {
	Id        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	AuthorId  int       `json:"authorId" gorm:"index;not null"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorId;references:Id"`
	PostId    int       `json:"postId" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
}
