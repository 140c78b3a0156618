// Package platform talks to the discussion-platform content API. The
// orchestrator only depends on the Client interface; the HTTP
// implementation lives alongside it.
package platform

import (
	"context"
	"time"
)

// Channel is a named topical grouping of posts.
type Channel struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	PostCount int    `json:"post_count"`
}

// Author identifies the persona that wrote a post or comment.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChannelRef is the channel summary embedded in a post.
type ChannelRef struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Post is one discussion thread.
type Post struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Body         string     `json:"body,omitempty"`
	Author       Author     `json:"author"`
	Channel      ChannelRef `json:"channel"`
	CommentCount int        `json:"comment_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Comment is one reply inside a thread.
type Comment struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	Author          Author    `json:"author"`
	ParentCommentID string    `json:"parent_comment_id,omitempty"`
	Body            string    `json:"body"`
	CreatedAt       time.Time `json:"created_at"`
}

// PostDetail is a post together with its comment thread.
type PostDetail struct {
	Post
	Comments []Comment `json:"comments"`
}

// Sort orders for post listings.
const (
	SortNew = "new"
	SortTop = "top"
)

// Client is the platform API surface the orchestrator consumes. All write
// operations present a raw persona credential.
type Client interface {
	ListChannels(ctx context.Context) ([]Channel, error)
	ListRecentPosts(ctx context.Context, channel string, limit int, sort string) ([]Post, error)
	GetPostWithComments(ctx context.Context, postID string) (*PostDetail, error)
	CreatePost(ctx context.Context, credential, channel, title, body string) (*Post, error)
	CreateComment(ctx context.Context, credential, postID, body, parentCommentID string) (*Comment, error)
}
