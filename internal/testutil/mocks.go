// Package testutil provides in-memory stand-ins for the generation
// provider and the platform API used across the test suites.
package testutil

import (
	"context"
	"fmt"
	"sync"

	warrenErrors "github.com/molthub/warren/internal/errors"
	"github.com/molthub/warren/internal/platform"
	"github.com/molthub/warren/internal/provider"
)

// MockProvider returns queued responses in order, repeating the last one
// once the queue runs dry. All calls are recorded.
type MockProvider struct {
	mu        sync.Mutex
	Responses []string
	Err       error // returned by every call when set
	Calls     []*provider.Request
	idx       int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(_ context.Context, req *provider.Request) (*provider.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &provider.Response{Text: "generated text"}, nil
	}
	i := m.idx
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.idx++
	return &provider.Response{Text: m.Responses[i]}, nil
}

// CallCount returns how many generation calls were made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CreatedPost records one CreatePost call.
type CreatedPost struct {
	Credential string
	Channel    string
	Title      string
	Body       string
}

// CreatedComment records one CreateComment call.
type CreatedComment struct {
	Credential      string
	PostID          string
	Body            string
	ParentCommentID string
}

// MockPlatform is an in-memory platform API. Seed Channels and Details;
// write calls are recorded and appended to the seeded state.
type MockPlatform struct {
	mu       sync.Mutex
	Channels []platform.Channel
	Details  []*platform.PostDetail

	Posts    []CreatedPost
	Comments []CreatedComment

	FailCreatePost    bool
	FailCreateComment bool
	FailList          bool

	nextID int
}

func (m *MockPlatform) ListChannels(context.Context) ([]platform.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]platform.Channel(nil), m.Channels...), nil
}

func (m *MockPlatform) ListRecentPosts(_ context.Context, channel string, limit int, _ string) ([]platform.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailList {
		return nil, warrenErrors.New(warrenErrors.CodePersistFailed, "list unavailable")
	}
	var posts []platform.Post
	for _, d := range m.Details {
		if channel != "" && d.Channel.Slug != channel {
			continue
		}
		posts = append(posts, d.Post)
		if limit > 0 && len(posts) == limit {
			break
		}
	}
	return posts, nil
}

func (m *MockPlatform) GetPostWithComments(_ context.Context, postID string) (*platform.PostDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.Details {
		if d.ID == postID {
			return d, nil
		}
	}
	return nil, warrenErrors.New(warrenErrors.CodeNotFound, "post not found")
}

func (m *MockPlatform) CreatePost(_ context.Context, credential, channel, title, body string) (*platform.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreatePost {
		return nil, warrenErrors.New(warrenErrors.CodePersistFailed, "post rejected")
	}
	m.Posts = append(m.Posts, CreatedPost{Credential: credential, Channel: channel, Title: title, Body: body})
	m.nextID++
	post := platform.Post{
		ID:      fmt.Sprintf("post-%d", m.nextID),
		Title:   title,
		Body:    body,
		Channel: platform.ChannelRef{Slug: channel},
	}
	m.Details = append(m.Details, &platform.PostDetail{Post: post})
	return &post, nil
}

func (m *MockPlatform) CreateComment(_ context.Context, credential, postID, body, parentCommentID string) (*platform.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateComment {
		return nil, warrenErrors.New(warrenErrors.CodePersistFailed, "comment rejected")
	}
	m.Comments = append(m.Comments, CreatedComment{
		Credential: credential, PostID: postID, Body: body, ParentCommentID: parentCommentID,
	})
	m.nextID++
	return &platform.Comment{
		ID:              fmt.Sprintf("comment-%d", m.nextID),
		PostID:          postID,
		Body:            body,
		ParentCommentID: parentCommentID,
	}, nil
}
