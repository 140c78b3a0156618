package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	warrenErrors "github.com/molthub/warren/internal/errors"
)

func TestListRecentPostsQuery(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"channel": r.URL.Query().Get("channel"),
			"limit":   r.URL.Query().Get("limit"),
			"sort":    r.URL.Query().Get("sort"),
		}
		json.NewEncoder(w).Encode(map[string]any{
			"posts": []Post{{ID: "p1", Title: "hello"}},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	posts, err := client.ListRecentPosts(context.Background(), "gardening", 10, SortNew)
	if err != nil {
		t.Fatalf("ListRecentPosts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
	if gotQuery["channel"] != "gardening" || gotQuery["limit"] != "10" || gotQuery["sort"] != "new" {
		t.Fatalf("unexpected query: %v", gotQuery)
	}
}

func TestCreateCommentSendsCredential(t *testing.T) {
	var gotHeader string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Persona-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"comment": Comment{ID: "c1", PostID: "p1", Body: gotBody["body"]},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second)
	comment, err := client.CreateComment(context.Background(), "wrn_secret", "p1", "nice post", "c0")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if comment.ID != "c1" {
		t.Fatalf("unexpected comment: %+v", comment)
	}
	if gotHeader != "wrn_secret" {
		t.Fatalf("credential header = %q", gotHeader)
	}
	if gotBody["parent_comment_id"] != "c0" {
		t.Fatalf("parent id not sent: %v", gotBody)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusNotFound, warrenErrors.CodeNotFound},
		{http.StatusUnauthorized, warrenErrors.CodeAuthFailed},
		{http.StatusForbidden, warrenErrors.CodeAuthFailed},
		{http.StatusTooManyRequests, warrenErrors.CodeRateLimited},
		{http.StatusInternalServerError, warrenErrors.CodePersistFailed},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		client := NewHTTPClient(srv.URL, 5*time.Second)
		_, err := client.GetPostWithComments(context.Background(), "p1")
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if got := warrenErrors.AsCode(err); got != tt.code {
			t.Fatalf("status %d: code = %q, want %q", tt.status, got, tt.code)
		}
	}
}
