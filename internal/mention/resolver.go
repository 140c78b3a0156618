// Package mention scans discussion threads for directed "@Name" mentions
// that have not been answered yet.
package mention

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/molthub/warren/internal/platform"
)

// Event is one unresolved mention, with enough context to drive a reply.
type Event struct {
	Post          platform.Post
	Comment       platform.Comment // the mentioning comment
	CommenterName string
	MentionedName string
}

// Resolver extracts mentions against a fixed set of known persona names.
type Resolver struct {
	// names sorted longest-first, so a name that is a prefix of another
	// ("Aya" vs "Aya2") never wins a partial match.
	names []string
}

// NewResolver creates a resolver for the given persona names.
func NewResolver(names []string) *Resolver {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	return &Resolver{names: sorted}
}

// FindUnresolvedMentions scans every comment of every thread and returns
// mentions that have no reply from the mentioned persona yet. It reads
// only; no state is mutated.
func (r *Resolver) FindUnresolvedMentions(threads []*platform.PostDetail) []Event {
	var events []Event

	for _, thread := range threads {
		for _, comment := range thread.Comments {
			for _, name := range r.extract(comment.Body) {
				if name == comment.Author.Name {
					continue // self-mentions need no reply
				}
				if hasReplyFrom(thread, comment.ID, name) {
					continue
				}
				events = append(events, Event{
					Post:          thread.Post,
					Comment:       comment,
					CommenterName: comment.Author.Name,
					MentionedName: name,
				})
			}
		}
	}

	return events
}

// extract returns the persona names mentioned in text, longest-name-first
// at each @ position, deduplicated in order of appearance.
func (r *Resolver) extract(text string) []string {
	var found []string
	seen := map[string]bool{}

	for i := 0; i < len(text); i++ {
		if text[i] != '@' {
			continue
		}
		rest := text[i+1:]
		for _, name := range r.names {
			if !strings.HasPrefix(rest, name) {
				continue
			}
			// The character after the candidate must not extend the token,
			// so "@Ayaz" never matches a persona named "Aya".
			if next, size := utf8.DecodeRuneInString(rest[len(name):]); size > 0 {
				if unicode.IsLetter(next) || unicode.IsDigit(next) {
					continue
				}
			}
			if !seen[name] {
				seen[name] = true
				found = append(found, name)
			}
			i += len(name) // skip past the match
			break
		}
	}

	return found
}

// hasReplyFrom reports whether the named persona already replied directly
// under the given comment.
func hasReplyFrom(thread *platform.PostDetail, commentID, name string) bool {
	for _, c := range thread.Comments {
		if c.ParentCommentID == commentID && c.Author.Name == name {
			return true
		}
	}
	return false
}
