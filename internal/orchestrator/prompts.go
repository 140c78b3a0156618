package orchestrator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/molthub/warren/internal/config"
	warrenErrors "github.com/molthub/warren/internal/errors"
	"github.com/molthub/warren/internal/memory"
	"github.com/molthub/warren/internal/mention"
	"github.com/molthub/warren/internal/persona"
	"github.com/molthub/warren/internal/platform"
)

// archetypeInstructions steer the short comments of the secondary pool.
var archetypeInstructions = map[string]string{
	"supporter":  "Agree warmly with the post and add one encouraging observation.",
	"questioner": "Ask one short, genuine clarifying question about the post.",
	"challenger": "Politely push back on the post's main claim with one counterpoint.",
	"chatter":    "Riff casually off a small detail of the post, keep it light.",
	"reactor":    "React with a short, emotional one-or-two-sentence response.",
}

// personaSystem builds the system framing for a persona.
func personaSystem(p *persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %q, an autonomous member of a discussion platform.\n", p.Name)
	if p.Personality != "" {
		fmt.Fprintf(&b, "Character: %s\n", p.Personality)
	}
	if p.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", p.Tone)
	}
	if len(p.ForbiddenPhrases) > 0 {
		fmt.Fprintf(&b, "Never use these phrases: %s\n", strings.Join(p.ForbiddenPhrases, ", "))
	}
	b.WriteString("Stay in character. Write as yourself, never as an assistant.")
	return b.String()
}

// memoryContext renders retrieved memories as prompt context.
func memoryContext(records []*memory.Record) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Things you remember:\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", rec.Type, rec.Topic, rec.Content)
	}
	return b.String()
}

// newPostPrompt asks for a fresh post as JSON.
func newPostPrompt(channel config.ChannelConfig, recentTitles []string, memories []*memory.Record) string {
	var b strings.Builder

	if channel.Context != "" {
		fmt.Fprintf(&b, "Channel %q: %s\n\n", channel.Name, channel.Context)
		b.WriteString("Write a post that fits this channel's theme.\n")
	} else {
		b.WriteString("Write a post on a topic of your choosing.\n")
	}

	if len(recentTitles) > 0 {
		b.WriteString("\nRecent posts in the channel (do not repeat these topics):\n")
		for _, title := range recentTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}

	if mc := memoryContext(memories); mc != "" {
		b.WriteString("\n" + mc)
	}

	b.WriteString(`
Rules:
- Title under 80 characters, catchy.
- Body between 100 and 300 words.
- Pick an angle likely to start a discussion.
- Respond with exactly this JSON and nothing else:

{"title": "...", "body": "..."}`)

	return b.String()
}

// commentPrompt asks for a comment on an existing thread.
func commentPrompt(detail *platform.PostDetail, channelContext string, memories []*memory.Record, extraInstruction string) string {
	var b strings.Builder

	if channelContext != "" {
		fmt.Fprintf(&b, "Channel theme: %s\n\n", channelContext)
	}

	fmt.Fprintf(&b, "Post title: %s\n", detail.Title)
	body := detail.Body
	if body == "" {
		body = "(no body)"
	}
	fmt.Fprintf(&b, "Post body:\n%s\n", body)

	if len(detail.Comments) > 0 {
		b.WriteString("\nExisting comments:\n")
		for i, c := range detail.Comments {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "%s: %s\n", c.Author.Name, c.Body)
		}
	}

	if mc := memoryContext(memories); mc != "" {
		b.WriteString("\n" + mc)
	}

	b.WriteString("\nWrite one comment that moves the discussion forward. Keep it under 120 words. Respond with the comment text only.")

	if extraInstruction != "" {
		b.WriteString("\n" + extraInstruction)
	}

	return b.String()
}

// rivalryInstruction forces a rebuttal of the rival's comment.
func rivalryInstruction(rivalName, rivalComment string) string {
	return fmt.Sprintf(
		"Your long-standing rival %s commented: %q\nRebut their point directly. Stay civil but do not concede.",
		rivalName, rivalComment)
}

// mentionReplyPrompt asks for a direct reply to a mention.
func mentionReplyPrompt(ev mention.Event, memories []*memory.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "On the post %q, %s addressed you directly:\n%s\n",
		ev.Post.Title, ev.CommenterName, ev.Comment.Body)
	if mc := memoryContext(memories); mc != "" {
		b.WriteString("\n" + mc)
	}
	b.WriteString("\nWrite a reply to them. Keep it under 100 words. Respond with the reply text only.")
	return b.String()
}

// secondaryCommentPrompt asks for a short archetype-flavored comment.
func secondaryCommentPrompt(detail *platform.PostDetail, archetype string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Post title: %s\n", detail.Title)
	if detail.Body != "" {
		fmt.Fprintf(&b, "Post body:\n%s\n", detail.Body)
	}
	instruction := archetypeInstructions[archetype]
	if instruction == "" {
		instruction = "Write a brief, friendly comment."
	}
	fmt.Fprintf(&b, "\n%s Keep it under 40 words. Respond with the comment text only.", instruction)
	return b.String()
}

var jsonBlockPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parsePostJSON extracts the title/body JSON a new-post generation must
// produce. Providers tend to wrap the JSON in prose or fences, so the
// first brace-delimited block is taken.
func parsePostJSON(text string) (title, body string, err error) {
	match := jsonBlockPattern.FindString(text)
	if match == "" {
		return "", "", warrenErrors.New(warrenErrors.CodeGenerationFailed, "no JSON object in generated post")
	}

	var parsed struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return "", "", warrenErrors.Wrap(warrenErrors.CodeGenerationFailed, "unparseable generated post", err)
	}

	parsed.Title = strings.TrimSpace(parsed.Title)
	parsed.Body = strings.TrimSpace(parsed.Body)
	if parsed.Title == "" || parsed.Body == "" {
		return "", "", warrenErrors.New(warrenErrors.CodeGenerationFailed, "generated post missing title or body")
	}

	return parsed.Title, parsed.Body, nil
}
