// Package orchestrator is the tick state machine. Each Tick call is an
// independent, stateless invocation that performs at most one platform
// action: reply to a pending mention, create a post, or comment on a
// recent thread. Overlapping ticks are safe because every shared counter
// lives behind a storage-level atomic operation.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/molthub/warren/internal/config"
	warrenErrors "github.com/molthub/warren/internal/errors"
	"github.com/molthub/warren/internal/memory"
	"github.com/molthub/warren/internal/mention"
	"github.com/molthub/warren/internal/persona"
	"github.com/molthub/warren/internal/platform"
	"github.com/molthub/warren/internal/provider"
	"github.com/molthub/warren/internal/ratelimit"
	"github.com/molthub/warren/internal/telemetry"
)

// Action names for tick outcomes.
const (
	ActionNone         = "none"
	ActionPost         = "post"
	ActionComment      = "comment"
	ActionMentionReply = "mention_reply"
)

// Status values for tick outcomes.
const (
	StatusCompleted   = "completed"
	StatusIdle        = "idle"
	StatusAborted     = "aborted"
	StatusRateLimited = "rate_limited"
)

// Outcome is the structured result of one tick. Failures inside a tick
// are converted into an Outcome rather than propagated; only setup
// errors (config, store) surface as Go errors.
type Outcome struct {
	Action    string `json:"action"`
	Status    string `json:"status"`
	Actor     string `json:"actor,omitempty"`
	Detail    string `json:"detail,omitempty"`
	PostID    string `json:"post_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Orchestrator composes the collaborators for tick execution. Construct
// once at startup; all fields are immutable afterwards, so concurrent
// Tick calls need no locking here.
type Orchestrator struct {
	cfg      config.HeartbeatConfig
	channels []config.ChannelConfig
	creds    map[string]string // persona name -> raw credential

	gen      provider.Provider
	plat     platform.Client
	repo     *persona.Repo
	auth     *persona.Authenticator
	limiter  *ratelimit.Limiter
	memories *memory.Store
	mentions *mention.Resolver

	rng     Rand
	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	temperature float64
	maxTokens   int

	wg sync.WaitGroup
}

// Options carries the orchestrator's collaborators.
type Options struct {
	Heartbeat   config.HeartbeatConfig
	Roster      *config.Roster
	Provider    provider.Provider
	Platform    platform.Client
	Repo        *persona.Repo
	Auth        *persona.Authenticator
	Limiter     *ratelimit.Limiter
	Memories    *memory.Store
	Rand        Rand
	Logger      *telemetry.Logger
	Metrics     *telemetry.Metrics
	Temperature float64
	MaxTokens   int
}

// New wires an orchestrator from its collaborators. The roster supplies
// the known persona names for mention scanning and the raw credentials
// presented on platform writes.
func New(opts Options) *Orchestrator {
	creds := make(map[string]string)
	var names []string
	for _, p := range opts.Roster.Primaries {
		names = append(names, p.Name)
		if p.Credential != "" {
			creds[p.Name] = p.Credential
		}
	}
	for _, s := range opts.Roster.Secondaries {
		names = append(names, s.Name)
		if s.Credential != "" {
			creds[s.Name] = s.Credential
		}
	}

	rng := opts.Rand
	if rng == nil {
		rng = NewRand(opts.Heartbeat.Seed)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}

	return &Orchestrator{
		cfg:         opts.Heartbeat,
		channels:    opts.Roster.Channels,
		creds:       creds,
		gen:         opts.Provider,
		plat:        opts.Platform,
		repo:        opts.Repo,
		auth:        opts.Auth,
		limiter:     opts.Limiter,
		memories:    opts.Memories,
		mentions:    mention.NewResolver(names),
		rng:         rng,
		logger:      opts.Logger,
		metrics:     metrics,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// Metrics exposes the tick counters for the serve endpoint.
func (o *Orchestrator) Metrics() *telemetry.Metrics {
	return o.metrics
}

// Wait blocks until in-flight background memory writes have settled.
// Call before process exit so fire-and-forget records are not dropped.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
	if o.memories != nil {
		o.memories.Wait()
	}
}

// Tick runs one heartbeat. It returns an error only when the tick could
// not even survey the platform; every downstream failure becomes a
// structured Outcome.
func (o *Orchestrator) Tick(ctx context.Context) (*Outcome, error) {
	o.metrics.IncTicksStarted()

	if err := o.limiter.PurgeStale(ctx); err != nil {
		o.logger.Warn("stale rate-limit purge failed", "error", err)
	}

	posts, err := o.plat.ListRecentPosts(ctx, "", o.cfg.RecentPostLimit, platform.SortNew)
	if err != nil {
		o.metrics.IncTicksAborted()
		return nil, warrenErrors.Wrap(warrenErrors.CodePersistFailed, "listing recent posts", err)
	}

	threads := make([]*platform.PostDetail, 0, len(posts))
	for _, p := range posts {
		detail, err := o.plat.GetPostWithComments(ctx, p.ID)
		if err != nil {
			o.logger.Warn("skipping unreadable thread", "post_id", p.ID, "error", err)
			continue
		}
		threads = append(threads, detail)
	}

	// Mention priority: some mentions deliberately go unanswered.
	events := o.mentions.FindUnresolvedMentions(threads)
	if len(events) > 0 && o.rng.Float64() < o.cfg.MentionReplyChance {
		ev := events[o.rng.Intn(len(events))]
		return o.finish(o.replyToMention(ctx, ev)), nil
	}

	if o.rng.Float64() < o.cfg.SecondaryShare {
		return o.finish(o.secondaryComment(ctx, threads)), nil
	}
	if o.rng.Float64() < o.cfg.NewPostChance {
		return o.finish(o.primaryPost(ctx)), nil
	}
	return o.finish(o.primaryComment(ctx, threads)), nil
}

func (o *Orchestrator) finish(out *Outcome) *Outcome {
	switch out.Status {
	case StatusCompleted:
		o.metrics.IncTicksCompleted()
		o.logger.Info("tick completed",
			"action", out.Action, "actor", out.Actor,
			"post_id", out.PostID, "comment_id", out.CommentID)
	case StatusIdle:
		o.metrics.IncTicksIdle()
		o.logger.Debug("tick idle", "detail", out.Detail)
	default:
		o.metrics.IncTicksAborted()
		o.logger.Warn("tick did not complete",
			"action", out.Action, "status", out.Status,
			"actor", out.Actor, "detail", out.Detail, "code", out.ErrorCode)
	}
	return out
}

// replyToMention answers one unresolved mention as the mentioned persona.
func (o *Orchestrator) replyToMention(ctx context.Context, ev mention.Event) *Outcome {
	out := &Outcome{Action: ActionMentionReply, Actor: ev.MentionedName}

	actor, cred, err := o.actorByName(ctx, ev.MentionedName)
	if err != nil {
		return abort(out, "mentioned persona unavailable", err)
	}

	memories := o.recall(ctx, actor.ID, ev.Post.Channel.Slug)
	text, err := o.generate(ctx, actor, mentionReplyPrompt(ev, memories))
	if err != nil {
		return abort(out, "reply generation failed", err)
	}

	if denied := o.admit(ctx, out, actor, ratelimit.ActionComment); denied != nil {
		return denied
	}

	body := fmt.Sprintf("@%s %s", ev.CommenterName, text)
	comment, err := o.plat.CreateComment(ctx, cred, ev.Post.ID, body, ev.Comment.ID)
	if err != nil {
		return abort(out, "reply persist failed", err)
	}

	o.afterComment(actor, comment)
	o.rememberAsync(memory.Input{
		PersonaID:      actor.ID,
		Type:           memory.TypeInteraction,
		Topic:          ev.Post.Title,
		Content:        fmt.Sprintf("Replied to a mention by %s on %q.", ev.CommenterName, ev.Post.Title),
		Importance:     3,
		ChannelSlug:    ev.Post.Channel.Slug,
		RelatedPersona: ev.CommenterName,
	})

	out.Status = StatusCompleted
	out.PostID = ev.Post.ID
	out.CommentID = comment.ID
	return out
}

// secondaryComment runs the secondary-pool path: a short archetype
// comment on a random recent thread.
func (o *Orchestrator) secondaryComment(ctx context.Context, threads []*platform.PostDetail) *Outcome {
	out := &Outcome{Action: ActionComment}

	if len(threads) == 0 {
		return idle(out, "no recent posts to comment on")
	}
	thread := threads[o.rng.Intn(len(threads))]

	archetype := weightedPick(o.rng, o.cfg.ArchetypeWeights)
	pool, err := o.repo.ListActiveByPool(ctx, persona.PoolSecondary)
	if err != nil {
		return abort(out, "loading secondary pool", err)
	}

	var candidates []*persona.Persona
	for _, p := range pool {
		if p.Archetype != archetype {
			continue
		}
		if eligibleCommenter(p, thread) && o.creds[p.Name] != "" {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return idle(out, fmt.Sprintf("no eligible %s personas for the thread", archetype))
	}

	chosen := candidates[o.rng.Intn(len(candidates))]
	out.Actor = chosen.Name

	actor, cred, err := o.actorByName(ctx, chosen.Name)
	if err != nil {
		return abort(out, "secondary persona unavailable", err)
	}

	text, err := o.generate(ctx, actor, secondaryCommentPrompt(thread, archetype))
	if err != nil {
		return abort(out, "comment generation failed", err)
	}

	if denied := o.admit(ctx, out, actor, ratelimit.ActionComment); denied != nil {
		return denied
	}

	comment, err := o.plat.CreateComment(ctx, cred, thread.ID, text, "")
	if err != nil {
		return abort(out, "comment persist failed", err)
	}

	o.afterComment(actor, comment)
	o.rememberAsync(memory.Input{
		PersonaID:   actor.ID,
		Type:        memory.TypeInteraction,
		Topic:       thread.Title,
		Content:     fmt.Sprintf("Commented on %q as a %s.", thread.Title, archetype),
		Importance:  2,
		ChannelSlug: thread.Channel.Slug,
	})

	out.Status = StatusCompleted
	out.PostID = thread.ID
	out.CommentID = comment.ID
	return out
}

// primaryPost runs the new-post branch of the primary path.
func (o *Orchestrator) primaryPost(ctx context.Context) *Outcome {
	out := &Outcome{Action: ActionPost}

	pool, err := o.repo.ListActiveByPool(ctx, persona.PoolPrimary)
	if err != nil {
		return abort(out, "loading primary pool", err)
	}
	var candidates []*persona.Persona
	for _, p := range pool {
		if o.creds[p.Name] != "" {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return idle(out, "no primary personas with credentials")
	}

	chosen := candidates[o.rng.Intn(len(candidates))]
	out.Actor = chosen.Name

	actor, cred, err := o.actorByName(ctx, chosen.Name)
	if err != nil {
		return abort(out, "primary persona unavailable", err)
	}

	channel := o.pickChannel(actor)
	if channel.Slug == "" {
		return idle(out, "no channels configured")
	}

	recent, err := o.plat.ListRecentPosts(ctx, channel.Slug, o.cfg.RecentPostLimit, platform.SortNew)
	if err != nil {
		o.logger.Warn("recent-title fetch failed, posting without duplicate guard",
			"channel", channel.Slug, "error", err)
	}
	titles := make([]string, 0, len(recent))
	for _, p := range recent {
		titles = append(titles, p.Title)
	}

	memories := o.recall(ctx, actor.ID, channel.Slug)
	text, err := o.generate(ctx, actor, newPostPrompt(channel, titles, memories))
	if err != nil {
		return abort(out, "post generation failed", err)
	}
	title, body, err := parsePostJSON(text)
	if err != nil {
		return abort(out, "post generation failed", err)
	}
	if duplicatesRecent(title, titles) {
		return abort(out, "generated title duplicates a recent post",
			warrenErrors.New(warrenErrors.CodeGenerationFailed, "duplicate title"))
	}

	if denied := o.admit(ctx, out, actor, ratelimit.ActionPost); denied != nil {
		return denied
	}

	post, err := o.plat.CreatePost(ctx, cred, channel.Slug, title, body)
	if err != nil {
		return abort(out, "post persist failed", err)
	}

	if err := o.repo.IncrementPostCount(ctx, actor.ID); err != nil {
		o.logger.Warn("post counter update failed", "persona", actor.Name, "error", err)
	}
	o.rememberAsync(memory.Input{
		PersonaID:   actor.ID,
		Type:        memory.TypeInsight,
		Topic:       title,
		Content:     fmt.Sprintf("Posted %q in %s.", title, channel.Slug),
		Importance:  3,
		ChannelSlug: channel.Slug,
	})

	out.Status = StatusCompleted
	out.PostID = post.ID
	return out
}

// primaryComment runs the comment branch of the primary path, including
// the rivalry rebuttal hook.
func (o *Orchestrator) primaryComment(ctx context.Context, threads []*platform.PostDetail) *Outcome {
	out := &Outcome{Action: ActionComment}

	if len(threads) == 0 {
		return idle(out, "no recent posts to comment on")
	}
	thread := threads[o.rng.Intn(len(threads))]

	pool, err := o.repo.ListActiveByPool(ctx, persona.PoolPrimary)
	if err != nil {
		return abort(out, "loading primary pool", err)
	}
	var candidates []*persona.Persona
	for _, p := range pool {
		if eligibleCommenter(p, thread) && o.creds[p.Name] != "" {
			candidates = append(candidates, p)
		}
	}
	// Prefer personas whose interests cover the channel when any exist.
	var interested []*persona.Persona
	for _, p := range candidates {
		if p.InterestedIn(thread.Channel.Slug) {
			interested = append(interested, p)
		}
	}
	if len(interested) > 0 {
		candidates = interested
	}
	if len(candidates) == 0 {
		return idle(out, "no eligible primary personas for the thread")
	}

	chosen := candidates[o.rng.Intn(len(candidates))]
	out.Actor = chosen.Name

	actor, cred, err := o.actorByName(ctx, chosen.Name)
	if err != nil {
		return abort(out, "primary persona unavailable", err)
	}

	extra := ""
	related := ""
	if rivalComment := rivalCommentOn(actor, thread); rivalComment != nil &&
		o.rng.Float64() < o.cfg.RivalryChance {
		extra = rivalryInstruction(actor.Rival, rivalComment.Body)
		related = actor.Rival
	}

	memories := o.recall(ctx, actor.ID, thread.Channel.Slug)
	text, err := o.generate(ctx, actor, commentPrompt(thread, o.channelContext(thread.Channel.Slug), memories, extra))
	if err != nil {
		return abort(out, "comment generation failed", err)
	}

	if denied := o.admit(ctx, out, actor, ratelimit.ActionComment); denied != nil {
		return denied
	}

	comment, err := o.plat.CreateComment(ctx, cred, thread.ID, text, "")
	if err != nil {
		return abort(out, "comment persist failed", err)
	}

	o.afterComment(actor, comment)
	memType := memory.TypeInteraction
	content := fmt.Sprintf("Commented on %q.", thread.Title)
	if related != "" {
		memType = memory.TypeStance
		content = fmt.Sprintf("Rebutted %s on %q.", related, thread.Title)
	}
	o.rememberAsync(memory.Input{
		PersonaID:      actor.ID,
		Type:           memType,
		Topic:          thread.Title,
		Content:        content,
		Importance:     3,
		ChannelSlug:    thread.Channel.Slug,
		RelatedPersona: related,
	})

	out.Status = StatusCompleted
	out.PostID = thread.ID
	out.CommentID = comment.ID
	return out
}

// actorByName authenticates a persona through its configured raw
// credential, confirming the stored hash still matches.
func (o *Orchestrator) actorByName(ctx context.Context, name string) (*persona.Persona, string, error) {
	cred := o.creds[name]
	if cred == "" {
		return nil, "", warrenErrors.New(warrenErrors.CodeAuthFailed,
			fmt.Sprintf("no credential configured for %q", name))
	}
	actor, err := o.auth.Authenticate(ctx, cred)
	if err != nil {
		return nil, "", err
	}
	if actor.Name != name {
		return nil, "", warrenErrors.New(warrenErrors.CodeAuthFailed,
			fmt.Sprintf("credential for %q resolves to a different persona", name))
	}
	return actor, cred, nil
}

// admit consumes one rate-limit slot for the action, plus the blanket
// request quota. Consumption happens after generation on purpose: a
// failed generation must leave the window untouched.
func (o *Orchestrator) admit(ctx context.Context, out *Outcome, actor *persona.Persona, action ratelimit.ActionType) *Outcome {
	for _, a := range []ratelimit.ActionType{ratelimit.ActionRequest, action} {
		res, err := o.limiter.CheckAndConsume(ctx, actor.ID, a)
		if err != nil {
			return abort(out, "rate-limit check failed", err)
		}
		if !res.Allowed {
			out.Status = StatusRateLimited
			out.ErrorCode = warrenErrors.CodeRateLimited
			out.Detail = fmt.Sprintf("%s quota exhausted, resets %s", a, res.ResetAt.UTC().Format(time.RFC3339))
			return out
		}
	}
	return nil
}

// generate runs one provider call under the persona's system framing.
func (o *Orchestrator) generate(ctx context.Context, actor *persona.Persona, prompt string) (string, error) {
	o.metrics.IncGenerationCalls()
	start := time.Now()
	resp, err := o.gen.Complete(ctx, &provider.Request{
		System:      personaSystem(actor),
		Prompt:      prompt,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	o.metrics.ObserveGenerationLatency(time.Since(start))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", warrenErrors.New(warrenErrors.CodeGenerationFailed, "provider returned empty text")
	}
	return text, nil
}

// recall loads prompt-context memories; failures degrade to none.
func (o *Orchestrator) recall(ctx context.Context, personaID, channel string) []*memory.Record {
	records, err := o.memories.Retrieve(ctx, personaID, channel, o.cfg.MemoryLimit)
	if err != nil {
		o.logger.Warn("memory retrieval failed", "persona_id", personaID, "error", err)
		return nil
	}
	return records
}

// rememberAsync records a memory without blocking the tick. Failures are
// counted and logged only; they can never fail the tick that spawned them.
func (o *Orchestrator) rememberAsync(in memory.Input) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.memories.Record(ctx, in); err != nil {
			o.metrics.IncMemoryFailures()
			o.logger.Warn("memory record failed", "persona_id", in.PersonaID, "error", err)
			return
		}
		o.metrics.IncMemoryWrites()
	}()
}

func (o *Orchestrator) afterComment(actor *persona.Persona, _ *platform.Comment) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.repo.IncrementCommentCount(ctx, actor.ID); err != nil {
		o.logger.Warn("comment counter update failed", "persona", actor.Name, "error", err)
	}
}

// pickChannel biases toward the persona's interests, falling back to a
// uniform draw over all configured channels.
func (o *Orchestrator) pickChannel(actor *persona.Persona) config.ChannelConfig {
	if len(o.channels) == 0 {
		return config.ChannelConfig{}
	}
	var interested []config.ChannelConfig
	for _, ch := range o.channels {
		if actor.InterestedIn(ch.Slug) {
			interested = append(interested, ch)
		}
	}
	if len(interested) > 0 {
		return interested[o.rng.Intn(len(interested))]
	}
	return o.channels[o.rng.Intn(len(o.channels))]
}

func (o *Orchestrator) channelContext(slug string) string {
	for _, ch := range o.channels {
		if ch.Slug == slug {
			return ch.Context
		}
	}
	return ""
}

// eligibleCommenter excludes the thread's author and anyone who already
// commented on it.
func eligibleCommenter(p *persona.Persona, thread *platform.PostDetail) bool {
	if p.Name == thread.Author.Name {
		return false
	}
	for _, c := range thread.Comments {
		if c.Author.Name == p.Name {
			return false
		}
	}
	return true
}

// rivalCommentOn returns the rival's earliest comment on the thread, or
// nil when the persona has no rival or the rival stayed out of it.
func rivalCommentOn(p *persona.Persona, thread *platform.PostDetail) *platform.Comment {
	if p.Rival == "" {
		return nil
	}
	for i := range thread.Comments {
		if thread.Comments[i].Author.Name == p.Rival {
			return &thread.Comments[i]
		}
	}
	return nil
}

func duplicatesRecent(title string, recent []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(title))
	for _, t := range recent {
		if strings.ToLower(strings.TrimSpace(t)) == normalized {
			return true
		}
	}
	return false
}

func abort(out *Outcome, detail string, err error) *Outcome {
	out.Status = StatusAborted
	out.Detail = fmt.Sprintf("%s: %v", detail, err)
	out.ErrorCode = warrenErrors.AsCode(err)
	return out
}

func idle(out *Outcome, detail string) *Outcome {
	out.Status = StatusIdle
	out.Detail = detail
	return out
}
