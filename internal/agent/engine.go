package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-ask/internal/chat"
	"github.com/p-n-ai/pai-ask/internal/knowledge"
	"github.com/p-n-ai/pai-ask/internal/resolver"
	"github.com/p-n-ai/pai-ask/internal/search"
	"github.com/p-n-ai/pai-ask/internal/session"
)

// Fixed replies.
const (
	NoSubjectReply       = "Please select a subject first (Science or Maths) before asking questions."
	NoSubjectRandomReply = "Please select a subject first (Science or Maths) to get a random question."
	TechnicalErrorReply  = "Sorry, I'm having a technical problem right now. Please try again in a moment."
)

// ErrEmptyQuestion is returned for blank input. Channels drop such messages.
var ErrEmptyQuestion = errors.New("question is empty")

// Source describes how a reply was produced.
type Source string

const (
	SourceGuidance Source = "guidance"
	SourceExact    Source = "exact"
	SourceFuzzy    Source = "fuzzy"
	SourceFallback Source = "fallback"
	SourceRandom   Source = "random"
	SourceSubject  Source = "subject"
	SourceCommand  Source = "command"
)

// Reply is the engine's answer to one inbound message.
type Reply struct {
	RequestID string
	Text      string
	Source    Source
	// Session is the user's session after handling the message.
	Session session.Session
	// Stale is set when the reply was cancelled while in flight, typically
	// because the user switched subject. Channels should not deliver it.
	Stale bool
}

// EngineConfig holds dependencies for the agent engine.
type EngineConfig struct {
	Knowledge *knowledge.Base
	Fetcher   *search.Fetcher
	Sessions  session.Store
	Events    EventLogger
	Intn      func(n int) int // random index source (default math/rand/v2.IntN)
}

// Engine is the core message processor: subject selection, local lookup and
// online fallback. It owns the session store; the resolver never sees it.
type Engine struct {
	kb       *knowledge.Base
	fetcher  *search.Fetcher
	sessions session.Store
	events   EventLogger
	intn     func(n int) int
	tasks    *taskRegistry
}

// NewEngine creates a new agent engine.
func NewEngine(cfg EngineConfig) *Engine {
	kb := cfg.Knowledge
	if kb == nil {
		kb = knowledge.MustDefault()
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = search.NewFetcher(nil)
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore(0)
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	intn := cfg.Intn
	if intn == nil {
		intn = rand.IntN
	}
	return &Engine{
		kb:       kb,
		fetcher:  fetcher,
		sessions: sessions,
		events:   events,
		intn:     intn,
		tasks:    newTaskRegistry(),
	}
}

// Knowledge returns the engine's knowledge base.
func (e *Engine) Knowledge() *knowledge.Base {
	return e.kb
}

// ProcessMessage handles an incoming chat message using the sender's stored session.
func (e *Engine) ProcessMessage(ctx context.Context, msg chat.InboundMessage) (Reply, error) {
	slog.Info("processing message",
		"channel", msg.Channel,
		"user_id", msg.UserID,
		"request_id", msg.RequestID,
		"text_len", len(msg.Text),
	)

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Reply{}, ErrEmptyQuestion
	}

	if strings.HasPrefix(text, "/") {
		return e.handleCommand(ctx, msg, text)
	}

	sess, err := e.sessions.Get(ctx, msg.UserID)
	if err != nil {
		slog.Error("failed to load session", "user_id", msg.UserID, "error", err)
		return Reply{RequestID: msg.RequestID, Text: TechnicalErrorReply, Source: SourceGuidance}, nil
	}
	return e.Answer(ctx, msg.UserID, sess, msg.RequestID, text)
}

// Answer resolves question against sess's subject. It does not read or write
// the session store, so callers that hold the session themselves can use it
// directly. The returned Reply always carries renderable text.
func (e *Engine) Answer(ctx context.Context, userID string, sess session.Session, requestID, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	reply := Reply{RequestID: requestID, Session: sess}
	res := resolver.Resolve(e.kb, sess.Subject, question)
	switch res.Kind {
	case resolver.NoSubject:
		reply.Text = NoSubjectReply
		reply.Source = SourceGuidance
	case resolver.Exact:
		reply.Text = res.Answer
		reply.Source = SourceExact
	case resolver.Fuzzy:
		reply.Text = res.Answer
		reply.Source = SourceFuzzy
	default:
		reply.Text, reply.Stale = e.fallback(ctx, userID, requestID, question)
		reply.Source = SourceFallback
	}

	answersTotal.WithLabelValues(subjectLabel(sess.Subject), string(reply.Source)).Inc()
	e.logEvent(Event{
		UserID:    userID,
		RequestID: requestID,
		EventType: EventQuestionAnswered,
		Data: map[string]any{
			"subject":       string(sess.Subject),
			"source":        string(reply.Source),
			"question_hash": Fingerprint(question),
			"text_len":      len(question),
			"stale":         reply.Stale,
		},
	})

	slog.Info("question answered",
		"user_id", userID,
		"request_id", requestID,
		"subject", sess.Subject,
		"source", reply.Source,
		"stale", reply.Stale,
	)
	return reply, nil
}

// fallback runs the online search as a cancellable task keyed by requestID.
// It reports whether the task was cancelled before the reply could be used.
func (e *Engine) fallback(ctx context.Context, userID, requestID, question string) (string, bool) {
	taskCtx, release := e.tasks.start(ctx, requestID, userID)
	defer release()

	start := time.Now()
	text := e.fetcher.Fetch(taskCtx, question)
	stale := cancelled(taskCtx)

	fallbackDuration.
		WithLabelValues(e.fetcher.Provider().Name(), strconv.FormatBool(stale)).
		Observe(time.Since(start).Seconds())

	if stale {
		slog.Info("dropping stale fallback reply", "user_id", userID, "request_id", requestID)
	}
	return text, stale
}

// SelectSubject stores subject as the user's selection and cancels the user's
// in-flight fallbacks, whose replies belong to the previous selection.
func (e *Engine) SelectSubject(ctx context.Context, userID string, subject knowledge.SubjectID) (Reply, error) {
	if !subject.Valid() {
		return Reply{}, fmt.Errorf("%w: %q", knowledge.ErrUnknownSubject, subject)
	}

	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		slog.Warn("failed to load session, starting fresh", "user_id", userID, "error", err)
		sess = session.Session{}
	}
	sess = sess.Select(subject)
	if err := e.sessions.Put(ctx, userID, sess); err != nil {
		slog.Error("failed to store session", "user_id", userID, "error", err)
		return Reply{Text: TechnicalErrorReply, Source: SourceGuidance}, nil
	}

	e.subjectChanged(userID, subject)
	return Reply{Text: e.Greeting(subject), Source: SourceSubject, Session: sess}, nil
}

// SwitchSubject is the stateless form of SelectSubject: the caller holds sess
// and receives the updated copy in the Reply.
func (e *Engine) SwitchSubject(userID string, sess session.Session, subject knowledge.SubjectID) (Reply, error) {
	if !subject.Valid() {
		return Reply{}, fmt.Errorf("%w: %q", knowledge.ErrUnknownSubject, subject)
	}
	sess = sess.Select(subject)
	e.subjectChanged(userID, subject)
	return Reply{Text: e.Greeting(subject), Source: SourceSubject, Session: sess}, nil
}

func (e *Engine) subjectChanged(userID string, subject knowledge.SubjectID) {
	if n := e.tasks.cancelUser(userID); n > 0 {
		slog.Info("cancelled in-flight fallbacks after subject change",
			"user_id", userID,
			"subject", subject,
			"cancelled", n,
		)
	}

	subjectSelectionsTotal.WithLabelValues(string(subject)).Inc()
	e.logEvent(Event{
		UserID:    userID,
		EventType: EventSubjectSelected,
		Data:      map[string]any{"subject": string(subject)},
	})
}

// Greeting is the message shown when a subject is selected.
func (e *Engine) Greeting(subject knowledge.SubjectID) string {
	name := subject.DisplayName()
	var questions []string
	if bank, ok := e.kb.Bank(subject); ok {
		questions = bank.Questions()
	}
	return fmt.Sprintf("You've selected %s. Ask me anything about %s or try one of these questions:\n\n%s",
		name, name, strings.Join(questions, "\n"))
}

// RandomQuestion suggests a question from the session's subject.
func (e *Engine) RandomQuestion(userID string, sess session.Session) Reply {
	q, ok := resolver.PickRandom(e.kb, sess.Subject, e.intn)
	if !ok {
		return Reply{Text: NoSubjectRandomReply, Source: SourceGuidance, Session: sess}
	}

	e.logEvent(Event{
		UserID:    userID,
		EventType: EventRandomQuestion,
		Data: map[string]any{
			"subject":       string(sess.Subject),
			"question_hash": Fingerprint(q),
		},
	})
	return Reply{
		Text:    fmt.Sprintf("Here's a %s question for you: %s", sess.Subject, q),
		Source:  SourceRandom,
		Session: sess,
	}
}

// Cancel cancels userID's in-flight fallback for requestID. It reports whether one was running.
func (e *Engine) Cancel(userID, requestID string) bool {
	return e.tasks.cancelRequest(userID, requestID) > 0
}

// InFlight returns the number of running fallback searches.
func (e *Engine) InFlight() int {
	return e.tasks.inFlight()
}

func (e *Engine) handleCommand(ctx context.Context, msg chat.InboundMessage, text string) (Reply, error) {
	fields := strings.Fields(text)
	// Telegram appends the bot name in groups: /random@pai_ask_bot
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	var (
		reply Reply
		err   error
	)
	switch cmd {
	case "/start", "/help":
		reply = Reply{Text: e.welcome(msg), Source: SourceCommand}
	case "/science", "/maths":
		subject, _ := knowledge.ParseSubject(strings.TrimPrefix(cmd, "/"))
		reply, err = e.SelectSubject(ctx, msg.UserID, subject)
	case "/random":
		sess, getErr := e.sessions.Get(ctx, msg.UserID)
		if getErr != nil {
			slog.Error("failed to load session", "user_id", msg.UserID, "error", getErr)
			reply = Reply{Text: TechnicalErrorReply, Source: SourceGuidance}
			break
		}
		reply = e.RandomQuestion(msg.UserID, sess)
	case "/cancel":
		if len(fields) < 2 {
			reply = Reply{Text: "Usage: /cancel <request id>", Source: SourceCommand}
			break
		}
		if e.Cancel(msg.UserID, fields[1]) {
			reply = Reply{Text: "Cancelled.", Source: SourceCommand}
		} else {
			reply = Reply{Text: "Nothing to cancel.", Source: SourceCommand}
		}
	default:
		reply = Reply{
			Text:   fmt.Sprintf("Unknown command: %s\nUse /help to see what I can do.", cmd),
			Source: SourceCommand,
		}
	}
	if err != nil {
		return Reply{}, err
	}
	reply.RequestID = msg.RequestID
	return reply, nil
}

func (e *Engine) welcome(msg chat.InboundMessage) string {
	name := msg.FirstName
	if name == "" {
		name = msg.Username
	}
	if name == "" {
		name = "there"
	}

	return fmt.Sprintf(`Hi %s!

I answer Science and Maths questions.

- /science or /maths picks a subject
- then just type your question
- /random suggests a question to try

If I don't know the answer I'll search online for you.`, name)
}

func (e *Engine) logEvent(ev Event) {
	if err := e.events.LogEvent(ev); err != nil {
		slog.Warn("failed to log event", "type", ev.EventType, "error", err)
	}
}
