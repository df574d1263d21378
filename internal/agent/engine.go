package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/p-n-ai/pai-tutor/internal/chat"
	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/matcher"
	"github.com/p-n-ai/pai-tutor/internal/tutor"
)

const technicalErrorReply = "Sorry, I'm having a technical problem. Please try again in a moment."

// Commands lists the slash commands the engine understands, for channels
// that advertise them.
var Commands = []chat.Command{
	{Name: "start", Description: "Start a tutorial (optionally: /start python)"},
	{Name: "tutorials", Description: "List available tutorials"},
	{Name: "topics", Description: "Show the topics of the current tutorial"},
	{Name: "next", Description: "Continue with the next subtopic"},
	{Name: "quiz", Description: "Take a quiz on the current topic"},
	{Name: "progress", Description: "Show your learning progress"},
	{Name: "help", Description: "How to use the tutor"},
}

// EngineConfig holds dependencies for the agent engine.
type EngineConfig struct {
	Loader          *curriculum.Loader
	Normalizer      *matcher.Normalizer
	DefaultTutorial string // catalog ID used when a learner has not picked one
	Store           ConversationStore
	EventLogger     EventLogger
}

// Engine routes inbound messages to per-learner tutoring sessions.
type Engine struct {
	loader          *curriculum.Loader
	tutorials       map[string]*tutor.Tutorial
	defaultTutorial string
	store           ConversationStore
	events          EventLogger

	locksMu sync.Mutex
	locks   map[string]*userLock

	// resume remembers the tutorial of a learner's ended conversation when
	// it is not the default, so their next message continues in it.
	resumeMu sync.Mutex
	resume   map[string]resumePoint
}

// userLock is held by every turn of one learner. The entry is dropped once
// no turn holds or waits for it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

type resumePoint struct {
	tutorialID string
	at         time.Time
}

// NewEngine creates a new agent engine. Every catalog known to the loader is
// prepared up front.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Loader == nil {
		return nil, errors.New("agent: curriculum loader is required")
	}
	norm := cfg.Normalizer
	if norm == nil {
		n, err := matcher.NewEnglishNormalizer()
		if err != nil {
			return nil, err
		}
		norm = n
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.EventLogger
	if events == nil {
		events = NopEventLogger{}
	}

	e := &Engine{
		loader:    cfg.Loader,
		tutorials: make(map[string]*tutor.Tutorial),
		store:     store,
		events:    events,
		locks:     make(map[string]*userLock),
		resume:    make(map[string]resumePoint),
	}
	for _, cat := range cfg.Loader.Catalogs() {
		tut, err := tutor.NewTutorial(cat, norm)
		if err != nil {
			return nil, fmt.Errorf("preparing tutorial %s: %w", cat.ID, err)
		}
		e.tutorials[cat.ID] = tut
	}
	if len(e.tutorials) == 0 {
		return nil, errors.New("agent: no tutorials loaded")
	}

	e.defaultTutorial = cfg.DefaultTutorial
	if _, ok := e.tutorials[e.defaultTutorial]; !ok {
		first := cfg.Loader.Catalogs()[0].ID
		if e.defaultTutorial != "" {
			slog.Warn("default tutorial not found, using first catalog",
				"requested", e.defaultTutorial, "using", first)
		}
		e.defaultTutorial = first
	}
	return e, nil
}

// ProcessMessage handles an incoming message and returns a response.
func (e *Engine) ProcessMessage(ctx context.Context, msg chat.InboundMessage) (string, error) {
	slog.Info("processing message",
		"channel", msg.Channel,
		"user_id", msg.UserID,
		"text_len", len(msg.Text),
	)

	unlock := e.lockUser(msg.UserID)
	defer unlock()

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		return e.handleCommand(ctx, msg, text)
	}
	if text == "" {
		return "Type 'topics' to see what I can teach you.", nil
	}

	conv, err := e.getOrCreateConversation(msg)
	if err != nil {
		slog.Error("failed to get conversation", "error", err)
		return technicalErrorReply, nil
	}

	return e.respond(conv, text, conv.Session.Respond(text)), nil
}

// respond records a turn and its side effects and returns the reply text.
func (e *Engine) respond(conv *Conversation, input string, reply tutor.Reply) string {
	e.addMessage(conv.ID, StoredMessage{Role: "user", Content: input})
	e.addMessage(conv.ID, StoredMessage{Role: "assistant", Content: reply.Text, Intent: string(reply.Intent)})

	e.logEvent(conv, EventTurn, map[string]any{
		"intent":   string(reply.Intent),
		"state":    conv.Session.State().String(),
		"text_len": len(input),
	})
	if c := reply.Completed; c != nil {
		e.logEvent(conv, EventSubtopicCompleted, map[string]any{
			"topic":    c.Topic,
			"subtopic": c.Subtopic,
		})
	}
	if g := reply.Graded; g != nil {
		e.logEvent(conv, EventQuizAnswered, map[string]any{
			"topic":    g.Topic,
			"question": g.Question,
			"correct":  g.Correct,
		})
	}
	if reply.Exit {
		e.endConversation(conv, "exit")
	}
	return reply.Text
}

func (e *Engine) handleCommand(_ context.Context, msg chat.InboundMessage, text string) (string, error) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	// Telegram appends the bot name in group chats: /start@pai_tutor_bot.
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	arg := strings.Join(fields[1:], " ")

	switch cmd {
	case "/start":
		return e.handleStart(msg, arg), nil
	case "/tutorials":
		return e.listTutorials(), nil
	case "/help", "/topics", "/next", "/quiz", "/progress":
	default:
		return fmt.Sprintf("Unknown command: %s\nUse /help to see what I can do.", cmd), nil
	}

	conv, err := e.getOrCreateConversation(msg)
	if err != nil {
		slog.Error("failed to get conversation", "error", err)
		return technicalErrorReply, nil
	}

	s := conv.Session
	var reply tutor.Reply
	switch cmd {
	case "/help":
		reply = tutor.Reply{Text: s.Help()}
	case "/topics":
		reply = tutor.Reply{Text: s.ListTopics(), Intent: tutor.IntentTopicList}
	case "/next":
		reply = s.NextSubtopicReply()
	case "/quiz":
		reply = tutor.Reply{Text: s.StartQuiz(), Intent: tutor.IntentQuiz}
	case "/progress":
		reply = tutor.Reply{Text: s.ShowProgress(), Intent: tutor.IntentProgress}
	}
	return e.respond(conv, text, reply), nil
}

func (e *Engine) handleStart(msg chat.InboundMessage, arg string) string {
	tutorialID := e.defaultTutorial
	if arg != "" {
		cat, err := e.loader.Find(arg)
		if err != nil {
			return fmt.Sprintf("I don't have a tutorial called %q.\n\n%s", arg, e.listTutorials())
		}
		tutorialID = cat.ID
	}

	if conv, found := e.store.GetActiveConversation(msg.UserID); found {
		e.endConversation(conv, "restart")
	}

	conv, err := e.createConversation(msg, tutorialID)
	if err != nil {
		slog.Error("failed to create conversation", "error", err)
		return technicalErrorReply
	}

	name := msg.FirstName
	if name == "" {
		name = msg.Username
	}
	if name == "" {
		name = "there"
	}
	greeting := fmt.Sprintf("Hi %s!\n\n%s", name, conv.Session.Greet())
	e.addMessage(conv.ID, StoredMessage{Role: "assistant", Content: greeting})
	return greeting
}

func (e *Engine) listTutorials() string {
	cats := e.loader.Catalogs()
	lines := lo.Map(cats, func(c *curriculum.Catalog, _ int) string {
		return fmt.Sprintf("- %s (/start %s)", c.Name, c.ID)
	})
	return "Available tutorials:\n" + strings.Join(lines, "\n")
}

// getOrCreateConversation returns the learner's active conversation, or
// opens one on the tutorial they last used.
func (e *Engine) getOrCreateConversation(msg chat.InboundMessage) (*Conversation, error) {
	if conv, found := e.store.GetActiveConversation(msg.UserID); found && conv.Session != nil {
		return conv, nil
	}
	tutorialID := e.defaultTutorial
	e.resumeMu.Lock()
	if p, ok := e.resume[msg.UserID]; ok {
		if _, known := e.tutorials[p.tutorialID]; known {
			tutorialID = p.tutorialID
		}
	}
	e.resumeMu.Unlock()
	return e.createConversation(msg, tutorialID)
}

func (e *Engine) createConversation(msg chat.InboundMessage, tutorialID string) (*Conversation, error) {
	tut, ok := e.tutorials[tutorialID]
	if !ok {
		return nil, fmt.Errorf("unknown tutorial: %s", tutorialID)
	}
	id, err := e.store.CreateConversation(Conversation{
		UserID:     msg.UserID,
		Channel:    msg.Channel,
		TutorialID: tutorialID,
		Session:    tut.NewSession(),
	})
	if err != nil {
		return nil, err
	}
	conv, err := e.store.GetConversation(id)
	if err != nil {
		return nil, err
	}

	e.resumeMu.Lock()
	delete(e.resume, msg.UserID)
	e.resumeMu.Unlock()

	slog.Info("session started", "conversation_id", id, "user_id", msg.UserID, "tutorial", tutorialID)
	e.logEvent(conv, EventSessionStarted, map[string]any{
		"tutorial": tutorialID,
		"channel":  msg.Channel,
	})
	return conv, nil
}

func (e *Engine) endConversation(conv *Conversation, reason string) {
	if err := e.store.EndConversation(conv.ID); err != nil {
		slog.Error("failed to end conversation", "error", err)
		return
	}
	if conv.TutorialID != e.defaultTutorial {
		e.resumeMu.Lock()
		e.resume[conv.UserID] = resumePoint{tutorialID: conv.TutorialID, at: time.Now()}
		e.resumeMu.Unlock()
	}
	e.logEvent(conv, EventSessionEnded, map[string]any{"reason": reason})
}

// EvictIdle ends every conversation with no activity in the last maxIdle
// and forgets resume points older than that. It returns the number of
// conversations ended.
func (e *Engine) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	e.resumeMu.Lock()
	for userID, p := range e.resume {
		if !p.at.After(cutoff) {
			delete(e.resume, userID)
		}
	}
	e.resumeMu.Unlock()

	ended := 0
	for _, conv := range e.store.IdleConversations(cutoff) {
		unlock := e.lockUser(conv.UserID)
		active, found := e.store.GetActiveConversation(conv.UserID)
		if found && active.ID == conv.ID && !active.LastActiveAt.After(cutoff) {
			e.endConversation(active, "idle")
			ended++
		}
		unlock()
	}

	if ended > 0 {
		slog.Info("evicted idle sessions", "count", ended)
	}
	return ended
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (e *Engine) RunEviction(ctx context.Context, maxIdle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.EvictIdle(maxIdle)
		}
	}
}

func (e *Engine) addMessage(conversationID string, msg StoredMessage) {
	if err := e.store.AddMessage(conversationID, msg); err != nil {
		slog.Error("failed to store message", "role", msg.Role, "error", err)
	}
}

func (e *Engine) logEvent(conv *Conversation, eventType string, data map[string]any) {
	err := e.events.LogEvent(Event{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		EventType:      eventType,
		Data:           data,
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}

// lockUser serializes turns of one learner and returns the unlock func.
func (e *Engine) lockUser(userID string) func() {
	e.locksMu.Lock()
	l, ok := e.locks[userID]
	if !ok {
		l = &userLock{}
		e.locks[userID] = l
	}
	l.refs++
	e.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, userID)
		}
		e.locksMu.Unlock()
	}
}

// Tutorials returns the catalogs the engine can teach, ordered by ID.
func (e *Engine) Tutorials() []*curriculum.Catalog {
	return e.loader.Catalogs()
}

// Transcript returns the messages of the learner's active conversation.
func (e *Engine) Transcript(userID string) ([]StoredMessage, bool) {
	unlock := e.lockUser(userID)
	defer unlock()

	conv, found := e.store.GetActiveConversation(userID)
	if !found {
		return nil, false
	}
	return append([]StoredMessage(nil), conv.Messages...), true
}

// Progress returns a snapshot of the learner's progress in the active
// conversation, with the name of the tutorial it belongs to.
func (e *Engine) Progress(userID string) (tutorial string, progress []tutor.TopicProgress, ok bool) {
	unlock := e.lockUser(userID)
	defer unlock()

	conv, found := e.store.GetActiveConversation(userID)
	if !found || conv.Session == nil {
		return "", nil, false
	}
	return conv.Session.Catalog().Name, conv.Session.Progress().Snapshot(), true
}
