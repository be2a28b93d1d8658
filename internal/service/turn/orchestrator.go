// Package turn runs the conversational pipeline: persist the user message,
// decide on retrieval augmentation, call generation, deliver the reply and
// record the completed turn.
package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/eargai/earg-backend/internal/memory"
	"github.com/eargai/earg-backend/internal/model/chat"
	"github.com/eargai/earg-backend/internal/service/ai"
	"github.com/eargai/earg-backend/internal/service/search"
)

var (
	// ErrNoPendingMessage means a stream was requested while the chat's last
	// message is not an unanswered user message.
	ErrNoPendingMessage = errors.New("no pending user message")

	// ErrGeneration wraps fatal provider failures; the turn produces no
	// assistant message.
	ErrGeneration = errors.New("generation failed")
)

// Generator is the generation client surface the pipeline needs.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (*schema.Message, error)
	Stream(ctx context.Context, req ai.Request) (*schema.StreamReader[*schema.Message], error)
}

// Searcher is the retrieval client surface. Implementations fail soft: any
// provider error comes back as an empty slice.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []search.Result
}

// MessageStore is the slice of the message repository the pipeline needs.
type MessageStore interface {
	Append(ctx context.Context, m *chat.Message) error
	ListByChat(ctx context.Context, chatID string) ([]chat.Message, error)
}

// Reply is the outcome of one completed turn.
type Reply struct {
	Text             string `json:"reply"`
	UsedAugmentation bool   `json:"usedAugmentation"`
}

// Options tune the pipeline. BufferedStreaming turns StreamTurn into a
// single-fragment delivery backed by an atomic generation pass, for providers
// whose incremental mode is disabled.
type Options struct {
	WindowSize        int
	MaxResults        int
	BufferedStreaming bool
}

// Orchestrator owns the per-chat serialization and memory windows. All
// provider clients are injected once at startup.
type Orchestrator struct {
	gen        Generator
	searcher   Searcher
	policy     ai.Policy
	messages   MessageStore
	windowSize int
	maxResults int
	buffered   bool

	mu     sync.Mutex
	states map[string]*chatState
}

// chatState serializes message appends and window mutation for one chat.
type chatState struct {
	mu     sync.Mutex
	window *memory.Window
}

// NewOrchestrator wires the pipeline. gen may be nil when the provider is not
// configured; callers must guard turn entry points in that case.
func NewOrchestrator(gen Generator, searcher Searcher, policy ai.Policy, messages MessageStore, opts Options) *Orchestrator {
	if opts.WindowSize < 1 {
		opts.WindowSize = 6
	}
	if opts.MaxResults < 1 {
		opts.MaxResults = 4
	}
	return &Orchestrator{
		gen:        gen,
		searcher:   searcher,
		policy:     policy,
		messages:   messages,
		windowSize: opts.WindowSize,
		maxResults: opts.MaxResults,
		buffered:   opts.BufferedStreaming,
		states:     make(map[string]*chatState),
	}
}

// state returns the owning state for chatID, creating and hydrating it from
// the store on first use.
func (o *Orchestrator) state(ctx context.Context, chatID string) (*chatState, error) {
	o.mu.Lock()
	st, ok := o.states[chatID]
	if !ok {
		st = &chatState{window: memory.NewWindow(o.windowSize)}
		o.states[chatID] = st
	}
	o.mu.Unlock()

	if !ok {
		if err := o.hydrate(ctx, chatID, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// hydrate rebuilds the memory window from persisted messages. Only completed
// user/assistant pairs enter the window; a trailing unanswered user message
// stays out because it is the next turn's query.
func (o *Orchestrator) hydrate(ctx context.Context, chatID string, st *chatState) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	msgs, err := o.messages.ListByChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to hydrate chat %s: %w", chatID, err)
	}

	for i := 0; i+1 < len(msgs); i++ {
		if msgs[i].Role == chat.RoleUser && msgs[i+1].Role == chat.RoleAssistant {
			st.window.Append(memory.TurnPair{
				User:      msgs[i].Content,
				Assistant: msgs[i+1].Content,
			})
			i++
		}
	}
	return nil
}

// AcceptMessage persists an inbound user message synchronously, before any
// provider call can suspend, so concurrent turns on one chat keep arrival
// order in the message log.
func (o *Orchestrator) AcceptMessage(ctx context.Context, chatID, text string) error {
	st, err := o.state(ctx, chatID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return o.messages.Append(ctx, &chat.Message{
		ChatID:  chatID,
		Role:    chat.RoleUser,
		Content: text,
	})
}

// HandleTurn is the atomic variant: persist the user message, generate,
// persist the assistant reply, return it.
func (o *Orchestrator) HandleTurn(ctx context.Context, chatID, text string) (Reply, error) {
	st, err := o.state(ctx, chatID)
	if err != nil {
		return Reply{}, err
	}

	st.mu.Lock()
	if err := o.messages.Append(ctx, &chat.Message{ChatID: chatID, Role: chat.RoleUser, Content: text}); err != nil {
		st.mu.Unlock()
		return Reply{}, err
	}
	history := historyMessages(st.window.Snapshot())
	st.mu.Unlock()

	reply, err := o.generateReply(ctx, text, history)
	if err != nil {
		return Reply{}, err
	}

	if err := o.commitTurn(ctx, st, chatID, text, reply.Text); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// StreamTurn generates a reply for the chat's pending user message, emitting
// fragments through emit as they become available. The assistant message is
// persisted only after the stream completes naturally; a cancelled or failed
// stream persists nothing.
func (o *Orchestrator) StreamTurn(ctx context.Context, chatID string, emit func(fragment string) error) error {
	st, err := o.state(ctx, chatID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	msgs, err := o.messages.ListByChat(ctx, chatID)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != chat.RoleUser {
		st.mu.Unlock()
		return ErrNoPendingMessage
	}
	text := msgs[len(msgs)-1].Content
	history := historyMessages(st.window.Snapshot())
	st.mu.Unlock()

	var reply Reply
	if o.buffered {
		reply, err = o.generateReply(ctx, text, history)
		if err == nil && reply.Text != "" {
			err = emit(reply.Text)
		}
	} else {
		reply, err = o.streamReply(ctx, text, history, emit)
	}
	if err != nil {
		return err
	}

	return o.commitTurn(ctx, st, chatID, text, reply.Text)
}

// commitTurn records the assistant side of a completed turn and rolls the
// memory window forward, serialized per chat.
func (o *Orchestrator) commitTurn(ctx context.Context, st *chatState, chatID, userText, assistantText string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := o.messages.Append(ctx, &chat.Message{
		ChatID:  chatID,
		Role:    chat.RoleAssistant,
		Content: assistantText,
	}); err != nil {
		return err
	}
	st.window.Append(memory.TurnPair{User: userText, Assistant: assistantText})
	return nil
}

// generateReply runs the policy-driven two-pass pipeline in atomic mode.
func (o *Orchestrator) generateReply(ctx context.Context, text string, history []*schema.Message) (Reply, error) {
	system := ai.SystemPrompt()
	if o.policy.WantsProbe(text) {
		system = ai.ProbeSystemPrompt()
	}

	first, err := o.gen.Generate(ctx, ai.Request{System: system, History: history, Query: text})
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	markerSeen, fallback := splitMarker(first.Content)
	if !o.policy.Decide(text, ai.Signal{MarkerSeen: markerSeen}) {
		return Reply{Text: fallback}, nil
	}

	results := o.searcher.Search(ctx, text, o.maxResults)
	if len(results) == 0 {
		// Never block the user on a failed search.
		return Reply{Text: fallback}, nil
	}

	second, err := o.gen.Generate(ctx, ai.Request{
		System:  ai.AugmentedSystemPrompt(results),
		History: history,
		Query:   text,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return Reply{Text: second.Content, UsedAugmentation: true}, nil
}

// streamReply is the streaming counterpart. The first pass is streamed with
// marker sniffing: fragments are withheld only until the accumulated prefix
// provably is or is not the marker.
func (o *Orchestrator) streamReply(ctx context.Context, text string, history []*schema.Message, emit func(string) error) (Reply, error) {
	if !o.policy.WantsProbe(text) {
		if o.policy.Decide(text, ai.Signal{}) {
			if results := o.searcher.Search(ctx, text, o.maxResults); len(results) > 0 {
				content, err := o.forwardStream(ctx, ai.Request{
					System:  ai.AugmentedSystemPrompt(results),
					History: history,
					Query:   text,
				}, emit)
				if err != nil {
					return Reply{}, err
				}
				return Reply{Text: content, UsedAugmentation: true}, nil
			}
		}
		content, err := o.forwardStream(ctx, ai.Request{System: ai.SystemPrompt(), History: history, Query: text}, emit)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: content}, nil
	}

	stream, err := o.gen.Stream(ctx, ai.Request{System: ai.ProbeSystemPrompt(), History: history, Query: text})
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer stream.Close()

	var buffered strings.Builder
	decided := false
	markerSeen := false

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return Reply{}, fmt.Errorf("%w: %v", ErrGeneration, recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		if !decided {
			buffered.WriteString(chunk.Content)
			prefix := strings.TrimLeft(buffered.String(), " \t\n")
			switch {
			case strings.HasPrefix(prefix, ai.InsufficientMarker):
				decided = true
				markerSeen = true
			case len(prefix) >= len(ai.InsufficientMarker) || !strings.HasPrefix(ai.InsufficientMarker, prefix):
				decided = true
				if err := emit(buffered.String()); err != nil {
					return Reply{}, err
				}
			}
			continue
		}

		if markerSeen {
			// Keep draining silently; the remainder is the fallback content.
			buffered.WriteString(chunk.Content)
			continue
		}

		buffered.WriteString(chunk.Content)
		if err := emit(chunk.Content); err != nil {
			return Reply{}, err
		}
	}

	full := buffered.String()
	seen, fallback := splitMarker(full)
	markerSeen = markerSeen || seen

	if !markerSeen {
		// Undecided at EOF means the whole reply was shorter than the
		// marker; flush it now.
		if !decided {
			if err := emit(full); err != nil {
				return Reply{}, err
			}
		}
		return Reply{Text: full}, nil
	}

	if o.policy.Decide(text, ai.Signal{MarkerSeen: true}) {
		if results := o.searcher.Search(ctx, text, o.maxResults); len(results) > 0 {
			content, err := o.forwardStream(ctx, ai.Request{
				System:  ai.AugmentedSystemPrompt(results),
				History: history,
				Query:   text,
			}, emit)
			if err != nil {
				return Reply{}, err
			}
			return Reply{Text: content, UsedAugmentation: true}, nil
		}
	}

	// Retrieval empty or declined: the probe's best attempt stands.
	if fallback != "" {
		if err := emit(fallback); err != nil {
			return Reply{}, err
		}
	}
	return Reply{Text: fallback}, nil
}

// forwardStream relays a generation stream fragment by fragment and returns
// the accumulated text once the stream ends naturally.
func (o *Orchestrator) forwardStream(ctx context.Context, req ai.Request, emit func(string) error) (string, error) {
	stream, err := o.gen.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("%w: %v", ErrGeneration, recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		builder.WriteString(chunk.Content)
		if err := emit(chunk.Content); err != nil {
			log.Printf("[turn] client gone mid-stream: %v", err)
			return "", err
		}
	}
	return builder.String(), nil
}

// splitMarker strips the insufficiency marker from a pass-one reply,
// reporting whether it was present.
func splitMarker(content string) (bool, string) {
	trimmed := strings.TrimLeft(content, " \t\n")
	if !strings.HasPrefix(trimmed, ai.InsufficientMarker) {
		return false, strings.TrimSpace(content)
	}
	return true, strings.TrimSpace(strings.TrimPrefix(trimmed, ai.InsufficientMarker))
}

// historyMessages converts window pairs into prompt messages, oldest first.
func historyMessages(pairs []memory.TurnPair) []*schema.Message {
	if len(pairs) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(pairs)*2)
	for _, pair := range pairs {
		history = append(history, schema.UserMessage(pair.User))
		history = append(history, schema.AssistantMessage(pair.Assistant, nil))
	}
	return history
}
