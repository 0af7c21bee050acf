// Package chat turns one inbound customer message into one reply. Canned
// intents, appointment capture and inventory questions are answered
// locally; everything else goes to the completion model with the user's
// rolling history.
package chat

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/appointment"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/conversation"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/inventory"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/leads"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/observability/metrics"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

var chatTracer = otel.Tracer("dealerbot.internal.chat")

const (
	DefaultDealerName  = "Johnson City Nissan"
	DefaultDealerPhone = "(423) 282-2221"

	defaultLLMTimeout       = 30 * time.Second
	defaultInventoryTimeout = 15 * time.Second
	defaultNotifyTimeout    = 20 * time.Second

	completionMaxTokens   = 500
	completionTemperature = 0.7
)

// Stage names the step that produced a reply.
type Stage string

const (
	StageIntent      Stage = "intent"
	StageAppointment Stage = "appointment"
	StageInventory   Stage = "inventory"
	StageLLM         Stage = "llm"
	StageApology     Stage = "apology"
	StageEmpty       Stage = "empty"
)

// Inbound is one customer message.
type Inbound struct {
	UserID string `json:"userId"`
	Text   string `json:"messageText"`
}

// Reply is the text to send back.
type Reply struct {
	Text  string
	Stage Stage
}

// Appointments captures appointment details across messages.
type Appointments interface {
	Update(ctx context.Context, userID, text string) (appointment.UpdateResult, error)
	Revalidate(appt appointment.Finalized) (appointment.Finalized, error)
	Reset(ctx context.Context, userID string) error
}

// History holds the rolling model context per user.
type History interface {
	Append(ctx context.Context, userID, role, text string) error
	Context(ctx context.Context, userID string) ([]conversation.ChatMessage, error)
	Clear(ctx context.Context, userID string) error
}

// Notifier receives finalized appointments and intent leads.
type Notifier interface {
	NotifyAppointment(ctx context.Context, appt appointment.Finalized) error
	NotifyLead(ctx context.Context, lead leads.Lead) error
}

// Orchestrator runs the reply pipeline. Messages from one user are handled
// one at a time; different users never wait on each other.
type Orchestrator struct {
	appointments Appointments
	history      History
	llm          conversation.LLMClient
	inventory    inventory.Searcher
	notifier     Notifier
	metrics      *metrics.ChatMetrics
	logger       *logging.Logger

	dealerName       string
	dealerPhone      string
	llmTimeout       time.Duration
	inventoryTimeout time.Duration
	notifyTimeout    time.Duration
	pick             func(n int) int
	now              func() time.Time

	locks    *keyedMutex
	inflight sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInventory enables the inventory stage.
func WithInventory(s inventory.Searcher) Option {
	return func(o *Orchestrator) { o.inventory = s }
}

// WithNotifier sets where appointments and leads are sent.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDealer sets the name and phone number used in apologies.
func WithDealer(name, phone string) Option {
	return func(o *Orchestrator) {
		if name = strings.TrimSpace(name); name != "" {
			o.dealerName = name
		}
		if phone = strings.TrimSpace(phone); phone != "" {
			o.dealerPhone = phone
		}
	}
}

// WithTimeouts overrides the per-call budgets. Zero keeps the default.
func WithTimeouts(llm, inventory, notify time.Duration) Option {
	return func(o *Orchestrator) {
		if llm > 0 {
			o.llmTimeout = llm
		}
		if inventory > 0 {
			o.inventoryTimeout = inventory
		}
		if notify > 0 {
			o.notifyTimeout = notify
		}
	}
}

// WithPicker replaces the random template picker. pick(n) must return a
// value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(o *Orchestrator) {
		if pick != nil {
			o.pick = pick
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator wires the reply pipeline.
func NewOrchestrator(appts Appointments, history History, llm conversation.LLMClient, opts ...Option) *Orchestrator {
	if appts == nil {
		panic("chat: appointment session cannot be nil")
	}
	if history == nil {
		panic("chat: history cannot be nil")
	}
	if llm == nil {
		panic("chat: llm client cannot be nil")
	}
	o := &Orchestrator{
		appointments:     appts,
		history:          history,
		llm:              llm,
		logger:           logging.Default(),
		dealerName:       DefaultDealerName,
		dealerPhone:      DefaultDealerPhone,
		llmTimeout:       defaultLLMTimeout,
		inventoryTimeout: defaultInventoryTimeout,
		notifyTimeout:    defaultNotifyTimeout,
		pick:             rand.Intn,
		now:              time.Now,
		locks:            newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle produces the reply for one message. It never fails: collaborator
// errors are logged and turned into an apology.
func (o *Orchestrator) Handle(ctx context.Context, in Inbound) Reply {
	start := time.Now()
	ctx, span := chatTracer.Start(ctx, "chat.handle")
	defer span.End()

	unlock := o.locks.Lock(in.UserID)
	defer unlock()

	reply := o.handle(ctx, in)
	span.SetAttributes(
		attribute.String("chat.user_id", in.UserID),
		attribute.String("chat.stage", string(reply.Stage)),
	)
	o.metrics.ObserveTurn(string(reply.Stage), time.Since(start).Seconds())
	o.logger.Info("chat turn handled", "user_id", in.UserID, "stage", reply.Stage, "duration_ms", time.Since(start).Milliseconds())
	return reply
}

func (o *Orchestrator) handle(ctx context.Context, in Inbound) Reply {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Reply{Text: "Sorry, I can only read text messages right now. How can I help you today?", Stage: StageEmpty}
	}

	if intent, ok := DetectIntent(text); ok {
		lead := leads.NewMessengerLead(in.UserID, string(intent), text, o.now())
		o.dispatch("lead", in.UserID, func(ctx context.Context) error {
			return o.notifier.NotifyLead(ctx, lead)
		})
		return Reply{Text: o.intentReply(intent), Stage: StageIntent}
	}

	result, err := o.appointments.Update(ctx, in.UserID, text)
	if err != nil {
		// the rest of the pipeline still works without the capture
		o.logger.Error("chat: appointment update failed", "user_id", in.UserID, "error", err)
		result = appointment.UpdateResult{}
	}
	if result.Appointment != nil {
		return o.confirm(in.UserID, *result.Appointment)
	}

	if o.inventory != nil && IsInventoryQuestion(text) {
		return o.searchInventory(ctx, in.UserID, text)
	}

	return o.complete(ctx, in.UserID, text, result)
}

func (o *Orchestrator) confirm(userID string, appt appointment.Finalized) Reply {
	checked, err := o.appointments.Revalidate(appt)
	if err != nil {
		o.logger.Error("chat: revalidate appointment failed", "user_id", userID, "error", err)
		checked = appt
	}
	o.metrics.ObserveAppointment(checked.Rescheduled())
	o.dispatch("appointment", userID, func(ctx context.Context) error {
		return o.notifier.NotifyAppointment(ctx, checked)
	})
	return Reply{Text: o.confirmation(checked), Stage: StageAppointment}
}

func (o *Orchestrator) confirmation(appt appointment.Finalized) string {
	var b strings.Builder
	if appt.Name != "" {
		fmt.Fprintf(&b, "Thank you, %s! ", firstName(appt.Name))
	} else {
		b.WriteString("Thank you! ")
	}
	if !appt.HasTime() {
		fmt.Fprintf(&b, "We have your request for a %s at %s. A member of our team will call you to set a time.", appt.ServiceOrDefault(), o.dealerName)
		fmt.Fprintf(&b, " If you have any questions in the meantime, call us at %s.", o.dealerPhone)
		return b.String()
	}
	fmt.Fprintf(&b, "Your %s at %s is booked for %s.", appt.ServiceOrDefault(), o.dealerName, appointment.DisplayTime(appt.DateTime))
	if appt.RescheduleNote != "" {
		b.WriteString(" ")
		b.WriteString(appt.RescheduleNote)
	}
	fmt.Fprintf(&b, " A member of our team will reach out to confirm. If you need to make a change, call us at %s.", o.dealerPhone)
	return b.String()
}

func (o *Orchestrator) searchInventory(ctx context.Context, userID, text string) Reply {
	ctx, cancel := context.WithTimeout(ctx, o.inventoryTimeout)
	defer cancel()

	out, err := o.inventory.Search(ctx, text)
	if err != nil {
		o.logger.Error("chat: inventory search failed", "user_id", userID, "error", err)
		return Reply{
			Text: fmt.Sprintf("I apologize, but I'm having trouble accessing the inventory system right now. Please try again in a moment or contact %s directly at %s for the most up-to-date inventory information.",
				o.dealerName, o.dealerPhone),
			Stage: StageApology,
		}
	}
	return Reply{Text: out, Stage: StageInventory}
}

func (o *Orchestrator) complete(ctx context.Context, userID, text string, capture appointment.UpdateResult) Reply {
	if err := o.history.Append(ctx, userID, conversation.ChatRoleUser, text); err != nil {
		o.logger.Error("chat: append user turn failed", "user_id", userID, "error", err)
		return o.apology()
	}
	turns, err := o.history.Context(ctx, userID)
	if err != nil {
		o.logger.Error("chat: load history failed", "user_id", userID, "error", err)
		return o.apology()
	}

	llmCtx, cancel := context.WithTimeout(ctx, o.llmTimeout)
	defer cancel()
	resp, err := o.llm.Complete(llmCtx, conversation.LLMRequest{
		System:      captureHints(capture),
		Messages:    turns,
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	})
	if err != nil {
		o.logger.Error("chat: completion failed", "user_id", userID, "error", err)
		return o.apology()
	}
	answer := resp.Answer()
	if answer == "" {
		o.logger.Warn("chat: completion returned empty text", "user_id", userID, "model", resp.Model)
		return o.apology()
	}

	if err := o.history.Append(ctx, userID, conversation.ChatRoleAssistant, answer); err != nil {
		o.logger.Error("chat: append assistant turn failed", "user_id", userID, "error", err)
	}
	return Reply{Text: answer, Stage: StageLLM}
}

// captureHints tells the model what an in-progress booking still needs.
func captureHints(r appointment.UpdateResult) []string {
	if r.State.Empty() {
		return nil
	}
	var hints []string
	if len(r.Missing) > 0 {
		labels := make([]string, 0, len(r.Missing))
		for _, slot := range r.Missing {
			labels = append(labels, slot.Label())
		}
		hints = append(hints, "The customer is setting up a visit. Still needed: "+strings.Join(labels, ", ")+". Ask for these naturally.")
	}
	if r.Adjustment != nil {
		hints = append(hints, "Let the customer know: "+appointment.RescheduleNote(*r.Adjustment))
	}
	return hints
}

func (o *Orchestrator) apology() Reply {
	return Reply{
		Text:  fmt.Sprintf("I apologize, but I'm having trouble right now. Please try again in a moment or call us at %s.", o.dealerPhone),
		Stage: StageApology,
	}
}

func (o *Orchestrator) intentReply(intent Intent) string {
	pool := intentReplies[intent]
	return pool[o.pick(len(pool))]
}

// dispatch runs fn in the background with its own timeout. Failures are
// logged and counted, never surfaced to the customer.
func (o *Orchestrator) dispatch(kind, userID string, fn func(ctx context.Context) error) {
	if o.notifier == nil {
		return
	}
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			o.metrics.ObserveSideEffect(kind, "error")
			o.logger.Error("chat: side effect failed", "kind", kind, "user_id", userID, "error", err)
			return
		}
		o.metrics.ObserveSideEffect(kind, "ok")
	}()
}

// Wait blocks until every dispatched side effect has finished.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

// Clear forgets the user's history and any appointment in progress.
func (o *Orchestrator) Clear(ctx context.Context, userID string) error {
	unlock := o.locks.Lock(userID)
	defer unlock()

	if err := o.history.Clear(ctx, userID); err != nil {
		return fmt.Errorf("chat: clear history: %w", err)
	}
	if err := o.appointments.Reset(ctx, userID); err != nil {
		return fmt.Errorf("chat: reset appointment: %w", err)
	}
	return nil
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
