package agent

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"gorm.io/datatypes"

	"github.com/agentdock/agentdock-be/internal/core/events"
	"github.com/agentdock/agentdock-be/internal/core/kb"
	"github.com/agentdock/agentdock-be/internal/core/llm"
	"github.com/agentdock/agentdock-be/internal/core/profile"
	"github.com/agentdock/agentdock-be/internal/models"
	"github.com/agentdock/agentdock-be/internal/repositories"
)

const (
	// turnTimeout bounds one full turn, both model passes included.
	turnTimeout = 25 * time.Second

	historyLimit   = 20
	knowledgeLimit = 4
)

// Degraded replies keep the conversation alive when the model is
// unreachable. The wording never admits internal failure details.
const (
	DegradedRateLimitReply = "I'm getting a lot of traffic right now and can't reach my AI brain for a moment. " +
		"Please wait a few minutes and try again - your previous messages are safe and you won't lose your chat."
	DegradedErrorReply = "I received your message but there was an issue talking to the AI service. " +
		"Please try again in a moment."
)

// ReplyGenerator is the completion surface the engine depends on.
// *llm.Gateway satisfies it; tests script it.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, messages []openai.ChatCompletionMessage) (string, llm.Meta, error)
}

// KnowledgeRetriever is the read side of the knowledge index.
type KnowledgeRetriever interface {
	Retrieve(tenantID uuid.UUID, query string, limit int) ([]kb.Chunk, error)
}

// Engine runs one conversation turn end to end: sanitize, retrieve,
// assemble, complete, execute actions, complete again, persist.
type Engine struct {
	gateway     ReplyGenerator
	retriever   KnowledgeRetriever
	executor    *Executor
	customers   repositories.CustomerRepo
	messages    repositories.MessageRepo
	states      repositories.StateRepo
	cache       repositories.CacheRepo
	traces      repositories.TraceRepo
	broadcaster *events.Broadcaster
	limiter     *AbuseLimiter
}

type EngineDeps struct {
	Gateway     ReplyGenerator
	Retriever   KnowledgeRetriever
	Executor    *Executor
	Customers   repositories.CustomerRepo
	Messages    repositories.MessageRepo
	States      repositories.StateRepo
	Cache       repositories.CacheRepo
	Traces      repositories.TraceRepo
	Broadcaster *events.Broadcaster
}

func NewEngine(deps EngineDeps) *Engine {
	return &Engine{
		gateway:     deps.Gateway,
		retriever:   deps.Retriever,
		executor:    deps.Executor,
		customers:   deps.Customers,
		messages:    deps.Messages,
		states:      deps.States,
		cache:       deps.Cache,
		traces:      deps.Traces,
		broadcaster: deps.Broadcaster,
		limiter:     NewAbuseLimiter(),
	}
}

// HandleTurn processes one inbound customer message and returns the
// reply to send back. Errors are reserved for failures before the
// conversation is safely recorded; once the turn is underway, model
// problems degrade into friendly replies instead of errors.
func (e *Engine) HandleTurn(ctx context.Context, tenant *models.Tenant, customerName, customerPhone, messageText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	phone := NormalizePhone(customerPhone)
	text := SanitizeInput(messageText)
	if text == "" {
		return "", errors.New("empty message")
	}
	prof := profile.Parse(tenant.BusinessProfile)

	limitKey := tenant.ID.String() + ":" + phone
	if phone == "" {
		limitKey = tenant.ID.String() + ":anonymous"
	}
	if e.limiter.Blocked(limitKey) {
		return TooManyAttemptsReply, nil
	}

	customer, err := e.customers.GetOrCreate(tenant.ID, phone)
	if err != nil {
		return "", err
	}
	if customerName != "" && customer.Name == "" {
		if err := e.customers.Enrich(customer.ID, customerName, ""); err != nil {
			log.Warn().Err(err).Msg("customer name enrichment failed")
		}
	}

	inbound := &models.Message{
		TenantID:   tenant.ID,
		CustomerID: &customer.ID,
		Direction:  models.DirectionIn,
		Text:       text,
	}
	if err := e.messages.Append(inbound); err != nil {
		return "", err
	}
	e.publish(events.Event{
		Type:     events.TypeMessageIn,
		TenantID: tenant.ID,
		Data:     map[string]any{"customer_phone": phone, "text": text},
	})

	// Manipulation attempts never reach the model. Repeat offenders get
	// throttled on top.
	if DetectJailbreak(messageText) {
		e.limiter.Record(limitKey)
		e.finishTurn(tenant.ID, customer, phone, SafeFallbackReply)
		e.writeTrace(tenant.ID, customer, phone, inbound.ID, "", nil, nil, nil, "jailbreak")
		return SafeFallbackReply, nil
	}

	chunks, err := e.retriever.Retrieve(tenant.ID, text, knowledgeLimit)
	if err != nil {
		log.Error().Err(err).Msg("knowledge retrieval failed, continuing without")
		chunks = nil
	}

	historyText := e.historyText(tenant.ID, customer.ID)
	now := TenantNow(prof)
	state := e.loadState(tenant.ID, customer.ID)

	cacheKey := CacheKey(tenant.ID, phone, text, historyText, chunks)
	if cached, hit, err := e.cache.Get(tenant.ID, cacheKey); err == nil && hit {
		e.finishTurn(tenant.ID, customer, phone, cached)
		return cached, nil
	}

	input := llm.PromptInput{
		TenantID:          tenant.ID.String(),
		Profile:           prof,
		KnowledgeText:     knowledgeText(chunks),
		CustomerStateJSON: string(state.JSON()),
		History:           historyText,
		CurrentDate:       now.Format("2006-01-02"),
		CurrentWeekday:    now.Weekday().String(),
		UserMessage:       text,
	}

	raw, meta, err := e.gateway.GenerateReply(ctx, llm.BuildMessages(input))
	if err != nil {
		reply := DegradedErrorReply
		if meta.ErrorType == llm.ErrorTypeRateLimit {
			reply = DegradedRateLimitReply
		}
		log.Error().Err(err).Str("error_type", meta.ErrorType).Msg("completion failed, sending degraded reply")
		e.finishTurn(tenant.ID, customer, phone, reply)
		e.writeTrace(tenant.ID, customer, phone, inbound.ID, meta.ModelUsed, chunks, nil, nil, meta.ErrorType)
		return reply, nil
	}

	replyText, actions := ParseCompletion(raw)
	replyText = FilterReply(replyText)

	var toolResults []map[string]any
	if len(actions) > 0 {
		turn := Turn{Tenant: tenant, Profile: prof, Customer: customer, Phone: phone, Now: now}
		toolResults = e.executor.ExecuteAll(ctx, turn, actions, &state)
	}

	if len(toolResults) > 0 {
		// Persist state before the second pass; the model must see the
		// post-action world even if the second completion fails.
		e.saveState(tenant.ID, customer.ID, phone, state)

		input.ToolResultsJSON = marshalResults(toolResults)
		raw2, meta2, err2 := e.gateway.GenerateReply(ctx, llm.BuildMessages(input))
		if err2 == nil {
			// The second pass must not emit further actions; any that
			// slip through are dropped.
			final, _ := ParseCompletion(raw2)
			if final = FilterReply(final); final != "" {
				replyText = final
			}
			if meta.ModelUsed == "" {
				meta = meta2
			}
		} else {
			log.Warn().Err(err2).Msg("second completion pass failed, keeping first reply")
		}
	} else {
		// Side-effect-free turns are safe to replay from cache.
		if err := e.cache.Put(tenant.ID, cacheKey, replyText); err != nil {
			log.Warn().Err(err).Msg("reply cache write failed")
		}
		e.saveState(tenant.ID, customer.ID, phone, state)
	}

	e.writeTrace(tenant.ID, customer, phone, inbound.ID, meta.ModelUsed, chunks, actions, toolResults, meta.ErrorType)
	e.finishTurn(tenant.ID, customer, phone, replyText)
	return replyText, nil
}

// finishTurn records the outbound side of the transcript.
func (e *Engine) finishTurn(tenantID uuid.UUID, customer *models.Customer, phone, reply string) {
	outbound := &models.Message{
		TenantID:   tenantID,
		CustomerID: &customer.ID,
		Direction:  models.DirectionOut,
		Text:       reply,
	}
	if err := e.messages.Append(outbound); err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("outbound message append failed")
	}
	e.publish(events.Event{
		Type:     events.TypeMessageOut,
		TenantID: tenantID,
		Data:     map[string]any{"customer_phone": phone, "text": reply},
	})
}

func (e *Engine) publish(evt events.Event) {
	if e.broadcaster != nil {
		e.broadcaster.Publish(evt)
	}
}

func (e *Engine) historyText(tenantID, customerID uuid.UUID) string {
	messages, err := e.messages.Recent(tenantID, customerID, historyLimit)
	if err != nil {
		log.Warn().Err(err).Msg("history load failed, continuing without")
		return ""
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Agent"
		if m.Direction == models.DirectionIn {
			speaker = "Customer"
		}
		lines = append(lines, speaker+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) loadState(tenantID, customerID uuid.UUID) State {
	raw, err := e.states.Get(tenantID, customerID)
	if err != nil {
		log.Warn().Err(err).Msg("state load failed, starting idle")
		return State{Mode: ModeIdle}
	}
	return ParseState(raw)
}

func (e *Engine) saveState(tenantID, customerID uuid.UUID, phone string, state State) {
	if err := e.states.Save(tenantID, customerID, phone, state.JSON()); err != nil {
		log.Error().Err(err).Msg("state save failed")
	}
}

func (e *Engine) writeTrace(tenantID uuid.UUID, customer *models.Customer, phone string, messageInID uuid.UUID,
	modelUsed string, chunks []kb.Chunk, actions []Action, toolResults []map[string]any, errorType string) {

	trace := &models.AgentTrace{
		TenantID:      tenantID,
		CustomerPhone: phone,
		MessageInID:   &messageInID,
		ModelUsed:     modelUsed,
		KBChunkIDs:    chunkIDList(chunks),
		ErrorType:     errorType,
	}
	if customer != nil {
		trace.CustomerID = &customer.ID
	}
	if len(actions) > 0 {
		if raw, err := json.Marshal(actions); err == nil {
			trace.Actions = datatypes.JSON(raw)
		}
	}
	if len(toolResults) > 0 {
		if raw, err := json.Marshal(toolResults); err == nil {
			trace.ToolResults = datatypes.JSON(raw)
		}
	}
	if err := e.traces.Create(trace); err != nil {
		log.Warn().Err(err).Msg("trace write failed")
	}
}

func knowledgeText(chunks []kb.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		blocks = append(blocks, "[KB#"+c.ID.String()+"] "+c.Content)
	}
	return strings.Join(blocks, "\n\n")
}

func chunkIDList(chunks []kb.Chunk) string {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID.String())
	}
	return strings.Join(ids, ",")
}

func marshalResults(results []map[string]any) string {
	raw, err := json.Marshal(results)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

var utcOffsetRe = regexp.MustCompile(`^UTC([+-]\d{1,2})$`)

// TenantNow returns the current time on the tenant's wall clock.
// Accepts IANA zone names and simple UTC offsets like "UTC+1"; falls
// back to UTC when the zone is missing or unknown.
func TenantNow(prof profile.Profile) time.Time {
	tz := prof.Timezone()
	if tz == "" {
		return time.Now().UTC()
	}
	if m := utcOffsetRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(tz))); m != nil {
		hours, err := strconv.Atoi(m[1])
		if err == nil {
			return time.Now().In(time.FixedZone(tz, hours*3600))
		}
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return time.Now().In(loc)
	}
	return time.Now().UTC()
}
