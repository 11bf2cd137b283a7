package llm

import (
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdock/agentdock-be/internal/core/profile"
)

func fullInput() PromptInput {
	return PromptInput{
		TenantID:          "tenant-1",
		Profile:           profile.Profile{"name": "Glow Salon"},
		KnowledgeText:     "[KB#1] Refunds within 7 days.",
		CustomerStateJSON: `{"mode":"awaiting_time"}`,
		History:           "Customer: hi\nAgent: hello!",
		CurrentDate:       "2025-03-03",
		CurrentWeekday:    "Monday",
		UserMessage:       "can I book tomorrow?",
	}
}

func TestBuildMessagesLayerOrder(t *testing.T) {
	messages := BuildMessages(fullInput())
	require.Len(t, messages, 8)

	assert.Contains(t, messages[0].Content, "AI assistant for a small business")
	assert.Contains(t, messages[0].Content, "tenant-1")
	assert.Contains(t, messages[1].Content, "business profile")
	assert.Contains(t, messages[2].Content, "[KB#1]")
	assert.Contains(t, messages[3].Content, "awaiting_time")
	assert.Contains(t, messages[4].Content, "conversation history")
	assert.Contains(t, messages[5].Content, "2025-03-03")
	assert.Contains(t, messages[5].Content, "Monday")
	assert.Contains(t, messages[6].Content, "FINAL SECURITY REMINDER")

	last := messages[len(messages)-1]
	assert.Equal(t, openai.ChatMessageRoleUser, last.Role)
	assert.Equal(t, "can I book tomorrow?", last.Content)

	for _, m := range messages[:len(messages)-1] {
		assert.Equal(t, openai.ChatMessageRoleSystem, m.Role)
	}
}

func TestBuildMessagesSkipsEmptyLayers(t *testing.T) {
	messages := BuildMessages(PromptInput{UserMessage: "hello"})
	require.Len(t, messages, 3)
	assert.Contains(t, messages[0].Content, "AI assistant")
	assert.Contains(t, messages[1].Content, "FINAL SECURITY REMINDER")
	assert.Equal(t, "hello", messages[2].Content)
}

func TestBuildMessagesSkipsEmptyStateDocument(t *testing.T) {
	in := PromptInput{CustomerStateJSON: "{}", UserMessage: "hi"}
	for _, m := range BuildMessages(in) {
		assert.NotContains(t, m.Content, "customer state")
	}
}

func TestBuildMessagesSecondPassSuppressesActions(t *testing.T) {
	in := fullInput()
	in.ToolResultsJSON = `[{"type":"QUOTE_PRICE","ok":true,"price":150000}]`
	messages := BuildMessages(in)

	var found bool
	for _, m := range messages {
		if strings.Contains(m.Content, "QUOTE_PRICE") {
			found = true
			assert.Contains(t, m.Content, "DO NOT output any ACTION_JSON lines")
		}
	}
	assert.True(t, found, "tool results layer missing")
}

func TestBuildMessagesDateOnlyVariant(t *testing.T) {
	in := PromptInput{CurrentDate: "2025-03-03", UserMessage: "hi"}
	messages := BuildMessages(in)

	var found bool
	for _, m := range messages {
		if strings.Contains(m.Content, "Today's date is 2025-03-03") {
			found = true
			assert.NotContains(t, m.Content, "day of the week is")
		}
	}
	assert.True(t, found)
}

func TestPersonaPromptListsEveryAction(t *testing.T) {
	persona := BuildMessages(PromptInput{UserMessage: "x"})[0].Content
	for _, action := range []string{
		"CREATE_APPOINTMENT", "QUOTE_PRICE", "CHECK_AVAILABILITY",
		"CREATE_ORDER", "ESCALATE_TO_HUMAN", "CREATE_COMPLAINT", "UPDATE_PROFILE_FIELD",
	} {
		assert.Contains(t, persona, action)
	}
}
