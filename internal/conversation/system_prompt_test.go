package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(PromptConfig{
		DealerName:  "Johnson City Nissan",
		DealerPhone: "(423) 282-2221",
		Hours:       "Monday: 9:00 AM - 7:00 PM",
		Required:    []string{"full name", "phone number", "preferred day and time"},
	})

	assert.Contains(t, prompt, "Johnson City Nissan")
	assert.Contains(t, prompt, "(423) 282-2221")
	assert.Contains(t, prompt, "full name, phone number, and preferred day and time")
	assert.Contains(t, prompt, "BUSINESS HOURS: Monday: 9:00 AM - 7:00 PM")
}

func TestBuildSystemPromptDefaults(t *testing.T) {
	prompt := BuildSystemPrompt(PromptConfig{})
	assert.Contains(t, prompt, "our dealership")
	assert.Contains(t, prompt, "see our website")
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", joinList(nil))
	assert.Equal(t, "a", joinList([]string{"a"}))
	assert.Equal(t, "a and b", joinList([]string{"a", "b"}))
	assert.Equal(t, "a, b, and c", joinList([]string{"a", "b", "c"}))
}
