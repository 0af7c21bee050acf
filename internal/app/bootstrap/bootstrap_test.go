package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahalewski/Facebook-Messenger-Openai/internal/chat"
	appconfig "github.com/nahalewski/Facebook-Messenger-Openai/internal/config"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/conversation"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/leads"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/notify"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/worker"
	"github.com/nahalewski/Facebook-Messenger-Openai/pkg/logging"
)

type cannedLLM struct{ text string }

func (c cannedLLM) Complete(context.Context, conversation.LLMRequest) (conversation.LLMResponse, error) {
	return conversation.LLMResponse{Text: c.text}, nil
}

func testConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	dir := t.TempDir()
	return &appconfig.Config{
		SessionStore:           "memory",
		RequiredSlots:          "name,phone,datetime",
		DefaultAppointmentHour: 10,
		DealerName:             "Test Nissan",
		DealerPhone:            "(555) 000-1111",
		DealerTimezone:         "UTC",
		HistoryLimit:           10,
		LLMTimeout:             5 * time.Second,
		LeadsFile:              filepath.Join(dir, "leads.csv"),
		AppointmentsFile:       filepath.Join(dir, "appointments.csv"),
		EmailProvider:          "stub",
		FallbackProvider:       "openai",
		UseMemoryQueue:         true,
	}
}

func TestBuildRuntimeAnswersWithLLM(t *testing.T) {
	cfg := testConfig(t)
	rt, err := BuildRuntime(context.Background(), cfg, Deps{
		Logger: logging.New("error"),
		LLM:    cannedLLM{text: "We're open until 8 tonight."},
	})
	require.NoError(t, err)
	defer rt.Close()

	reply := rt.Orchestrator.Handle(context.Background(), chat.Inbound{UserID: "u1", Text: "What are your hours?"})
	assert.Equal(t, chat.StageLLM, reply.Stage)
	assert.Equal(t, "We're open until 8 tonight.", reply.Text)

	turns, err := rt.History.Context(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Contains(t, turns[0].Content, "Test Nissan")
	assert.Contains(t, turns[0].Content, "phone number")
}

func TestBuildRuntimeRecordsAppointmentsAndLeads(t *testing.T) {
	cfg := testConfig(t)
	rt, err := BuildRuntime(context.Background(), cfg, Deps{
		Logger: logging.New("error"),
		LLM:    cannedLLM{text: "ok"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	reply := rt.Orchestrator.Handle(ctx, chat.Inbound{UserID: "u1", Text: "John Smith 555-123-4567 tomorrow at 2pm"})
	assert.Equal(t, chat.StageAppointment, reply.Stage)
	reply = rt.Orchestrator.Handle(ctx, chat.Inbound{UserID: "u2", Text: "Do you take vouchers?"})
	assert.Equal(t, chat.StageIntent, reply.Stage)
	require.NoError(t, rt.Close())

	records, err := rt.Bookings.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "John Smith", records[0].Name)

	saved, err := leads.NewCSVRepository(cfg.LeadsFile).List(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "voucher", saved[0].Labels)
}

func TestBuildRuntimeIgnoresDealerNameAsCustomerName(t *testing.T) {
	cfg := testConfig(t)
	cfg.DealerName = "Johnson City Nissan"
	rt, err := BuildRuntime(context.Background(), cfg, Deps{
		Logger: logging.New("error"),
		LLM:    cannedLLM{text: "ok"},
	})
	require.NoError(t, err)
	defer rt.Close()

	ctx := context.Background()
	rt.Orchestrator.Handle(ctx, chat.Inbound{UserID: "u1", Text: "Is Johnson City Nissan open? 555-123-4567"})

	state, err := rt.Session.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, state.Name)
	assert.Equal(t, "5551234567", state.Phone)
}

func TestBuildRuntimeWithRedisStores(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.SessionStore = "redis"
	cfg.RedisAddr = mr.Addr()
	cfg.SessionTTL = time.Hour

	client, err := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	rt, err := BuildRuntime(context.Background(), cfg, Deps{
		Logger: logging.New("error"),
		Redis:  client,
		LLM:    cannedLLM{text: "ok"},
	})
	require.NoError(t, err)
	defer rt.Close()

	rt.Orchestrator.Handle(context.Background(), chat.Inbound{UserID: "u1", Text: "My name is John Smith"})
	assert.NotEmpty(t, mr.Keys())
}

func TestBuildRuntimeRedisWithoutClient(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionStore = "redis"
	_, err := BuildRuntime(context.Background(), cfg, Deps{LLM: cannedLLM{}})
	require.Error(t, err)
}

func TestBuildRuntimeRejectsUnknownSlot(t *testing.T) {
	cfg := testConfig(t)
	cfg.RequiredSlots = "name,favorite_color"
	_, err := BuildRuntime(context.Background(), cfg, Deps{LLM: cannedLLM{}})
	require.Error(t, err)
}

func TestBuildRedisClientSkippedForMemoryStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "localhost:6379"
	client, err := BuildRedisClient(context.Background(), cfg, nil, true)
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestBuildRedisClientPingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.SessionStore = "redis"
	cfg.RedisAddr = addr
	_, err := BuildRedisClient(context.Background(), cfg, nil, true)
	require.Error(t, err)
}

func TestBuildCalendarFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hours.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: America/Chicago\nmonday: {open: 8, close: 17}\n"), 0o644))

	cfg := testConfig(t)
	cfg.BusinessHoursFile = path
	cal, err := BuildCalendar(cfg)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", cal.Location().String())
	assert.True(t, cal.Hours(time.Sunday).Closed())
	assert.False(t, cal.Hours(time.Monday).Closed())
}

func TestBuildCalendarMissingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.BusinessHoursFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := BuildCalendar(cfg)
	require.Error(t, err)
}

func TestBuildEmailSender(t *testing.T) {
	cfg := testConfig(t)

	sender, err := BuildEmailSender(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &notify.StubEmailSender{}, sender)

	cfg.EmailProvider = "sendgrid"
	cfg.SendGridAPIKey = "SG.key"
	cfg.SendGridFromEmail = "bot@example.com"
	sender, err = BuildEmailSender(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &notify.SendGridSender{}, sender)

	cfg.SendGridAPIKey = ""
	_, err = BuildEmailSender(cfg, nil, nil)
	require.Error(t, err)

	cfg.EmailProvider = "ses"
	_, err = BuildEmailSender(cfg, nil, nil)
	require.Error(t, err)
}

func TestBuildLLMClientRequiresKey(t *testing.T) {
	cfg := testConfig(t)
	_, _, err := BuildLLMClient(context.Background(), cfg, nil, nil)
	require.Error(t, err)

	cfg.OpenAIAPIKey = "sk-test"
	cfg.PrimaryModel = "gpt-4"
	cfg.FallbackModel = "gpt-3.5-turbo"
	client, closer, err := BuildLLMClient(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.NoError(t, closer())
}

func TestBuildLeadsRepositoryFallsBackToMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.LeadsFile = ""
	assert.IsType(t, &leads.InMemoryRepository{}, BuildLeadsRepository(cfg, nil))
}

func TestBuildQueue(t *testing.T) {
	cfg := testConfig(t)
	q, err := BuildQueue(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &worker.MemoryQueue{}, q)

	cfg.UseMemoryQueue = false
	_, err = BuildQueue(cfg, nil)
	require.Error(t, err)
}
