package bootstrap

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/nahalewski/Facebook-Messenger-Openai/internal/config"
	"github.com/nahalewski/Facebook-Messenger-Openai/internal/worker"
)

const memoryQueueBuffer = 256

// BuildQueue returns the inbound message queue: an in-process channel when
// USE_MEMORY_QUEUE is set, SQS otherwise.
func BuildQueue(cfg *appconfig.Config, awsCfg *aws.Config) (worker.Queue, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if cfg.UseMemoryQueue {
		return worker.NewMemoryQueue(memoryQueueBuffer), nil
	}
	if awsCfg == nil {
		return nil, fmt.Errorf("bootstrap: sqs queue requires aws config")
	}
	if cfg.ConversationQueueURL == "" {
		return nil, fmt.Errorf("bootstrap: CONVERSATION_QUEUE_URL is required")
	}
	return worker.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.ConversationQueueURL), nil
}
