package pushsvc

import (
	"fmt"
	"log"
	"sync"

	"github.com/secmun/podium/core"
)

var (
	SentMessages = make([]core.PushMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	disableOutput bool
}

var _ core.PushService = (*consoleService)(nil)

func NewConsoleService() core.PushService {
	return &consoleService{}
}

func (svc consoleService) SendMessages(messages ...*core.PushMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.PushMessage) {
	if !msg.HasTarget() {
		return
	}
	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()

	if !svc.disableOutput {
		target := msg.Topic
		if target == "" {
			target = msg.Token
		}
		log.Println(fmt.Sprintf("push -> %s: %s | %s", target, msg.Title, msg.Body))
	}
}

// ClearSentMessages resets the captured message log.
func ClearSentMessages() {
	mu.Lock()
	SentMessages = SentMessages[:0]
	mu.Unlock()
}

type consoleServiceMock struct {
	consoleService
}

func NewConsoleServiceMock() core.PushService {
	return &consoleServiceMock{consoleService{disableOutput: true}}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.PushMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.sendMessage(msg)
	}
}
