package whatsapp

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// MessageHandler turns one inbound customer message into a reply.
// Implemented by the conversation engine wiring in the API binary.
type MessageHandler func(ctx context.Context, fromPhone, pushName, text string) (string, error)

// Service is the application-facing wrapper around a Provider: it
// routes inbound messages to the handler and sends the reply back,
// with typing indicators while the reply is being generated.
type Service struct {
	provider Provider
	handler  MessageHandler
}

func NewService(storeURL string) (*Service, error) {
	provider, err := NewProvider(&ProviderConfig{StoreURL: storeURL})
	if err != nil {
		return nil, err
	}
	log.Info().Str("provider", provider.Name()).Msg("whatsapp provider ready")
	return &Service{provider: provider}, nil
}

// NewServiceWithProvider wires an explicit provider (for testing).
func NewServiceWithProvider(provider Provider) *Service {
	return &Service{provider: provider}
}

func (s *Service) Connect() error {
	return s.provider.Connect()
}

func (s *Service) Disconnect() {
	s.provider.Disconnect()
}

// SendText satisfies the notification sender contract.
func (s *Service) SendText(ctx context.Context, phoneNumber, message string) error {
	return s.provider.SendText(ctx, phoneNumber, message)
}

func (s *Service) GenerateQR() ([]byte, error) {
	return s.provider.GenerateQR()
}

func (s *Service) IsConnected() bool {
	return s.provider.IsConnected()
}

func (s *Service) PairedNumber() string {
	return s.provider.PairedNumber()
}

func (s *Service) StartKeepAlive(ctx context.Context) {
	s.provider.StartKeepAlive(ctx)
}

// StartListening registers the message routing loop. Own messages,
// group chats, and non-text payloads are ignored.
func (s *Service) StartListening(handler MessageHandler) error {
	s.handler = handler
	return s.provider.OnEvent(s.route)
}

func (s *Service) route(evt interface{}) {
	msg, ok := evt.(*events.Message)
	if !ok {
		return
	}
	if msg.Info.IsFromMe || msg.Info.Chat.Server == types.GroupServer {
		return
	}
	text := extractText(msg)
	if text == "" {
		return
	}

	from := msg.Info.Sender.User
	go s.handleInbound(from, msg.Info.PushName, text)
}

func (s *Service) handleInbound(from, pushName, text string) {
	if s.handler == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := s.provider.StartTyping(from); err != nil {
		log.Debug().Err(err).Msg("typing indicator failed")
	}
	defer func() {
		if err := s.provider.StopTyping(from); err != nil {
			log.Debug().Err(err).Msg("typing clear failed")
		}
	}()

	reply, err := s.handler(ctx, from, pushName, text)
	if err != nil {
		log.Error().Err(err).Str("from", from).Msg("inbound message handling failed")
		return
	}
	if strings.TrimSpace(reply) == "" {
		return
	}
	if err := s.provider.SendText(ctx, from, reply); err != nil {
		log.Error().Err(err).Str("to", from).Msg("reply send failed")
	}
}

func extractText(msg *events.Message) string {
	if msg.Message == nil {
		return ""
	}
	if text := msg.Message.GetConversation(); text != "" {
		return text
	}
	if ext := msg.Message.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}
