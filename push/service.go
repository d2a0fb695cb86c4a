package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"yapper/models"
)

// Service fans a notification out to a set of recipients.
type Service struct {
	sender    Sender
	endpoints EndpointStore
	logger    zerolog.Logger
}

func NewService(sender Sender, endpoints EndpointStore, logger zerolog.Logger) *Service {
	return &Service{
		sender:    sender,
		endpoints: endpoints,
		logger:    logger.With().Str("component", "push").Logger(),
	}
}

// FanOut delivers n to every recipient with a registered endpoint and
// waits for all deliveries to finish. Recipients without an endpoint are
// skipped. Delivery errors are logged, never returned; an endpoint the
// transport reports as gone (404 or 410) is cleared from the store so
// future fan-outs skip it.
func (s *Service) FanOut(ctx context.Context, recipients []models.User, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal notification payload")
		return
	}

	var wg sync.WaitGroup
	for i := range recipients {
		user := &recipients[i]
		if !user.HasPushEndpoint() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.deliver(ctx, user, payload)
		}()
	}
	wg.Wait()
}

func (s *Service) deliver(ctx context.Context, user *models.User, payload []byte) {
	status, err := s.sender.Send(ctx, payload, user.PushSubscription)
	if err == nil && status < http.StatusBadRequest {
		return
	}

	s.logger.Warn().
		Err(err).
		Int("status", status).
		Str("user", user.ID.Hex()).
		Msg("push delivery failed")

	if status == http.StatusNotFound || status == http.StatusGone {
		if err := s.endpoints.ClearPushSubscription(ctx, user.ID); err != nil {
			s.logger.Error().Err(err).Str("user", user.ID.Hex()).Msg("clear expired subscription")
		}
	}
}
