package decision

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"swarm/internal/gateway/provider"
	"swarm/internal/logger"
	"swarm/internal/pkg/circuit"
)

// ProviderSource 把大模型端点包装成 ExternalSource：先限流，再过熔断器，单次调用不重试。
type ProviderSource struct {
	provider    provider.ModelProvider
	breaker     *circuit.CircuitBreaker
	limiter     *rate.Limiter
	temperature float64
}

func NewProviderSource(p provider.ModelProvider, breaker *circuit.CircuitBreaker, limiter *rate.Limiter, temperature float64) *ProviderSource {
	return &ProviderSource{provider: p, breaker: breaker, limiter: limiter, temperature: temperature}
}

func (s *ProviderSource) ID() string { return s.provider.ID() }

func (s *ProviderSource) Consult(ctx context.Context, p Prompt) (string, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return "", fmt.Errorf("%w: rate limited", ErrSourceUnavailable)
	}
	if s.breaker != nil && !s.breaker.Allow() {
		return "", fmt.Errorf("%w: circuit open", ErrSourceUnavailable)
	}

	logger.LogLLMRequest(s.provider.ID(), p.Agent, p.System, p.User)
	start := time.Now()
	raw, err := s.provider.Call(ctx, provider.ChatPayload{
		System:      p.System,
		User:        p.User,
		ExpectJSON:  s.provider.ExpectsJSON(),
		Temperature: s.temperature,
	})
	logger.LogLLMResponse(s.provider.ID(), p.Agent, raw, time.Since(start), err)
	if err != nil {
		if s.breaker != nil {
			s.breaker.RecordFailure()
		}
		return "", fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, s.provider.ID(), err)
	}
	if s.breaker != nil {
		s.breaker.RecordSuccess()
	}
	return raw, nil
}
