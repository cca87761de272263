package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nyan-bot/internal/dto"
	"nyan-bot/internal/entity"
	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/repository/contract"
	"nyan-bot/pkg/sequencer"

	"golang.org/x/text/unicode/norm"
)

var ErrEmptyQuery = errors.New("query must not be empty")

type IBotService interface {
	// Ask hands a query to the sequencer. It returns once the request is
	// admitted or queued, never after the answer has been produced.
	Ask(ctx context.Context, requester string, target sequencer.ReplyTarget, query string) (sequencer.Admission, error)
	// SetStyleMode applies "on" or "off" and returns the confirmation text.
	SetStyleMode(ctx context.Context, requester, status string) (string, error)
	Status() dto.BotStatusResponse
	GetUsage(ctx context.Context, requester string) (*dto.UsageResponse, error)
	ListUsage(ctx context.Context) ([]dto.UsageResponse, error)
}

type botService struct {
	sequencer *sequencer.Sequencer
	usageRepo contract.UsageRepository
	provider  string
	logger    logger.ILogger
}

func NewBotService(seq *sequencer.Sequencer, usageRepo contract.UsageRepository, provider string, log logger.ILogger) IBotService {
	return &botService{
		sequencer: seq,
		usageRepo: usageRepo,
		provider:  provider,
		logger:    log,
	}
}

func (s *botService) Ask(ctx context.Context, requester string, target sequencer.ReplyTarget, query string) (sequencer.Admission, error) {
	if strings.TrimSpace(query) == "" {
		return 0, ErrEmptyQuery
	}
	// Hangul typed on some clients arrives as decomposed jamo
	query = norm.NFC.String(query)

	req := sequencer.NewPendingRequest(target, requester, query)
	admission, err := s.sequencer.Submit(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("submit request: %w", err)
	}

	s.logger.Info(logger.ModuleSequencer, "Request admitted", map[string]interface{}{
		"request_id": req.ID.String(),
		"requester":  requester,
		"admission":  admission.String(),
	})
	return admission, nil
}

func (s *botService) SetStyleMode(ctx context.Context, requester, status string) (string, error) {
	on, err := ParseStyleMode(status)
	if err != nil {
		return "", err
	}

	confirmation := s.sequencer.SetStyleMode(on)
	s.logger.Info(logger.ModuleSequencer, "Style mode set", map[string]interface{}{
		"requester":  requester,
		"style_mode": on,
	})
	return confirmation, nil
}

func (s *botService) Status() dto.BotStatusResponse {
	snap := s.sequencer.Snapshot()
	return dto.BotStatusResponse{
		Busy:       snap.Busy,
		QueueDepth: snap.QueueDepth,
		StyleMode:  snap.StyleMode,
		Served:     snap.Served,
		Failed:     snap.Failed,
		Provider:   s.provider,
	}
}

func (s *botService) GetUsage(ctx context.Context, requester string) (*dto.UsageResponse, error) {
	u, err := s.usageRepo.Get(ctx, requester)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	res := toUsageResponse(u)
	return &res, nil
}

func (s *botService) ListUsage(ctx context.Context) ([]dto.UsageResponse, error) {
	all, err := s.usageRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]dto.UsageResponse, 0, len(all))
	for _, u := range all {
		res = append(res, toUsageResponse(u))
	}
	return res, nil
}

func toUsageResponse(u *entity.Usage) dto.UsageResponse {
	res := dto.UsageResponse{
		Requester: u.Requester,
		Completed: u.Completed,
		Failed:    u.Failed,
		Queued:    u.Queued,
		Rejected:  u.Rejected,
	}
	if !u.LastSeenAt.IsZero() {
		t := u.LastSeenAt
		res.LastSeenAt = &t
	}
	return res
}
