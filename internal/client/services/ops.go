package services

import (
	"context"

	"github.com/dmitrijs2005/imagegen/internal/client/client"
	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/logging"
)

// OpsService covers the operational endpoints: reserved instances, latest
// image and coupon balance.
type OpsService interface {
	ReservedStatus(ctx context.Context) (int, error)
	SetReserved(ctx context.Context, on bool) (*models.ReservedInstancesAck, error)
	// ToggleReserved reads the current status and requests the opposite.
	ToggleReserved(ctx context.Context) (*models.ReservedInstancesAck, int, error)
	LatestImage(ctx context.Context) (string, error)
	Coupons(ctx context.Context) (float64, error)
}

type opsService struct {
	api client.Client
	log logging.Logger
}

func NewOpsService(api client.Client, log logging.Logger) OpsService {
	if log == nil {
		log = logging.Nop()
	}
	return &opsService{api: api, log: log.With("component", "ops")}
}

func (s *opsService) ReservedStatus(ctx context.Context) (int, error) {
	return s.api.GetReservedInstancesStatus(ctx)
}

func (s *opsService) SetReserved(ctx context.Context, on bool) (*models.ReservedInstancesAck, error) {
	target := models.ReservedOff
	if on {
		target = models.ReservedOn
	}
	ack, err := s.api.SetReservedInstances(ctx, target)
	if err != nil {
		s.log.Warn(ctx, "reserved instances update failed", "target", target, "error", err)
		return ack, err
	}
	s.log.Info(ctx, "reserved instances updated", "target", target)
	return ack, nil
}

func (s *opsService) ToggleReserved(ctx context.Context) (*models.ReservedInstancesAck, int, error) {
	cur, err := s.ReservedStatus(ctx)
	if err != nil {
		return nil, 0, err
	}
	ack, err := s.SetReserved(ctx, cur == models.ReservedOff)
	if err != nil {
		return ack, cur, err
	}
	return ack, 1 - cur, nil
}

func (s *opsService) LatestImage(ctx context.Context) (string, error) {
	return s.api.GetLatestImage(ctx)
}

func (s *opsService) Coupons(ctx context.Context) (float64, error) {
	return s.api.GetCoupons(ctx)
}
