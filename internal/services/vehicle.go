package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bullwork-fleet/apiserver/internal/store"
	"github.com/bullwork-fleet/apiserver/types"
	"go.uber.org/zap"
)

// eventChannel is the broker channel fleet events are published to.
const eventChannel = "fleet.vehicle-events"

// VehicleRepository defines persistence operations for vehicles.
type VehicleRepository interface {
	List(ctx context.Context) ([]types.Vehicle, error)
	ListAssignedTo(ctx context.Context, userID int) ([]types.Vehicle, error)
	Get(ctx context.Context, id int) (types.Vehicle, error)
	GetByNumber(ctx context.Context, number string) (types.Vehicle, error)
	Create(ctx context.Context, vehicle types.Vehicle) (types.Vehicle, error)
	Update(ctx context.Context, vehicle types.Vehicle) (types.Vehicle, error)
	Assign(ctx context.Context, vehicleID, userID int) error
	Delete(ctx context.Context, id int) error
}

// EventPublisher sends fleet events to the configured broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// VehicleService encapsulates vehicle use-cases. Mutations publish a
// FleetEvent when a publisher is configured; publishing is best-effort
// and never fails the operation.
type VehicleService struct {
	repo      VehicleRepository
	publisher EventPublisher
	logger    *zap.Logger
}

func NewVehicleService(repo VehicleRepository, publisher EventPublisher, logger *zap.Logger) *VehicleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VehicleService{repo: repo, publisher: publisher, logger: logger}
}

func (s *VehicleService) List(ctx context.Context) ([]types.Vehicle, error) {
	return s.repo.List(ctx)
}

func (s *VehicleService) ListAssignedTo(ctx context.Context, userID int) ([]types.Vehicle, error) {
	return s.repo.ListAssignedTo(ctx, userID)
}

func (s *VehicleService) Get(ctx context.Context, id int) (types.Vehicle, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a vehicle after checking the number is not taken.
func (s *VehicleService) Create(ctx context.Context, vehicle types.Vehicle) (types.Vehicle, error) {
	_, err := s.repo.GetByNumber(ctx, vehicle.Number)
	if err == nil {
		return types.Vehicle{}, store.ErrDuplicate
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Vehicle{}, err
	}

	created, err := s.repo.Create(ctx, vehicle)
	if err != nil {
		return types.Vehicle{}, err
	}
	s.publishEvent(ctx, types.FleetEvent{Type: types.EventVehicleCreated, VehicleID: created.ID})
	return created, nil
}

// Update applies a partial update. Empty name/number keep the current
// value; a changed number is checked for uniqueness first.
func (s *VehicleService) Update(ctx context.Context, id int, name, number string) (types.Vehicle, error) {
	vehicle, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Vehicle{}, err
	}

	if number != "" && number != vehicle.Number {
		_, err := s.repo.GetByNumber(ctx, number)
		if err == nil {
			return types.Vehicle{}, store.ErrDuplicate
		}
		if !errors.Is(err, store.ErrNotFound) {
			return types.Vehicle{}, err
		}
		vehicle.Number = number
	}
	if name != "" {
		vehicle.Name = name
	}

	updated, err := s.repo.Update(ctx, vehicle)
	if err != nil {
		return types.Vehicle{}, err
	}
	s.publishEvent(ctx, types.FleetEvent{Type: types.EventVehicleUpdated, VehicleID: updated.ID})

	// Update writes scalar columns only; reload for the assignee join.
	return s.repo.Get(ctx, updated.ID)
}

// Assign points the vehicle at userID, overwriting any prior assignment,
// and returns the vehicle with the populated assignee.
func (s *VehicleService) Assign(ctx context.Context, vehicleID, userID int) (types.Vehicle, error) {
	if err := s.repo.Assign(ctx, vehicleID, userID); err != nil {
		return types.Vehicle{}, err
	}
	s.publishEvent(ctx, types.FleetEvent{Type: types.EventVehicleAssigned, VehicleID: vehicleID, UserID: userID})
	return s.repo.Get(ctx, vehicleID)
}

func (s *VehicleService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publishEvent(ctx, types.FleetEvent{Type: types.EventVehicleDeleted, VehicleID: id})
	return nil
}

func (s *VehicleService) publishEvent(ctx context.Context, event types.FleetEvent) {
	if s.publisher == nil {
		return
	}
	event.At = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal fleet event", zap.Error(err))
		return
	}
	if _, err := s.publisher.Publish(ctx, eventChannel, data, map[string]string{"type": event.Type}); err != nil {
		s.logger.Error("publish fleet event",
			zap.String("type", event.Type),
			zap.Int("vehicle_id", event.VehicleID),
			zap.Error(err),
		)
	}
}
