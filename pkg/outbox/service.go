package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
)

// onceIndex is the partial unique index that allows a single invoice_paid
// row per invoice.
const onceIndex = "ux_outbox_events_invoice_paid"

// DomainEvent is what producers hand to Emit inside their own transaction.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Service writes outbox rows in the caller's transaction so an event exists
// if and only if the state change that produced it committed.
type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	row, err := s.build(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	s.queued(ctx, row)
	return nil
}

// EmitIfNotExists emits at most once per event type and aggregate. The
// insert runs in a savepoint so a unique violation from a concurrent writer
// leaves the outer postgres transaction usable.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || exists {
		return err
	}
	row, err := s.build(event)
	if err != nil {
		return err
	}
	err = tx.Transaction(func(sp *gorm.DB) error {
		return s.repo.Insert(sp, row)
	})
	switch {
	case err == nil:
		s.queued(ctx, row)
		return nil
	case dbpkg.IsUniqueViolation(err, onceIndex):
		return nil
	default:
		return err
	}
}

func (s *Service) build(event DomainEvent) (models.OutboxEvent, error) {
	if !event.EventType.IsValid() || !event.AggregateType.IsValid() {
		return models.OutboxEvent{}, fmt.Errorf("unknown outbox event %q on aggregate %q", event.EventType, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return models.OutboxEvent{}, errors.New("aggregate id required")
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	version := event.Version
	if version == 0 {
		version = envelopeVersion
	}
	id := uuid.New()
	payload, err := json.Marshal(PayloadEnvelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, err
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}, nil
}

func (s *Service) queued(ctx context.Context, row models.OutboxEvent) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":       row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
	}), "outbox event queued")
}
