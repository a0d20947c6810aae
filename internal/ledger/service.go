package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// Service records the append-only history of an invoice. Events are always
// written on the caller's transaction so they commit with the state change
// they describe.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordEventInput) (*models.InvoiceEvent, error)
	History(ctx context.Context, invoiceID uuid.UUID, types ...enums.InvoiceEventType) ([]models.InvoiceEvent, error)
}

type service struct {
	repo Repository
}

// RecordEventInput captures the immutable data an invoice event requires.
type RecordEventInput struct {
	InvoiceID   uuid.UUID              `json:"invoice_id"`
	ActorUserID *uuid.UUID             `json:"actor_user_id,omitempty"`
	Type        enums.InvoiceEventType `json:"type"`
	Amount      *decimal.Decimal       `json:"amount,omitempty"`
	Metadata    any                    `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordEventInput) (*models.InvoiceEvent, error) {
	if input.InvoiceID == uuid.Nil {
		return nil, fmt.Errorf("invoice id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid invoice event type %q", input.Type)
	}

	var metadata json.RawMessage
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal event metadata: %w", err)
		}
		metadata = raw
	}

	event := &models.InvoiceEvent{
		InvoiceID:   input.InvoiceID,
		ActorUserID: input.ActorUserID,
		Type:        input.Type,
		Amount:      input.Amount,
		Metadata:    metadata,
	}
	if err := s.repo.WithTx(tx).Append(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) History(ctx context.Context, invoiceID uuid.UUID, types ...enums.InvoiceEventType) ([]models.InvoiceEvent, error) {
	if invoiceID == uuid.Nil {
		return nil, fmt.Errorf("invoice id is required")
	}
	for _, t := range types {
		if !t.IsValid() {
			return nil, fmt.Errorf("invalid invoice event type %q", t)
		}
	}
	return s.repo.History(ctx, invoiceID, types)
}
