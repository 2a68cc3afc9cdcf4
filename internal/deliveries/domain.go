package deliveries

import (
	"fmt"
	"time"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

// Status is the progress of a delivery.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
)

var rank = map[Status]int{
	StatusPending:   0,
	StatusInTransit: 1,
	StatusDelivered: 2,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := rank[s]
	return ok
}

// CanMoveTo reports whether the status may advance to next. Deliveries only
// move forward; delivered is terminal.
func (s Status) CanMoveTo(next Status) bool {
	from, ok := rank[s]
	if !ok {
		return false
	}
	to, ok := rank[next]
	return ok && to > from
}

var (
	// ErrDeliveryNotFound indicates the delivery does not exist for the account.
	ErrDeliveryNotFound = fmt.Errorf("deliveries: delivery not found: %w", httpx.ErrNotFound)
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = fmt.Errorf("deliveries: invalid status: %w", httpx.ErrValidation)
	// ErrInvalidTransition indicates a backwards or repeated status change.
	ErrInvalidTransition = fmt.Errorf("deliveries: invalid status transition: %w", httpx.ErrConflict)
	// ErrStatusChanged reports that another writer changed the status first.
	ErrStatusChanged = fmt.Errorf("deliveries: status changed concurrently: %w", httpx.ErrConflict)
)

// Delivery is a parcel dispatched to a receiver.
type Delivery struct {
	ID              string    `json:"id"`
	PickupAddress   string    `json:"pickupAddress"`
	DeliveryAddress string    `json:"deliveryAddress"`
	ReceiverName    string    `json:"receiverName"`
	ReceiverPhone   string    `json:"receiverPhone"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DeliveryInput is the body of POST /deliveries.
type DeliveryInput struct {
	PickupAddress   string `json:"pickupAddress" validate:"required"`
	DeliveryAddress string `json:"deliveryAddress" validate:"required"`
	ReceiverName    string `json:"receiverName" validate:"required"`
	ReceiverPhone   string `json:"receiverPhone" validate:"required"`
}

// StatusInput is the body of PATCH /deliveries/{id}/status.
type StatusInput struct {
	Status Status `json:"status"`
}
