package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusScheduled OrderStatus = "scheduled"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type AppointmentStatus string

const (
	AppointmentStatusRequested AppointmentStatus = "requested"
	AppointmentStatusProposed  AppointmentStatus = "proposed"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// IsTerminal reports whether the appointment accepts further transitions.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusRejected, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the appointment still holds its slot. Cancelled and
// rejected bookings release the slot for other buyers.
func (s AppointmentStatus) Active() bool {
	return s != "" && s != AppointmentStatusCancelled && s != AppointmentStatusRejected
}

// TimeList stores an ordered list of timestamps as a jsonb array of RFC3339
// strings, the wire format appointment alternates travel in.
type TimeList []time.Time

func (l TimeList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	out := make([]string, len(l))
	for i, t := range l {
		out[i] = t.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}

func (l *TimeList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TimeList", src)
	}
	var strs []string
	if err := json.Unmarshal(raw, &strs); err != nil {
		return fmt.Errorf("failed to decode time list: %w", err)
	}
	out := make(TimeList, 0, len(strs))
	for _, s := range strs {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q in time list: %w", s, err)
		}
		out = append(out, t)
	}
	*l = out
	return nil
}

// Order aggregates the items a buyer placed with a single seller.
type Order struct {
	Base
	SellerID      uuid.UUID   `db:"seller_id" json:"seller_id"`
	BuyerID       *uuid.UUID  `db:"buyer_id" json:"buyer_id,omitempty"`
	CustomerName  string      `db:"customer_name" json:"customer_name"`
	CustomerEmail string      `db:"customer_email" json:"customer_email"`
	CustomerPhone string      `db:"customer_phone" json:"customer_phone"`
	Address       string      `db:"address" json:"address"`
	Status        OrderStatus `db:"status" json:"status"`
	Total         float64     `db:"total" json:"total"`
	Items         []*OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is one order line. When IsService is set the item doubles as a
// booking: AppointmentAt identifies the claimed slot and AppointmentStatus
// carries the negotiation state.
type OrderItem struct {
	ID                    uuid.UUID         `db:"id" json:"id"`
	OrderID               uuid.UUID         `db:"order_id" json:"order_id"`
	ProductID             uuid.UUID         `db:"product_id" json:"product_id"`
	ProductTitle          string            `db:"product_title" json:"product_title"`
	UnitPrice             float64           `db:"unit_price" json:"unit_price"`
	Quantity              int               `db:"quantity" json:"quantity"`
	IsService             bool              `db:"is_service" json:"is_service"`
	AppointmentAt         *time.Time        `db:"appointment_at" json:"appointment_at,omitempty"`
	AppointmentStatus     AppointmentStatus `db:"appointment_status" json:"appointment_status,omitempty"`
	AppointmentAlternates TimeList          `db:"appointment_alternates" json:"appointment_alternates,omitempty"`
	CreatedAt             time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time         `db:"updated_at" json:"updated_at"`
}

// ServiceItems filters the order's line items down to bookings.
func (o *Order) ServiceItems() []*OrderItem {
	var items []*OrderItem
	for _, it := range o.Items {
		if it.IsService {
			items = append(items, it)
		}
	}
	return items
}

// DeriveOrderStatus projects an order status out of its items' appointment
// states. It is recomputed on every lifecycle write rather than patched from
// call sites, so the stored column cannot drift. Payment and shipment states
// are order-level facts outside this projection and are preserved by callers.
func DeriveOrderStatus(items []*OrderItem) OrderStatus {
	service := 0
	completed := 0
	anyScheduled := false
	for _, it := range items {
		if !it.IsService {
			continue
		}
		service++
		switch it.AppointmentStatus {
		case AppointmentStatusConfirmed, AppointmentStatusScheduled:
			anyScheduled = true
		case AppointmentStatusCompleted:
			completed++
		}
	}
	if service == 0 {
		return OrderStatusPending
	}
	if completed == service {
		return OrderStatusCompleted
	}
	if anyScheduled || completed > 0 {
		return OrderStatusScheduled
	}
	return OrderStatusPending
}

// CheckoutItem is one cart line in a checkout request. Meta carries the
// chosen appointment slot (RFC3339) for service products.
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gte=1"`
	Meta      string    `json:"meta"`
}

// CheckoutRequest is the multi-item, possibly multi-seller cart submission.
type CheckoutRequest struct {
	Items         []CheckoutItem `json:"items" binding:"required,min=1,dive"`
	CustomerName  string         `json:"customer_name" binding:"required,max=200"`
	CustomerEmail string         `json:"customer_email" binding:"required,email"`
	CustomerPhone string         `json:"customer_phone" binding:"max=32"`
	Address       string         `json:"address" binding:"max=500"`
}

// RejectProposeRequest carries a seller's alternate slot proposals. An empty
// list rejects the appointment outright.
type RejectProposeRequest struct {
	Proposals []string `json:"proposals"`
}

// AcceptAlternateRequest carries the alternate a buyer accepted.
type AcceptAlternateRequest struct {
	Date string `json:"date" binding:"required"`
}

// OrderFilters narrows order listings for buyer and seller dashboards.
type OrderFilters struct {
	SellerID uuid.UUID
	BuyerID  uuid.UUID
	Status   OrderStatus
}
