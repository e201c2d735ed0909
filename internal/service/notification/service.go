package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/marketplace-api/internal/email"
	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/pkg/logger"
)

// Service notifies buyers about booking and lifecycle events. Delivery is
// fire-and-forget: failures are logged and never propagated to the caller.
type Service interface {
	BookingCreated(ctx context.Context, order *model.Order)
	AppointmentConfirmed(ctx context.Context, order *model.Order)
	AppointmentProposed(ctx context.Context, order *model.Order, alternates model.TimeList)
	AppointmentScheduled(ctx context.Context, order *model.Order)
	ServiceCompleted(ctx context.Context, order *model.Order)
	OrderPaid(ctx context.Context, order *model.Order)
}

type service struct {
	email  email.Service
	logger *logger.Logger
}

func NewService(emailSvc email.Service, log *logger.Logger) Service {
	return &service{
		email:  emailSvc,
		logger: log,
	}
}

func (s *service) BookingCreated(ctx context.Context, order *model.Order) {
	body := fmt.Sprintf("Hi %s,<br>your booking request has been sent to the seller.%s",
		order.CustomerName, appointmentLines(order))
	s.send(ctx, order, "Booking request received", body)
}

func (s *service) AppointmentConfirmed(ctx context.Context, order *model.Order) {
	body := fmt.Sprintf("Hi %s,<br>your appointment has been confirmed.%s",
		order.CustomerName, appointmentLines(order))
	s.send(ctx, order, "Appointment confirmed", body)
}

func (s *service) AppointmentProposed(ctx context.Context, order *model.Order, alternates model.TimeList) {
	if len(alternates) == 0 {
		s.send(ctx, order, "Appointment declined",
			fmt.Sprintf("Hi %s,<br>unfortunately the seller declined your requested appointment.", order.CustomerName))
		return
	}
	var times []string
	for _, t := range alternates {
		times = append(times, t.Format(time.RFC1123))
	}
	body := fmt.Sprintf("Hi %s,<br>the seller proposed alternate times:<br>%s",
		order.CustomerName, strings.Join(times, "<br>"))
	s.send(ctx, order, "Alternate appointment times proposed", body)
}

func (s *service) AppointmentScheduled(ctx context.Context, order *model.Order) {
	body := fmt.Sprintf("Hi %s,<br>your appointment has been scheduled.%s",
		order.CustomerName, appointmentLines(order))
	s.send(ctx, order, "Appointment scheduled", body)
}

func (s *service) ServiceCompleted(ctx context.Context, order *model.Order) {
	body := fmt.Sprintf("Hi %s,<br>your service has been completed. You can now settle the payment.", order.CustomerName)
	s.send(ctx, order, "Service completed", body)
}

func (s *service) OrderPaid(ctx context.Context, order *model.Order) {
	body := fmt.Sprintf("Hi %s,<br>we received your payment. Thank you!", order.CustomerName)
	s.send(ctx, order, "Payment received", body)
}

func (s *service) send(ctx context.Context, order *model.Order, subject, body string) {
	if order.CustomerEmail == "" {
		return
	}
	if err := s.email.Send(ctx, order.CustomerEmail, subject, body); err != nil {
		s.logger.Error(err, "failed to send notification email",
			"order_id", order.ID.String(),
			"subject", subject,
		)
	}
}

func appointmentLines(order *model.Order) string {
	var lines []string
	for _, item := range order.ServiceItems() {
		if item.AppointmentAt == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s at %s", item.ProductTitle, item.AppointmentAt.Format(time.RFC1123)))
	}
	if len(lines) == 0 {
		return ""
	}
	return "<br>" + strings.Join(lines, "<br>")
}
