package visits

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/maderia/maderia/internal/mail"
	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/view"
)

// UserDirectory resolves contact details for registered customers.
type UserDirectory interface {
	Contact(ctx context.Context, userID int64) (name, email string, err error)
}

// Service implements visit booking over the allocator and repository.
type Service struct {
	repo      Repository
	users     UserDirectory
	templates *view.Engine
	mail      mail.Sender
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, users UserDirectory, templates *view.Engine, sender mail.Sender, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		templates: templates,
		mail:      sender,
		logger:    logger,
		now:       time.Now,
	}
}

// BookInput describes a booking request. UserID set means a registered
// customer; otherwise the guest fields are required.
type BookInput struct {
	UserID      *int64
	GuestName   string
	GuestEmail  string
	GuestPhone  string
	VisitDate   string
	VisitTime   string
	Address     string
	Status      string
	Description string
	ServiceIDs  []int64
}

// parseVisitDateTime combines the date and time fields into one instant.
func parseVisitDateTime(date, clock string) (time.Time, error) {
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: visitDate and visitTime are required", httpx.ErrValidation)
	}
	t, err := time.Parse("2006-01-02T15:04", date+"T"+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: visitDate is invalid", httpx.ErrValidation)
	}
	return t.UTC(), nil
}

// Book validates the request, reserves the slot, and sends the
// confirmation email. Email failures never fail the booking.
func (s *Service) Book(ctx context.Context, in BookInput) (Visit, error) {
	start, err := parseVisitDateTime(in.VisitDate, in.VisitTime)
	if err != nil {
		return Visit{}, err
	}
	if in.Address == "" {
		return Visit{}, fmt.Errorf("%w: address is required", httpx.ErrValidation)
	}

	v := Visit{
		VisitDate:   start,
		VisitTime:   in.VisitTime,
		Address:     in.Address,
		Status:      in.Status,
		Description: in.Description,
		ServiceIDs:  in.ServiceIDs,
	}
	if v.Status == "" {
		v.Status = StatusPending
	}

	var emailTo, emailName string
	if in.UserID != nil {
		name, email, err := s.users.Contact(ctx, *in.UserID)
		if err != nil {
			return Visit{}, err
		}
		v.UserID = in.UserID
		emailTo, emailName = email, name
	} else {
		if in.GuestName == "" || in.GuestEmail == "" || in.GuestPhone == "" {
			return Visit{}, fmt.Errorf("%w: guest visits require name, email and phone", httpx.ErrValidation)
		}
		v.IsGuest = true
		v.GuestName = in.GuestName
		v.GuestEmail = in.GuestEmail
		v.GuestPhone = in.GuestPhone
		emailTo, emailName = in.GuestEmail, in.GuestName
	}

	if err := s.repo.CreateChecked(ctx, &v); err != nil {
		return Visit{}, err
	}

	s.sendConfirmation(ctx, v, emailTo, emailName)
	return v, nil
}

func (s *Service) sendConfirmation(ctx context.Context, v Visit, to, name string) {
	if to == "" {
		return
	}
	if name == "" {
		name = "Usuario"
	}
	description := v.Description
	if description == "" {
		description = "Sin descripción"
	}
	html, err := s.templates.Render("visit-confirmation", map[string]string{
		"USER_NAME":         name,
		"VISIT_DATE":        v.VisitDate.Format("02/01/2006"),
		"VISIT_TIME":        v.VisitTime,
		"ADDRESS":           v.Address,
		"DESCRIPTION_BLOCK": description,
		"STATUS":            v.Status,
		"YEAR":              strconv.Itoa(s.now().Year()),
	})
	if err != nil {
		s.logger.Error("render visit confirmation", "visit_id", v.ID, "error", err)
		return
	}
	if err := s.mail.Send(ctx, to, "Confirmación de visita agendada", html); err != nil {
		s.logger.Error("visit confirmation email failed", "visit_id", v.ID, "error", err)
	}
}

// Find loads one visit.
func (s *Service) Find(ctx context.Context, id int64) (Visit, error) {
	return s.repo.Find(ctx, id)
}

// List returns every visit, newest first.
func (s *Service) List(ctx context.Context) ([]Visit, error) {
	return s.repo.List(ctx)
}

// ListMine returns the user's visits, newest first.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]Visit, error) {
	return s.repo.ListByUser(ctx, userID)
}

// AvailableSlots returns the free hourly labels for a calendar day.
func (s *Service) AvailableSlots(ctx context.Context, date string) ([]string, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("%w: date query parameter is required as YYYY-MM-DD", httpx.ErrValidation)
	}
	day = day.UTC()
	bookings, err := s.repo.ListActiveOn(ctx, day, day.Add(24*time.Hour-time.Second))
	if err != nil {
		return nil, err
	}
	return AvailableSlots(day, bookings), nil
}

// SetStatus applies a status transition.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	switch status {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
	default:
		return fmt.Errorf("%w: unknown visit status %q", httpx.ErrValidation, status)
	}
	return s.repo.SetStatus(ctx, id, status)
}
