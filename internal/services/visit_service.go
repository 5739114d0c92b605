package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/backend"
	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"golang.org/x/sync/errgroup"
)

// Gate errors. Their text is shown on the page.
var (
	ErrSecurityNotPassed = errors.New("Security check must be passed before checkout.")
	ErrAlreadyCheckedIn  = errors.New("This visitor is already checked in.")
	ErrAlreadyPassed     = errors.New("This visitor has already passed security.")
	ErrAlreadyCheckedOut = errors.New("This visitor is already checked out.")
)

// statusFanOut bounds concurrent GET /checkinout/:id calls.
const statusFanOut = 8

// VisitBackend is the part of the API client used by VisitService.
type VisitBackend interface {
	ListAppointments(ctx context.Context, token string, view backend.View) ([]models.Appointment, error)
	GateStatus(ctx context.Context, token string, id models.ID) (models.CheckInOutStatus, error)
	CheckIn(ctx context.Context, token string, id models.ID) error
	SecurityPass(ctx context.Context, token string, id models.ID) error
	CheckOut(ctx context.Context, token string, id models.ID) error
}

// VisitService assembles the gate pages and records gate events.
type VisitService struct {
	api VisitBackend
}

// NewVisitService creates a VisitService.
func NewVisitService(api VisitBackend) *VisitService {
	return &VisitService{api: api}
}

// List returns today's gate worklist: approved and reassigned appointments,
// each with its check-in/out status.
//
// The approved listing is required; the reassigned listing is optional and
// its failure only drops those rows. Appointments appearing in both are kept
// once, in first-seen order. A failed status lookup yields an all-false
// status for that row. The result is returned only after every call settled.
func (s *VisitService) List(ctx context.Context, token string) ([]models.Visit, error) {
	var approved, reassigned []models.Appointment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.api.ListAppointments(gctx, token, backend.ViewApproved)
		if err != nil {
			return fmt.Errorf("approved requests: %w", err)
		}
		approved = list
		return nil
	})
	g.Go(func() error {
		// Optional. Never fails the group.
		if list, err := s.api.ListAppointments(gctx, token, backend.ViewReassigned); err == nil {
			reassigned = list
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	appts := dedupe(approved, reassigned)
	visits := make([]models.Visit, len(appts))

	sg, sctx := errgroup.WithContext(ctx)
	sg.SetLimit(statusFanOut)
	for i, appt := range appts {
		visits[i].Appointment = appt
		sg.Go(func() error {
			st, err := s.api.GateStatus(sctx, token, appt.ID)
			if err != nil {
				st = models.CheckInOutStatus{}
			}
			visits[i].Gate = st
			return nil
		})
	}
	_ = sg.Wait()

	return visits, nil
}

func dedupe(lists ...[]models.Appointment) []models.Appointment {
	seen := make(map[models.ID]struct{})
	var out []models.Appointment
	for _, list := range lists {
		for _, a := range list {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// CheckIn records arrival unless it is already recorded.
func (s *VisitService) CheckIn(ctx context.Context, token string, id models.ID) error {
	st, err := s.api.GateStatus(ctx, token, id)
	if err != nil {
		return err
	}
	if !st.CanCheckIn() {
		return ErrAlreadyCheckedIn
	}
	return s.api.CheckIn(ctx, token, id)
}

// SecurityPass records a passed inspection unless it is already recorded.
func (s *VisitService) SecurityPass(ctx context.Context, token string, id models.ID) error {
	st, err := s.api.GateStatus(ctx, token, id)
	if err != nil {
		return err
	}
	if !st.CanSecurityPass() {
		return ErrAlreadyPassed
	}
	return s.api.SecurityPass(ctx, token, id)
}

// CheckOut records departure. It refuses before any mutation when the fresh
// status shows security has not passed.
func (s *VisitService) CheckOut(ctx context.Context, token string, id models.ID) error {
	st, err := s.api.GateStatus(ctx, token, id)
	if err != nil {
		return err
	}
	if !st.SecurityPassed {
		return ErrSecurityNotPassed
	}
	if st.CheckedOut {
		return ErrAlreadyCheckedOut
	}
	return s.api.CheckOut(ctx, token, id)
}

// FilterVisits keeps visits whose visitor name contains term (case
// insensitive) and, when date is set, whose effective date equals it.
func FilterVisits(visits []models.Visit, term, date string) []models.Visit {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Visit, 0, len(visits))
	for _, v := range visits {
		if term != "" && !strings.Contains(strings.ToLower(v.FullName()), term) {
			continue
		}
		if date != "" && v.EffectiveDate() != date {
			continue
		}
		out = append(out, v)
	}
	return out
}
