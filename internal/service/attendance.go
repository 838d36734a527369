package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"symposium/internal/dto"
	"symposium/internal/export"
	"symposium/internal/model"
	"symposium/internal/repo"
	"symposium/internal/ticket"
)

type CheckInResult struct {
	Attendance       *model.Attendance   `json:"attendance"`
	Registration     *model.Registration `json:"registration"`
	AlreadyCheckedIn bool                `json:"already_checked_in"`
}

// resolveEntry maps what was scanned or typed at the gate to a
// registration. A registration number wins over an entry token.
func (s *Service) resolveEntry(ctx context.Context, tx repo.Repository, req dto.CheckInRequest) (*model.Registration, model.CheckInMethod, error) {
	if number := strings.TrimSpace(req.RegistrationNumber); number != "" {
		reg, err := tx.GetRegistrationByNumber(ctx, number)
		if err != nil {
			return nil, "", classify(err, "registration")
		}
		return reg, model.CheckInManual, nil
	}

	token := strings.TrimSpace(req.EntryToken)
	if token == "" {
		return nil, "", fail(ErrValidation, "entry_token or registration_number is required")
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ticket.ErrMalformedToken) || errors.Is(err, ticket.ErrBadSignature) {
			return nil, "", fail(ErrInvalidSignature, "invalid entry token")
		}
		return nil, "", err
	}
	reg, err := tx.GetRegistrationByID(ctx, id)
	if err != nil {
		return nil, "", classify(err, "registration")
	}
	return reg, model.CheckInQR, nil
}

// CheckIn admits the holder of an entry token to target. Scanning the
// same token twice returns the first attendance record.
func (s *Service) CheckIn(ctx context.Context, req dto.CheckInRequest, actor *model.User) (*CheckInResult, error) {
	target, err := req.Target()
	if err != nil {
		return nil, classify(err, "target")
	}

	now := s.now()
	res := &CheckInResult{}
	err = s.repo.InTx(ctx, func(tx repo.Repository) error {
		reg, method, err := s.resolveEntry(ctx, tx, req)
		if err != nil {
			return err
		}
		if reg.Target != target {
			return fail(ErrInvalidState, "registration %s is not for this %s", reg.RegistrationNumber, target.Kind)
		}
		res.Registration = reg

		existing, err := tx.GetAttendance(ctx, reg.ID, target)
		switch {
		case err == nil:
			res.Attendance, res.AlreadyCheckedIn = existing, true
			return nil
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		if reg.Status != model.RegistrationConfirmed {
			return fail(ErrPaymentIncomplete, "registration %s is %s, payment not completed", reg.RegistrationNumber, reg.Status)
		}

		if req.Method != "" {
			method = model.CheckInMethod(req.Method)
		}
		a := &model.Attendance{
			ID:             newID(),
			RegistrationID: reg.ID,
			UserID:         reg.UserID,
			Target:         target,
			CheckInTime:    now,
			CheckInBy:      actor.ID,
			CheckInMethod:  method,
			Notes:          req.Notes,
			CreatedAt:      now,
		}
		inserted, err := tx.InsertAttendance(ctx, a)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := tx.GetAttendance(ctx, reg.ID, target)
			if err != nil {
				return classify(err, "attendance")
			}
			res.Attendance, res.AlreadyCheckedIn = existing, true
			return nil
		}

		if err := reg.MarkAttended(actor.ID, now); err != nil {
			return classify(err, "registration")
		}
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return err
		}
		res.Attendance = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.AlreadyCheckedIn {
		s.log.Info().
			Str("registration_number", res.Registration.RegistrationNumber).
			Str("target", target.String()).
			Str("checked_in_by", actor.ID).
			Msg("participant checked in")
	}
	return res, nil
}

func (s *Service) CheckOut(ctx context.Context, attendanceID string, actor *model.User) (*model.Attendance, error) {
	var a *model.Attendance
	err := s.repo.InTx(ctx, func(tx repo.Repository) error {
		var err error
		a, err = tx.GetAttendanceByID(ctx, attendanceID)
		if err != nil {
			return classify(err, "attendance")
		}
		if err := a.CheckOut(actor.ID, s.now()); err != nil {
			return classify(err, "attendance")
		}
		return tx.UpdateAttendance(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListAttendance(ctx context.Context, target model.Target) ([]model.AttendanceRow, error) {
	return s.repo.ListAttendance(ctx, repo.AttendanceFilter{Target: &target})
}

func (s *Service) UserAttendance(ctx context.Context, userID string, viewer *model.User) ([]model.AttendanceRow, error) {
	if !canAccess(userID, viewer) {
		return nil, fail(ErrForbidden, "not authorized to view this attendance")
	}
	return s.repo.ListAttendance(ctx, repo.AttendanceFilter{UserID: userID})
}

// ExportAttendance renders the attendance of target as an xlsx workbook.
func (s *Service) ExportAttendance(ctx context.Context, target model.Target) ([]byte, string, error) {
	if _, err := s.repo.GetListing(ctx, target); err != nil {
		return nil, "", classify(err, string(target.Kind))
	}
	rows, err := s.ListAttendance(ctx, target)
	if err != nil {
		return nil, "", err
	}
	data, err := export.Workbook(export.Attendance(rows))
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("attendance-%s-%s.xlsx", target.Kind, target.ID), nil
}
