package service

import (
	"context"
	"fmt"

	"symposium/internal/export"
	"symposium/internal/model"
	"symposium/internal/repo"
)

func (s *Service) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	return s.repo.DashboardStats(ctx)
}

// Export builds an xlsx workbook for one of registrations, payments,
// users or attendance.
func (s *Service) Export(ctx context.Context, dataType string) ([]byte, string, error) {
	var (
		sheet export.Sheet
		err   error
	)
	switch dataType {
	case "registrations":
		sheet, err = s.registrationsSheet(ctx)
	case "payments":
		var payments []model.Payment
		payments, err = s.repo.ListPayments(ctx, repo.PaymentFilter{})
		sheet = export.Payments(payments)
	case "users":
		var users []model.User
		users, err = s.repo.ListUsers(ctx)
		sheet = export.Users(users)
	case "attendance":
		var rows []model.AttendanceRow
		rows, err = s.repo.ListAttendance(ctx, repo.AttendanceFilter{})
		sheet = export.Attendance(rows)
	default:
		return nil, "", fail(ErrValidation, "unknown export type %q", dataType)
	}
	if err != nil {
		return nil, "", err
	}

	data, err := export.Workbook(sheet)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("%s-%s.xlsx", dataType, s.now().Format("20060102")), nil
}

func (s *Service) registrationsSheet(ctx context.Context) (export.Sheet, error) {
	regs, err := s.repo.ListRegistrations(ctx, repo.RegistrationFilter{})
	if err != nil {
		return export.Sheet{}, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return export.Sheet{}, err
	}
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return export.Registrations(regs, byID), nil
}
