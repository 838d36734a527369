package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"symposium/internal/model"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04"

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Workbook writes sheet into an xlsx file with a bold, frozen header.
func Workbook(sheet Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(sheet.Header) > 0 {
		bold, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		})
		if err != nil {
			return nil, fmt.Errorf("create header style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(sheet.Header), 1)
		if err := f.SetCellStyle(sheet.Name, "A1", last, bold); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
		lastCol, _ := excelize.ColumnNumberToName(len(sheet.Header))
		if err := f.SetColWidth(sheet.Name, "A", lastCol, 20); err != nil {
			return nil, fmt.Errorf("size columns: %w", err)
		}
		if err := f.SetPanes(sheet.Name, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return nil, fmt.Errorf("freeze header: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

// Registrations lists registrations; users resolves participant details.
func Registrations(regs []model.Registration, users map[string]model.User) Sheet {
	s := Sheet{
		Name: "Registrations",
		Header: []string{"Registration No", "Name", "Email", "Phone", "College", "Type", "Target",
			"Team", "Amount", "Payment", "Status", "Registered", "Checked in"},
	}
	for _, r := range regs {
		u := users[r.UserID]
		s.Rows = append(s.Rows, []any{
			r.RegistrationNumber, u.Name, u.Email, u.Phone, u.College, string(r.Target.Kind), r.Target.ID,
			r.TeamName, int64(r.Amount), string(r.PaymentStatus), string(r.Status),
			formatTime(&r.CreatedAt), formatTime(r.CheckInTime),
		})
	}
	return s
}

func Payments(payments []model.Payment) Sheet {
	s := Sheet{
		Name: "Payments",
		Header: []string{"Transaction ID", "Registration", "User", "Amount", "Currency", "Method",
			"Order ID", "Payment ID", "Status", "Paid at", "Refunded", "Created"},
	}
	for _, p := range payments {
		s.Rows = append(s.Rows, []any{
			p.TransactionID, p.RegistrationID, p.UserID, int64(p.Amount), p.Currency, string(p.Method),
			p.GatewayOrderID, p.GatewayPaymentID, string(p.Status), formatTime(p.PaidAt),
			int64(p.RefundAmount), formatTime(&p.CreatedAt),
		})
	}
	return s
}

func Users(users []model.User) Sheet {
	s := Sheet{
		Name:   "Users",
		Header: []string{"Name", "Email", "Phone", "College", "Department", "Year", "Role", "Active", "Joined"},
	}
	for _, u := range users {
		s.Rows = append(s.Rows, []any{
			u.Name, u.Email, u.Phone, u.College, u.Department, u.Year, string(u.Role), u.IsActive,
			formatTime(&u.CreatedAt),
		})
	}
	return s
}

func Attendance(rows []model.AttendanceRow) Sheet {
	s := Sheet{
		Name: "Attendance",
		Header: []string{"Registration No", "Name", "Email", "Phone", "College", "Checked in", "Method",
			"Checked out", "Duration (min)"},
	}
	for _, a := range rows {
		var minutes any = ""
		if d, ok := a.Duration(); ok {
			minutes = int64(d.Minutes())
		}
		s.Rows = append(s.Rows, []any{
			a.RegistrationNumber, a.UserName, a.UserEmail, a.UserPhone, a.UserCollege,
			formatTime(&a.CheckInTime), string(a.CheckInMethod), formatTime(a.CheckOutTime), minutes,
		})
	}
	return s
}
