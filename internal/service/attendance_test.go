package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"symposium/internal/dto"
	"symposium/internal/model"
)

func checkInReq(token string, target model.Target) dto.CheckInRequest {
	req := dto.CheckInRequest{EntryToken: token, Type: string(target.Kind)}
	if target.Kind == model.TargetWorkshop {
		req.WorkshopID = target.ID
	} else {
		req.EventID = target.ID
	}
	return req
}

func manualReq(number string, target model.Target) dto.CheckInRequest {
	req := checkInReq("", target)
	req.RegistrationNumber = number
	return req
}

func TestCheckInIsIdempotent(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, model.RoleParticipant)
	volunteer := f.user(t, model.RoleVolunteer)
	e := f.event(t, 299, nil)
	target := e.Listing().Target
	reg := f.register(t, u, target)
	f.pay(t, u, reg)

	first, err := f.svc.CheckIn(f.ctx, checkInReq(reg.EntryToken, target), volunteer)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if first.AlreadyCheckedIn {
		t.Fatal("first scan reported as repeat")
	}
	if first.Attendance.CheckInMethod != model.CheckInQR || first.Attendance.CheckInBy != volunteer.ID {
		t.Errorf("attendance = %+v", first.Attendance)
	}
	got := f.registration(t, reg.ID)
	if got.Status != model.RegistrationAttended || got.CheckInTime == nil || got.CheckInBy == nil || *got.CheckInBy != volunteer.ID {
		t.Errorf("registration not stamped: %+v", got)
	}

	f.clock.Advance(time.Hour)
	second, err := f.svc.CheckIn(f.ctx, checkInReq(reg.EntryToken, target), volunteer)
	if err != nil {
		t.Fatalf("second CheckIn: %v", err)
	}
	if !second.AlreadyCheckedIn || second.Attendance.ID != first.Attendance.ID {
		t.Errorf("second scan: already=%v id=%s", second.AlreadyCheckedIn, second.Attendance.ID)
	}
	if !second.Attendance.CheckInTime.Equal(t0) {
		t.Errorf("check-in time moved to %v", second.Attendance.CheckInTime)
	}

	rows, err := f.svc.ListAttendance(f.ctx, target)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListAttendance = %d, %v", len(rows), err)
	}
	if rows[0].RegistrationNumber != reg.RegistrationNumber || rows[0].UserEmail != u.Email {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestCheckInRejections(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, model.RoleParticipant)
	volunteer := f.user(t, model.RoleVolunteer)
	e := f.event(t, 299, nil)
	elsewhere := f.event(t, 299, nil)
	target := e.Listing().Target
	reg := f.register(t, u, target)

	_, err := f.svc.CheckIn(f.ctx, checkInReq(reg.EntryToken, target), volunteer)
	assertKind(t, err, ErrPaymentIncomplete)

	forged := reg.ID + ".AAAAAAAAAAAAAAAAAAAAAAAA"
	_, err = f.svc.CheckIn(f.ctx, checkInReq(forged, target), volunteer)
	assertKind(t, err, ErrInvalidSignature)

	_, err = f.svc.CheckIn(f.ctx, checkInReq(reg.ID, target), volunteer)
	assertKind(t, err, ErrInvalidSignature)

	_, err = f.svc.CheckIn(f.ctx, manualReq("SHACK202699999", target), volunteer)
	assertKind(t, err, ErrNotFound)

	_, err = f.svc.CheckIn(f.ctx, checkInReq("  ", target), volunteer)
	assertKind(t, err, ErrValidation)

	// A registration number typed into the token field is not a token.
	_, err = f.svc.CheckIn(f.ctx, checkInReq(reg.RegistrationNumber, target), volunteer)
	assertKind(t, err, ErrInvalidSignature)

	f.pay(t, u, reg)
	_, err = f.svc.CheckIn(f.ctx, checkInReq(reg.EntryToken, elsewhere.Listing().Target), volunteer)
	assertKind(t, err, ErrInvalidState)

	if _, err := f.svc.CancelRegistration(f.ctx, reg.ID, u, ""); err != nil {
		t.Fatalf("CancelRegistration: %v", err)
	}
	_, err = f.svc.CheckIn(f.ctx, checkInReq(reg.EntryToken, target), volunteer)
	assertKind(t, err, ErrPaymentIncomplete)
}

func TestCheckInByRegistrationNumber(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, model.RoleParticipant)
	volunteer := f.user(t, model.RoleVolunteer)
	e := f.event(t, 299, nil)
	reg := f.register(t, u, e.Listing().Target)
	f.pay(t, u, reg)

	res, err := f.svc.CheckIn(f.ctx, manualReq(reg.RegistrationNumber, e.Listing().Target), volunteer)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if res.Attendance.CheckInMethod != model.CheckInManual {
		t.Errorf("method = %s, want manual", res.Attendance.CheckInMethod)
	}
}

func TestCheckOut(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, model.RoleParticipant)
	volunteer := f.user(t, model.RoleVolunteer)
	e := f.event(t, 299, nil)
	reg := f.register(t, u, e.Listing().Target)
	f.pay(t, u, reg)
	in, err := f.svc.CheckIn(f.ctx, checkInReq(reg.EntryToken, e.Listing().Target), volunteer)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	f.clock.Advance(90 * time.Minute)
	out, err := f.svc.CheckOut(f.ctx, in.Attendance.ID, volunteer)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if d, ok := out.Duration(); !ok || d != 90*time.Minute {
		t.Errorf("duration = %v, %v", d, ok)
	}
	_, err = f.svc.CheckOut(f.ctx, in.Attendance.ID, volunteer)
	assertKind(t, err, ErrInvalidState)
}

func TestUserAttendanceAccess(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, model.RoleParticipant)
	stranger := f.user(t, model.RoleParticipant)
	admin := f.user(t, model.RoleAdmin)

	if _, err := f.svc.UserAttendance(f.ctx, u.ID, u); err != nil {
		t.Errorf("self: %v", err)
	}
	if _, err := f.svc.UserAttendance(f.ctx, u.ID, admin); err != nil {
		t.Errorf("admin: %v", err)
	}
	_, err := f.svc.UserAttendance(f.ctx, u.ID, stranger)
	assertKind(t, err, ErrForbidden)
}

func TestExportAttendance(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 0, nil)

	data, name, err := f.svc.ExportAttendance(f.ctx, e.Listing().Target)
	if err != nil {
		t.Fatalf("ExportAttendance: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("export is not an xlsx archive")
	}
	if !strings.HasSuffix(name, ".xlsx") {
		t.Errorf("file name = %q", name)
	}

	_, _, err = f.svc.ExportAttendance(f.ctx, model.EventTarget("missing"))
	assertKind(t, err, ErrNotFound)
}
