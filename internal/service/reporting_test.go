package service

import (
	"bytes"
	"testing"

	"symposium/internal/dto"
	"symposium/internal/model"
)

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, model.RoleParticipant)
	b := f.user(t, model.RoleParticipant)
	e := f.event(t, 299, nil)
	regA := f.register(t, a, e.Listing().Target)
	f.register(t, b, e.Listing().Target)
	f.pay(t, a, regA)

	stats, err := f.svc.Dashboard(f.ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stats.TotalUsers != 2 || stats.ActiveEvents != 1 || stats.TotalRegistrations != 2 {
		t.Errorf("totals = %+v", stats)
	}
	if stats.RegistrationsByStatus["confirmed"] != 1 || stats.RegistrationsByStatus["pending"] != 1 {
		t.Errorf("by status = %v", stats.RegistrationsByStatus)
	}
	if stats.Revenue != 299 {
		t.Errorf("revenue = %d, want 299", stats.Revenue)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, model.RoleParticipant)
	f.register(t, u, f.event(t, 100, nil).Listing().Target)

	for _, kind := range []string{"registrations", "payments", "users", "attendance"} {
		data, name, err := f.svc.Export(f.ctx, kind)
		if err != nil {
			t.Fatalf("Export(%s): %v", kind, err)
		}
		if !bytes.HasPrefix(data, []byte("PK")) {
			t.Errorf("Export(%s) is not an xlsx archive", kind)
		}
		if name != kind+"-20260301.xlsx" {
			t.Errorf("Export(%s) file name = %q", kind, name)
		}
	}

	_, _, err := f.svc.Export(f.ctx, "passwords")
	assertKind(t, err, ErrValidation)
}

func TestCatalogVisibility(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 100, intPtr(40))
	if err := f.svc.DeleteEvent(f.ctx, e.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}

	_, err := f.svc.GetEvent(f.ctx, e.ID, false)
	assertKind(t, err, ErrNotFound)
	view, err := f.svc.GetEvent(f.ctx, e.ID, true)
	if err != nil {
		t.Fatalf("GetEvent as staff: %v", err)
	}
	if view.AvailableSeats == nil || *view.AvailableSeats != 40 {
		t.Errorf("available seats = %v", view.AvailableSeats)
	}

	list, err := f.svc.ListEvents(f.ctx, "", false)
	if err != nil || len(list) != 0 {
		t.Errorf("public list = %d, %v", len(list), err)
	}

	_, err = f.svc.CreateEvent(f.ctx, dto.EventRequest{
		Name:                 "Late",
		Category:             "special",
		Date:                 t0,
		RegistrationDeadline: t0.AddDate(0, 0, 1),
	})
	assertKind(t, err, ErrValidation)
}

func TestWorkshopRegistration(t *testing.T) {
	f := newFixture(t)
	w, err := f.svc.CreateWorkshop(f.ctx, dto.WorkshopRequest{
		Title:                "Intro to Go",
		Schedule:             []dto.WorkshopSessionRequest{{Date: t0.AddDate(0, 0, 12)}, {Date: t0.AddDate(0, 0, 11)}},
		RegistrationFee:      500,
		MaxParticipants:      20,
		RegistrationDeadline: t0.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("CreateWorkshop: %v", err)
	}
	u := f.user(t, model.RoleParticipant)
	reg := f.register(t, u, w.Listing().Target)
	if reg.RegistrationNumber != "WORK202600001" || reg.Amount != 500 {
		t.Errorf("registration = %s amount %d", reg.RegistrationNumber, reg.Amount)
	}
	f.pay(t, u, reg)
	if got := f.seats(t, w.Listing().Target); got != 1 {
		t.Errorf("seats = %d", got)
	}
}
