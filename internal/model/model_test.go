package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRegistrationNumberFormat(t *testing.T) {
	cases := []struct {
		target Target
		year   int
		seq    int
		want   string
	}{
		{EventTarget("e1"), 2025, 1, "SHACK202500001"},
		{WorkshopTarget("w1"), 2025, 42, "WORK202500042"},
		{EventTarget("e1"), 2026, 123456, "SHACK2026123456"},
	}
	for _, tc := range cases {
		got := RegistrationNumber(tc.target, tc.year, tc.seq)
		if got != tc.want {
			t.Errorf("RegistrationNumber(%v, %d, %d) = %q, want %q", tc.target, tc.year, tc.seq, got, tc.want)
		}
		if !IsRegistrationNumber(got) {
			t.Errorf("IsRegistrationNumber(%q) = false", got)
		}
	}
	for _, bad := range []string{"", "SHACK25", "TXN202500001", "5f1c2a0e-1111-2222-3333-444455556666"} {
		if IsRegistrationNumber(bad) {
			t.Errorf("IsRegistrationNumber(%q) = true", bad)
		}
	}
}

func TestNewTransactionID(t *testing.T) {
	now := time.UnixMilli(1735689600123)
	id, err := NewTransactionID(now)
	if err != nil {
		t.Fatalf("NewTransactionID: %v", err)
	}
	if !strings.HasPrefix(id, "TXN1735689600123") {
		t.Fatalf("unexpected prefix: %q", id)
	}
	suffix := strings.TrimPrefix(id, "TXN1735689600123")
	if len(suffix) != 6 {
		t.Fatalf("suffix %q has length %d, want 6", suffix, len(suffix))
	}
	for _, c := range suffix {
		if !strings.ContainsRune(base36Upper, c) {
			t.Errorf("suffix %q contains %q", suffix, c)
		}
	}
}

func TestParseTarget(t *testing.T) {
	if _, err := ParseTarget("event", ""); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("empty id: got %v", err)
	}
	if _, err := ParseTarget("concert", "x"); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("unknown kind: got %v", err)
	}
	tgt, err := ParseTarget("workshop", "w1")
	if err != nil || tgt != WorkshopTarget("w1") {
		t.Errorf("ParseTarget(workshop, w1) = %v, %v", tgt, err)
	}
}

func TestCancelLeadTimeBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tooLate := &Registration{Status: RegistrationConfirmed}
	err := tooLate.Cancel("u1", "plans changed", now.Add(CancellationLeadTime-time.Second), now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel inside lead time: got %v, want ErrInvalidTransition", err)
	}
	if tooLate.Status != RegistrationConfirmed {
		t.Errorf("status changed to %s on rejected cancel", tooLate.Status)
	}

	inTime := &Registration{Status: RegistrationPending}
	if err := inTime.Cancel("u1", "plans changed", now.Add(CancellationLeadTime+time.Millisecond), now); err != nil {
		t.Fatalf("cancel at lead time + epsilon: %v", err)
	}
	if inTime.Status != RegistrationCancelled || inTime.CancelledAt == nil || *inTime.CancelledBy != "u1" {
		t.Errorf("cancel did not stamp registration: %+v", inTime)
	}
}

func TestTerminalRegistrationStates(t *testing.T) {
	now := time.Now()
	far := now.Add(72 * time.Hour)
	for _, status := range []RegistrationStatus{RegistrationCancelled, RegistrationAttended} {
		r := &Registration{Status: status}
		if err := r.Cancel("u", "", far, now); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s: cancel got %v", status, err)
		}
		if err := r.MarkAttended("v", now); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s: mark attended got %v", status, err)
		}
		if r.Status != status {
			t.Errorf("%s: status changed to %s", status, r.Status)
		}
	}
	cancelled := &Registration{Status: RegistrationCancelled}
	if _, err := cancelled.Confirm("p1", now); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("confirm cancelled: got %v", err)
	}
}

func TestCheckedInRegistrationCannotCancel(t *testing.T) {
	now := time.Now()
	r := &Registration{Status: RegistrationConfirmed, CheckInTime: &now}
	if err := r.CanCancel(now.Add(96*time.Hour), now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("got %v", err)
	}
}

func TestPaymentTransitions(t *testing.T) {
	now := time.Now()
	cases := []struct {
		from PaymentStatus
		to   PaymentStatus
		ok   bool
	}{
		{PaymentPending, PaymentSuccess, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentSuccess, PaymentRefunded, true},
		{PaymentPending, PaymentRefunded, false},
		{PaymentFailed, PaymentSuccess, false},
		{PaymentRefunded, PaymentSuccess, false},
		{PaymentSuccess, PaymentFailed, false},
	}
	for _, tc := range cases {
		p := &Payment{Status: tc.from}
		if got := p.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}

	p := &Payment{Status: PaymentPending, Amount: 299}
	changed, err := p.MarkSuccess("pay_1", "sig", now)
	if err != nil || !changed {
		t.Fatalf("first MarkSuccess = %v, %v", changed, err)
	}
	changed, err = p.MarkSuccess("pay_1", "sig", now.Add(time.Minute))
	if err != nil || changed {
		t.Fatalf("second MarkSuccess = %v, %v; want no-op", changed, err)
	}
	if !p.PaidAt.Equal(now) {
		t.Errorf("paid_at moved on idempotent success")
	}
}

func TestPaymentRefund(t *testing.T) {
	now := time.Now()
	for _, status := range []PaymentStatus{PaymentPending, PaymentFailed, PaymentRefunded} {
		p := &Payment{Status: status, Amount: 299}
		if err := p.Refund(299, "r", "rfnd_1", now); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("refund from %s: got %v", status, err)
		}
	}

	p := &Payment{Status: PaymentSuccess, Amount: 299}
	if err := p.Refund(100, "partial", "rfnd_1", now); err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	if p.Status != PaymentSuccess || p.RefundAmount != 100 {
		t.Fatalf("after partial refund: status %s amount %d", p.Status, p.RefundAmount)
	}
	if err := p.Refund(200, "too much", "rfnd_2", now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("over-refund: got %v", err)
	}
	if err := p.Refund(199, "rest", "rfnd_3", now); err != nil {
		t.Fatalf("final refund: %v", err)
	}
	if p.Status != PaymentRefunded || p.RefundAmount != p.Amount {
		t.Errorf("after full refund: status %s amount %d", p.Status, p.RefundAmount)
	}
}

func TestListingCapacity(t *testing.T) {
	max := 2
	l := Listing{MaxParticipants: &max, CurrentParticipants: 1}
	if l.IsFull() {
		t.Error("1/2 reported full")
	}
	l.CurrentParticipants = 2
	if !l.IsFull() {
		t.Error("2/2 reported not full")
	}
	if seats := l.AvailableSeats(); seats == nil || *seats != 0 {
		t.Errorf("available seats = %v", seats)
	}
	uncapped := Listing{CurrentParticipants: 500}
	if uncapped.IsFull() || uncapped.AvailableSeats() != nil {
		t.Error("uncapped listing reported a limit")
	}
}

func TestAttendanceCheckOut(t *testing.T) {
	in := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	a := &Attendance{CheckInTime: in}
	if _, ok := a.Duration(); ok {
		t.Fatal("duration before check-out")
	}
	if err := a.CheckOut("v1", in.Add(90*time.Minute)); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if d, ok := a.Duration(); !ok || d != 90*time.Minute {
		t.Errorf("duration = %v, %v", d, ok)
	}
	if err := a.CheckOut("v1", in.Add(2*time.Hour)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second check-out: got %v", err)
	}
}
