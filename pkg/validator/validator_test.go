package validator

import (
	"context"
	"errors"
	"testing"
)

type signup struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
	Seats int    `json:"seats" validate:"positive"`
	Kind  string `json:"kind" validate:"oneof=event workshop"`
}

func TestValidateCollectsAllFields(t *testing.T) {
	err := Validate(context.Background(), signup{Name: "A", Email: "nope", Phone: "12", Kind: "party"})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	want := map[string]string{
		"name":  ErrFieldBelowMinLen,
		"email": ErrInvalidEmail,
		"phone": ErrInvalidPhone,
		"seats": "Value must be positive",
	}
	got := map[string]string{}
	for _, f := range verr.Fields {
		got[f.Field] = f.Message
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Errorf("%s: got %q, want %q", field, got[field], msg)
		}
	}
	if _, ok := got["kind"]; !ok {
		t.Error("oneof violation not reported")
	}
	if verr.Error() != ErrFieldBelowMinLen+": name" {
		t.Errorf("Error() = %q", verr.Error())
	}
}

func TestValidateOK(t *testing.T) {
	err := Validate(context.Background(), signup{
		Name: "Asha", Email: "asha@example.com", Phone: "+919876543210", Seats: 2, Kind: "event",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegNumberTag(t *testing.T) {
	type scan struct {
		Number string `json:"number" validate:"regnumber"`
	}
	if err := Validate(context.Background(), scan{Number: "SHACK202600042"}); err != nil {
		t.Fatalf("valid number rejected: %v", err)
	}
	if err := Validate(context.Background(), scan{Number: "SHACK26"}); err == nil {
		t.Fatal("short number accepted")
	}
}
