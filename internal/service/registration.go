package service

import (
	"context"
	"errors"
	"strings"

	"symposium/internal/dto"
	"symposium/internal/model"
	"symposium/internal/repo"
	"symposium/internal/ticket"
)

func (s *Service) CreateRegistration(ctx context.Context, user *model.User, req dto.CreateRegistrationRequest) (*model.Registration, error) {
	target, err := req.Target()
	if err != nil {
		return nil, classify(err, "target")
	}

	listing, err := s.repo.GetListing(ctx, target)
	if err != nil {
		return nil, classify(err, string(target.Kind))
	}

	now := s.now()
	if !listing.IsRegistrationOpen(now) {
		return nil, fail(ErrInvalidState, "registration for %s is closed", listing.Name)
	}
	if listing.IsFull() {
		return nil, fail(ErrInvalidState, "%s is full", listing.Name)
	}

	members := req.Members()
	if listing.IsTeam {
		if strings.TrimSpace(req.TeamName) == "" {
			return nil, fail(ErrValidation, "team name is required for %s", listing.Name)
		}
		// The registrant counts as a team member.
		size := len(members) + 1
		if size < listing.TeamSizeMin || (listing.TeamSizeMax > 0 && size > listing.TeamSizeMax) {
			return nil, fail(ErrValidation, "team size must be between %d and %d", listing.TeamSizeMin, listing.TeamSizeMax)
		}
	} else if len(members) > 0 {
		return nil, fail(ErrValidation, "%s does not accept team members", listing.Name)
	}

	dup, err := s.repo.HasActiveRegistration(ctx, user.ID, target)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, fail(ErrInvalidState, "you are already registered for %s", listing.Name)
	}

	amount := listing.Fee
	if req.AccommodationRequired {
		amount += s.cfg.AccommodationFee
	}

	reg := &model.Registration{
		ID:                    newID(),
		UserID:                user.ID,
		Target:                target,
		TeamName:              strings.TrimSpace(req.TeamName),
		TeamMembers:           members,
		AccommodationRequired: req.AccommodationRequired,
		Amount:                amount,
		PaymentStatus:         model.RegistrationPaymentPending,
		Status:                model.RegistrationPending,
		Notes:                 req.Notes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	reg.EntryToken = s.tokens.Sign(reg.ID)

	if err := s.insertRegistration(ctx, reg, now.Year()); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("registration_id", reg.ID).
		Str("registration_number", reg.RegistrationNumber).
		Str("target", target.String()).
		Msg("registration created")

	s.notify(dto.NotificationMessage{
		Kind:               dto.NotifyRegistrationCreated,
		Email:              user.Email,
		Name:               user.Name,
		RegistrationNumber: reg.RegistrationNumber,
		Title:              listing.Name,
		Amount:             reg.Amount,
	})
	return reg, nil
}

// insertRegistration draws a number from the yearly counter and inserts.
// A unique violation on the number draws a fresh one.
func (s *Service) insertRegistration(ctx context.Context, reg *model.Registration, year int) error {
	for attempt := 1; attempt <= s.cfg.RegistrationRetries; attempt++ {
		seq, err := s.repo.NextSequence(ctx, model.RegistrationCounter(year))
		if err != nil {
			return err
		}
		reg.RegistrationNumber = model.RegistrationNumber(reg.Target, year, seq)

		err = s.repo.CreateRegistration(ctx, reg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return err
		}
		s.log.Warn().
			Str("registration_number", reg.RegistrationNumber).
			Int("attempt", attempt).
			Msg("registration number already taken, retrying")
	}
	return fail(ErrDuplicateKey, "could not assign a unique registration number, please retry")
}

func canAccess(owner string, user *model.User) bool {
	return owner == user.ID || user.Role == model.RoleAdmin
}

func (s *Service) GetRegistration(ctx context.Context, id string, user *model.User) (*model.Registration, error) {
	reg, err := s.repo.GetRegistrationByID(ctx, id)
	if err != nil {
		return nil, classify(err, "registration")
	}
	if !canAccess(reg.UserID, user) {
		return nil, fail(ErrForbidden, "not authorized to access this registration")
	}
	return reg, nil
}

func (s *Service) MyRegistrations(ctx context.Context, user *model.User) ([]model.Registration, error) {
	return s.repo.ListRegistrations(ctx, repo.RegistrationFilter{UserID: user.ID})
}

func (s *Service) ListRegistrations(ctx context.Context, f repo.RegistrationFilter) ([]model.Registration, error) {
	return s.repo.ListRegistrations(ctx, f)
}

// CancelRegistration cancels on behalf of the owner or an admin. A
// confirmed registration gives its seat back in the same transaction.
func (s *Service) CancelRegistration(ctx context.Context, id string, actor *model.User, reason string) (*model.Registration, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "cancelled by user"
	}

	var (
		reg     *model.Registration
		listing *model.Listing
	)
	err := s.repo.InTx(ctx, func(tx repo.Repository) error {
		var err error
		reg, err = tx.GetRegistrationByID(ctx, id)
		if err != nil {
			return classify(err, "registration")
		}
		if !canAccess(reg.UserID, actor) {
			return fail(ErrForbidden, "not authorized to cancel this registration")
		}
		listing, err = tx.GetListing(ctx, reg.Target)
		if err != nil {
			return classify(err, string(reg.Target.Kind))
		}

		wasConfirmed := reg.Status == model.RegistrationConfirmed
		if err := reg.Cancel(actor.ID, reason, listing.StartsAt, s.now()); err != nil {
			return classify(err, "registration")
		}
		if err := tx.UpdateRegistration(ctx, reg); err != nil {
			return err
		}
		if wasConfirmed {
			if err := tx.ReleaseSeat(ctx, reg.Target); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("registration_id", reg.ID).
		Str("cancelled_by", actor.ID).
		Msg("registration cancelled")
	s.notifyUser(ctx, reg.UserID, dto.NotificationMessage{
		Kind:               dto.NotifyRegistrationCancelled,
		RegistrationNumber: reg.RegistrationNumber,
		Title:              listing.Name,
		Reason:             reason,
	})
	return reg, nil
}

// Ticket returns the printable entry pass of a confirmed registration.
func (s *Service) Ticket(ctx context.Context, id string, user *model.User) (*ticket.Ticket, error) {
	reg, err := s.GetRegistration(ctx, id, user)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationConfirmed {
		return nil, fail(ErrInvalidState, "ticket is available only for confirmed registrations, status is %s", reg.Status)
	}

	owner, err := s.repo.GetUserByID(ctx, reg.UserID)
	if err != nil {
		return nil, classify(err, "user")
	}
	listing, err := s.repo.GetListing(ctx, reg.Target)
	if err != nil {
		return nil, classify(err, string(reg.Target.Kind))
	}

	return &ticket.Ticket{
		RegistrationNumber: reg.RegistrationNumber,
		ParticipantName:    owner.Name,
		ParticipantEmail:   owner.Email,
		College:            owner.College,
		Title:              listing.Name,
		Kind:               reg.Target.Kind,
		Venue:              listing.Venue,
		StartsAt:           listing.StartsAt,
		TeamName:           reg.TeamName,
		Amount:             reg.Amount,
		Token:              reg.EntryToken,
	}, nil
}

func (s *Service) TicketPDF(ctx context.Context, id string, user *model.User) ([]byte, string, error) {
	t, err := s.Ticket(ctx, id, user)
	if err != nil {
		return nil, "", err
	}
	pdf, err := ticket.PDF(*t)
	if err != nil {
		return nil, "", err
	}
	return pdf, "ticket-" + t.RegistrationNumber + ".pdf", nil
}

// EntryQR renders the entry token of a live registration as a PNG.
func (s *Service) EntryQR(ctx context.Context, id string, user *model.User) ([]byte, error) {
	reg, err := s.GetRegistration(ctx, id, user)
	if err != nil {
		return nil, err
	}
	if reg.Status == model.RegistrationCancelled {
		return nil, fail(ErrInvalidState, "registration is cancelled")
	}
	return ticket.QRCode(reg.EntryToken)
}
