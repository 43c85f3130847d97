// Package ledger holds the balance rules for multa accounts. Everything here is
// pure: stores decide how to persist the result atomically.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Ftotnem/multa-tracker/shared/models"
)

var (
	ErrNonFiniteDelta = errors.New("delta must be a finite number")
	ErrInvalidAmount  = errors.New("amount must be a positive number")
)

// NewBalance returns the zeroed account a player gets when joining a team.
func NewBalance(teamID string) models.TeamBalance {
	return models.TeamBalance{ID: teamID, AmountDue: 0, TotalMulta: 0}
}

// ApplyAdjustment adds delta to every balance entry of teamID. Positive deltas
// also grow the lifetime total; payments (negative deltas) never shrink it.
// It reports whether any entry matched. A player without the team is left untouched.
func ApplyAdjustment(p *models.Player, teamID string, delta float64) bool {
	matched := false
	for i := range p.Teams {
		if p.Teams[i].ID != teamID {
			continue
		}
		matched = true
		p.Teams[i].AmountDue += delta
		if delta > 0 {
			p.Teams[i].TotalMulta += delta
		}
	}
	return matched
}

// AddMembership appends a zeroed balance for teamID together with its index entry.
// Re-adding an existing team is a no-op and returns false.
func AddMembership(p *models.Player, teamID string) bool {
	if slices.Contains(p.TeamIDs, teamID) {
		return false
	}
	p.Teams = append(p.Teams, NewBalance(teamID))
	p.TeamIDs = append(p.TeamIDs, teamID)
	return true
}

// RemoveMembership drops every balance and index entry for teamID.
func RemoveMembership(p *models.Player, teamID string) bool {
	before := len(p.Teams) + len(p.TeamIDs)
	p.Teams = slices.DeleteFunc(p.Teams, func(b models.TeamBalance) bool { return b.ID == teamID })
	p.TeamIDs = slices.DeleteFunc(p.TeamIDs, func(id string) bool { return id == teamID })
	return len(p.Teams)+len(p.TeamIDs) != before
}

// BalanceFor locates the balance entry for teamID by identifier, never by position.
func BalanceFor(p models.Player, teamID string) (models.TeamBalance, bool) {
	for _, b := range p.Teams {
		if b.ID == teamID {
			return b, true
		}
	}
	return models.TeamBalance{}, false
}

// TeamIDsConsistent checks that TeamIDs is exactly Teams[*].ID in order.
func TeamIDsConsistent(p models.Player) bool {
	if len(p.Teams) != len(p.TeamIDs) {
		return false
	}
	for i, b := range p.Teams {
		if p.TeamIDs[i] != b.ID {
			return false
		}
	}
	return true
}

// ValidateDelta rejects values that would corrupt a stored balance.
func ValidateDelta(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return ErrNonFiniteDelta
	}
	return nil
}

// ValidateAmount checks a user-entered multa or payment amount.
func ValidateAmount(amount float64) error {
	if err := ValidateDelta(amount); err != nil {
		return ErrInvalidAmount
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ParseAmount turns text typed by a user ("5", "2.50", "2,50", " 3 ") into an amount.
//
// A single comma is read as the decimal separator. A comma followed by exactly
// three digits ("1,000") reads as a thousands separator just as well, so it is
// rejected rather than guessed.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if _, frac, _ := strings.Cut(s, ","); len(frac) == 3 && allDigits(frac) {
			return 0, fmt.Errorf("%w: ambiguous separator in %q", ErrInvalidAmount, s)
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
