package ledger

import (
	"math"
	"strings"
	"testing"

	"github.com/Ftotnem/multa-tracker/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlayer(teamIDs ...string) models.Player {
	p := models.Player{ID: "p1", Name: "Hans"}
	for _, id := range teamIDs {
		AddMembership(&p, id)
	}
	return p
}

func TestApplyAdjustment_Scenario(t *testing.T) {
	p := newPlayer("T1")
	b, ok := BalanceFor(p, "T1")
	require.True(t, ok)
	assert.Equal(t, models.TeamBalance{ID: "T1"}, b)

	steps := []struct {
		delta      float64
		amountDue  float64
		totalMulta float64
	}{
		{10, 10, 10},
		{-10, 0, 10},
		{5, 5, 15},
	}
	for _, s := range steps {
		require.True(t, ApplyAdjustment(&p, "T1", s.delta))
		b, _ := BalanceFor(p, "T1")
		assert.Equal(t, s.amountDue, b.AmountDue, "amountDue after %v", s.delta)
		assert.Equal(t, s.totalMulta, b.TotalMulta, "totalMulta after %v", s.delta)
	}
	assert.True(t, TeamIDsConsistent(p))
}

func TestApplyAdjustment_OnlyTouchesMatchingTeam(t *testing.T) {
	p := newPlayer("T1", "T2")
	ApplyAdjustment(&p, "T2", 7)

	t1, _ := BalanceFor(p, "T1")
	t2, _ := BalanceFor(p, "T2")
	assert.Zero(t, t1.AmountDue)
	assert.Equal(t, 7.0, t2.AmountDue)
	assert.Equal(t, 7.0, t2.TotalMulta)
}

func TestApplyAdjustment_NoMatchLeavesPlayerUnchanged(t *testing.T) {
	p := newPlayer("T1")
	ApplyAdjustment(&p, "T1", 3)
	before := p.Clone()

	assert.False(t, ApplyAdjustment(&p, "other", 12))
	assert.Equal(t, before, p)
}

func TestApplyAdjustment_PaymentCanGoNegative(t *testing.T) {
	p := newPlayer("T1")
	ApplyAdjustment(&p, "T1", -4)
	b, _ := BalanceFor(p, "T1")
	assert.Equal(t, -4.0, b.AmountDue)
	assert.Zero(t, b.TotalMulta)
}

func TestAddMembership_Idempotent(t *testing.T) {
	p := newPlayer("T1")
	assert.True(t, AddMembership(&p, "T2"))
	assert.False(t, AddMembership(&p, "T2"))

	assert.Equal(t, []string{"T1", "T2"}, p.TeamIDs)
	assert.Len(t, p.Teams, 2)
	assert.True(t, TeamIDsConsistent(p))
}

func TestRemoveMembership(t *testing.T) {
	p := newPlayer("T1", "T2")
	assert.True(t, RemoveMembership(&p, "T1"))
	assert.False(t, RemoveMembership(&p, "T1"))
	assert.Equal(t, []string{"T2"}, p.TeamIDs)
	assert.True(t, TeamIDsConsistent(p))
}

func TestBalanceFor_MatchesByIdentifier(t *testing.T) {
	p := newPlayer("T1", "T2")
	ApplyAdjustment(&p, "T2", 9)

	b, ok := BalanceFor(p, "T2")
	require.True(t, ok)
	assert.Equal(t, "T2", b.ID)
	assert.Equal(t, 9.0, b.AmountDue)

	_, ok = BalanceFor(p, "T3")
	assert.False(t, ok)
}

func TestTeamIDsConsistent_DetectsDrift(t *testing.T) {
	p := newPlayer("T1", "T2")
	p.TeamIDs = []string{"T2", "T1"}
	assert.False(t, TeamIDsConsistent(p))
	p.TeamIDs = []string{"T1"}
	assert.False(t, TeamIDsConsistent(p))
}

func TestValidateDelta(t *testing.T) {
	assert.NoError(t, ValidateDelta(-3))
	assert.NoError(t, ValidateDelta(0))
	assert.ErrorIs(t, ValidateDelta(math.NaN()), ErrNonFiniteDelta)
	assert.ErrorIs(t, ValidateDelta(math.Inf(1)), ErrNonFiniteDelta)
	assert.ErrorIs(t, ValidateDelta(math.Inf(-1)), ErrNonFiniteDelta)
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"5":      5,
		" 2.50 ": 2.5,
		"2,50":   2.5,
		"0.1":    0.1,
		"1,5":    1.5,
		"12,50":  12.5,
		"1000":   1000,
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "abc", "NaN", "Inf", "-3", "0", "1,000.5", "1,000", "12,500"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestCleanName(t *testing.T) {
	got, err := CleanName("  <b>Blau</b> & Weiss ")
	require.NoError(t, err)
	assert.Equal(t, "Blau & Weiss", got)

	_, err = CleanName("<script>alert(1)</script>")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = CleanName("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	got, err = CleanName("O'Brien &amp; Sons")
	require.NoError(t, err)
	assert.Equal(t, "O'Brien & Sons", got)
}

func TestCleanName_EscapedMarkupStaysInert(t *testing.T) {
	for _, in := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&lt;img src=x onerror=alert(1)&gt;",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;",
	} {
		got, err := CleanName(in)
		assert.ErrorIs(t, err, ErrEmptyName, in)
		assert.NotContains(t, got, "<", in)
	}

	got, err := CleanName("&lt;b&gt;Rot&lt;/b&gt; Weiss")
	require.NoError(t, err)
	assert.Equal(t, "Rot Weiss", got)

	_, err = CleanName("&amp;amp;amp;lt;b&amp;amp;amp;gt;x")
	assert.ErrorIs(t, err, ErrNestedName)
}

func TestCleanName_RejectsOverlongNames(t *testing.T) {
	exact := strings.Repeat("ä", MaxNameLength)
	got, err := CleanName(exact)
	require.NoError(t, err)
	assert.Equal(t, exact, got)

	_, err = CleanName(exact + "x")
	assert.ErrorIs(t, err, ErrNameTooLong)
}
