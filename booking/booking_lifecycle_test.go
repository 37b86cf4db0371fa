package booking_test

import (
	"testing"
	"time"

	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/stretchr/testify/require"
)

var owner = bk.Actor{UserID: 9, Role: bk.RoleOwner}

func pendingBooking() bk.Booking {
	return bk.Booking{
		ID:          7,
		FieldID:     42,
		UserID:      3,
		OwnerID:     9,
		Status:      bk.StatusPending,
		StartDate:   "2026-03-14",
		StartTime:   "18:30",
		EndTime:     "19:30",
		CancelHours: 24,
	}
}

func TestValidateTransition(t *testing.T) {
	v := bk.NewValidator(time.UTC)

	t.Run("pending to approved to complete", func(t *testing.T) {
		b := pendingBooking()

		require.NoError(t, v.ValidateTransition(bk.TransitionRequest{Booking: b, To: bk.StatusApproved, Actor: owner}))
		b.Status = bk.StatusApproved

		require.NoError(t, v.ValidateTransition(bk.TransitionRequest{Booking: b, To: bk.StatusComplete, Actor: bk.Actor{Role: bk.RoleSystem}}))
	})

	t.Run("pending to complete is rejected", func(t *testing.T) {
		err := v.ValidateTransition(bk.TransitionRequest{Booking: pendingBooking(), To: bk.StatusComplete, Actor: bk.Actor{Role: bk.RoleSystem}})
		require.ErrorIs(t, err, bk.ErrValidation)
	})

	t.Run("approved to rejected is rejected", func(t *testing.T) {
		b := pendingBooking()
		b.Status = bk.StatusApproved

		err := v.ValidateTransition(bk.TransitionRequest{Booking: b, To: bk.StatusRejected, Reasoning: "double booked", Actor: owner})

		var verr *bk.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "to", verr.Field)
	})

	t.Run("reject requires reasoning", func(t *testing.T) {
		for _, reasoning := range []string{"", "   "} {
			err := v.ValidateTransition(bk.TransitionRequest{Booking: pendingBooking(), To: bk.StatusRejected, Reasoning: reasoning, Actor: owner})

			var verr *bk.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, "reasoning", verr.Field)
		}

		require.NoError(t, v.ValidateTransition(bk.TransitionRequest{Booking: pendingBooking(), To: bk.StatusRejected, Reasoning: "field closed", Actor: owner}))
	})

	t.Run("terminal states have no exits", func(t *testing.T) {
		for _, from := range []bk.Status{bk.StatusRejected, bk.StatusComplete} {
			for _, to := range bk.Statuses {
				require.False(t, bk.CanTransition(from, to), "%s -> %s", from, to)
			}
		}
	})

	t.Run("customers cannot approve", func(t *testing.T) {
		err := v.ValidateTransition(bk.TransitionRequest{Booking: pendingBooking(), To: bk.StatusApproved, Actor: bk.Actor{UserID: 3, Role: bk.RoleCustomer}})
		require.ErrorIs(t, err, bk.ErrValidation)
	})

	t.Run("other owner cannot approve", func(t *testing.T) {
		err := v.ValidateTransition(bk.TransitionRequest{Booking: pendingBooking(), To: bk.StatusApproved, Actor: bk.Actor{UserID: 10, Role: bk.RoleOwner}})
		require.ErrorIs(t, err, bk.ErrValidation)
	})

	t.Run("admin can approve", func(t *testing.T) {
		require.NoError(t, v.ValidateTransition(bk.TransitionRequest{Booking: pendingBooking(), To: bk.StatusApproved, Actor: bk.Actor{UserID: 1, Role: bk.RoleAdmin}}))
	})

	t.Run("unknown statuses", func(t *testing.T) {
		b := pendingBooking()
		b.Status = "canceled"
		require.ErrorIs(t, v.ValidateTransition(bk.TransitionRequest{Booking: b, To: bk.StatusApproved, Actor: owner}), bk.ErrValidation)
		require.ErrorIs(t, v.ValidateTransition(bk.TransitionRequest{Booking: pendingBooking(), To: "accepted", Actor: owner}), bk.ErrValidation)
	})
}

func TestValidateDeletion(t *testing.T) {
	v := bk.NewValidator(time.UTC)

	t.Run("owner can delete while not complete", func(t *testing.T) {
		b := pendingBooking()
		require.NoError(t, v.ValidateDeletion(b, owner))

		b.Status = bk.StatusApproved
		require.NoError(t, v.ValidateDeletion(b, owner))
	})

	t.Run("complete cannot be deleted", func(t *testing.T) {
		b := pendingBooking()
		b.Status = bk.StatusComplete
		require.ErrorIs(t, v.ValidateDeletion(b, owner), bk.ErrValidation)
	})

	t.Run("only the owner", func(t *testing.T) {
		require.ErrorIs(t, v.ValidateDeletion(pendingBooking(), bk.Actor{UserID: 3, Role: bk.RoleCustomer}), bk.ErrNotAllowed)
		require.ErrorIs(t, v.ValidateDeletion(pendingBooking(), bk.Actor{UserID: 1, Role: bk.RoleAdmin}), bk.ErrNotAllowed)
		require.ErrorIs(t, v.ValidateDeletion(pendingBooking(), bk.Actor{UserID: 10, Role: bk.RoleOwner}), bk.ErrNotAllowed)
	})
}

func TestCancellationDeadline(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	v := bk.NewValidator(paris)

	t.Run("subtracts cancel hours", func(t *testing.T) {
		deadline, err := v.CancellationDeadline(pendingBooking())
		require.NoError(t, err)
		require.Equal(t, time.Date(2026, 3, 13, 18, 30, 0, 0, paris), deadline)
	})

	t.Run("zero hours is the start", func(t *testing.T) {
		b := pendingBooking()
		b.CancelHours = 0
		deadline, err := v.CancellationDeadline(b)
		require.NoError(t, err)
		require.Equal(t, time.Date(2026, 3, 14, 18, 30, 0, 0, paris), deadline)
	})

	t.Run("civil time across dst change", func(t *testing.T) {
		b := pendingBooking()
		b.StartDate = "2026-03-29"
		b.StartTime = "10:00"
		b.CancelHours = 12

		deadline, err := v.CancellationDeadline(b)
		require.NoError(t, err)
		require.Equal(t, 22, deadline.Hour())
		require.Equal(t, 28, deadline.Day())
	})

	t.Run("seconds in start time", func(t *testing.T) {
		b := pendingBooking()
		b.StartTime = "18:30:45"
		deadline, err := v.CancellationDeadline(b)
		require.NoError(t, err)
		require.Equal(t, time.Date(2026, 3, 13, 18, 30, 45, 0, paris), deadline)
	})

	t.Run("unavailable on bad input", func(t *testing.T) {
		for _, mutate := range []func(*bk.Booking){
			func(b *bk.Booking) { b.StartDate = "" },
			func(b *bk.Booking) { b.StartTime = "" },
			func(b *bk.Booking) { b.StartDate = "2026-02-30" },
			func(b *bk.Booking) { b.StartTime = "25:00" },
			func(b *bk.Booking) { b.StartDate = "14/03/2026" },
			func(b *bk.Booking) { b.CancelHours = -1 },
		} {
			b := pendingBooking()
			mutate(&b)

			deadline, err := v.CancellationDeadline(b)
			require.ErrorIs(t, err, bk.ErrDeadlineUnavailable)
			require.True(t, deadline.IsZero())
		}
	})

	t.Run("cancellation open", func(t *testing.T) {
		b := pendingBooking()
		require.True(t, v.CancellationOpen(b, time.Date(2026, 3, 13, 18, 0, 0, 0, paris)))
		require.False(t, v.CancellationOpen(b, time.Date(2026, 3, 13, 18, 31, 0, 0, paris)))

		b.StartDate = "bogus"
		require.False(t, v.CancellationOpen(b, time.Date(2020, 1, 1, 0, 0, 0, 0, paris)))
	})
}
