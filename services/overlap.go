package services

import (
	"time"

	"github.com/nilsrambow/amrum-be/models"
	"github.com/nilsrambow/amrum-be/utils"
)

// ValidateDates rejects ranges whose check-out is not strictly after check-in.
func ValidateDates(checkIn, checkOut time.Time) error {
	if !utils.DateOnly(checkOut).After(utils.DateOnly(checkIn)) {
		return ErrInvalidDates
	}
	return nil
}

// Overlaps reports whether [inA, outA) and [inB, outB) intersect.
// A check-out on the same day as another check-in is not an overlap.
func Overlaps(inA, outA, inB, outB time.Time) bool {
	return inA.Before(outB) && outA.After(inB)
}

// CheckOverlap returns every booking in existing that collides with the
// candidate range, skipping excludeID (0 excludes nothing).
func CheckOverlap(checkIn, checkOut time.Time, existing []models.Booking, excludeID uint) []Conflict {
	in, out := utils.DateOnly(checkIn), utils.DateOnly(checkOut)

	var conflicts []Conflict
	for _, b := range existing {
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		if !Overlaps(in, out, utils.DateOnly(b.CheckIn), utils.DateOnly(b.CheckOut)) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			BookingID: b.ID,
			GuestName: b.Guest.DisplayName(),
			CheckIn:   utils.FormatDate(b.CheckIn),
			CheckOut:  utils.FormatDate(b.CheckOut),
		})
	}
	return conflicts
}
