package database

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/klokku/booking/internal/utils"
)

// FromPgTime converts a TIME column value into a TimeOfDay.
func FromPgTime(t pgtype.Time) utils.TimeOfDay {
	return utils.TimeOfDay(t.Microseconds / 1_000_000)
}

// ToPgTime converts a TimeOfDay into a TIME parameter.
func ToPgTime(t utils.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 1_000_000, Valid: true}
}
