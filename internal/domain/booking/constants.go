package booking

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

const (
	DefaultHorizonDays     = 30
	DefaultMinLeadHours    = 24
	DefaultSlotMinutes     = 30
	MaxPreferredDates      = 3
	MaxAlternatives        = 6
	AlternativeScanDays    = 3
)

// DefaultSlotStarts is the daily template: five 30-minute slots per
// working day.
var DefaultSlotStarts = []string{"09:00", "10:00", "11:00", "14:00", "15:00"}
