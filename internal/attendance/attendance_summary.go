package attendance

// Summary holds the aggregate counts derived from a set of attendance
// records. All fields are recomputed from the records on every call; nothing
// here is stored.
type Summary struct {
	PresentDays    int     `json:"present_days"`
	AbsentDays     int     `json:"absent_days"`
	LateCount      int     `json:"late_count"`
	EarlyExitCount int     `json:"early_exit_count"`
	TotalHours     float64 `json:"total_hours"`
	AverageHours   float64 `json:"average_hours"`
}

// Summarize derives aggregate counts and working hours from records.
// A record missing either check_in or check_out contributes zero hours.
func Summarize(records []Attendance) Summary {
	var s Summary

	for _, r := range records {
		switch r.Status {
		case StatusAbsent:
			s.AbsentDays++
		default:
			s.PresentDays++
		}
		if r.LateEntry {
			s.LateCount++
		}
		if r.EarlyExit {
			s.EarlyExitCount++
		}
		s.TotalHours += workingHours(r)
	}

	if len(records) > 0 {
		s.AverageHours = s.TotalHours / float64(len(records))
	}
	return s
}

func workingHours(a Attendance) float64 {
	if a.CheckIn.IsZero() || a.CheckOut == nil {
		return 0
	}
	return a.CheckOut.Sub(a.CheckIn).Hours()
}
