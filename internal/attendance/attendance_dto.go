package attendance

type CheckInRequest struct {
	At string `json:"check_in"`
}

type CheckOutRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	At         string `json:"check_out"`
}

type AttendanceResponse struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name,omitempty"`
	Date         string  `json:"date"`
	CheckIn      string  `json:"check_in"`
	CheckOut     *string `json:"check_out,omitempty"`
	Status       string  `json:"status"`
	LateEntry    bool    `json:"late_entry"`
	EarlyExit    bool    `json:"early_exit"`
	WorkingHours float64 `json:"working_hours"`
}

type DailyHours struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

type SummaryResponse struct {
	Date               string       `json:"date"`
	TotalPresent       int          `json:"total_present"`
	AbsenteePercentage float64      `json:"absentee_percentage"`
	LateArrivals       int          `json:"late_arrivals"`
	EarlyExits         int          `json:"early_exits"`
	MonthlyWorkingHours []DailyHours `json:"monthly_working_hours"`
}
