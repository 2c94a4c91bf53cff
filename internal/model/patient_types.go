package model

type PatientFilters struct {
	SearchTerm string `json:"search_term" form:"search"`
}

// PatientStats counts registrations overall and since the start of the
// current month and week.
type PatientStats struct {
	Total     int `json:"total" db:"total"`
	ThisMonth int `json:"this_month" db:"this_month"`
	ThisWeek  int `json:"this_week" db:"this_week"`
}
