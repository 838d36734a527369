package model

type StatusTotal struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Total  Amount `json:"total"`
}

type DashboardStats struct {
	TotalUsers            int            `json:"total_users"`
	ActiveEvents          int            `json:"active_events"`
	ActiveWorkshops       int            `json:"active_workshops"`
	TotalRegistrations    int            `json:"total_registrations"`
	RegistrationsByStatus map[string]int `json:"registrations_by_status"`
	Payments              []StatusTotal  `json:"payments"`
	Revenue               Amount         `json:"revenue"`
	CheckIns              int            `json:"check_ins"`
}
