package model

import (
	"time"
)

type DashboardStats struct {
	TotalBookings     int            `json:"totalBookings"`
	PendingBookings   int            `json:"pendingBookings"`
	CompletedBookings int            `json:"completedBookings"`
	TotalUsers        int            `json:"totalUsers"`
	TotalRevenue      int64          `json:"totalRevenue"`
	RecentBookings    []Booking      `json:"recentBookings,omitempty"`
	ByConsultantType  map[string]int `json:"byConsultantType,omitempty"`
}

type RevenuePeriod string

const (
	PeriodWeek  RevenuePeriod = "week"
	PeriodMonth RevenuePeriod = "month"
	PeriodYear  RevenuePeriod = "year"
)

type RevenuePoint struct {
	Date     string `json:"date"`
	Revenue  int64  `json:"revenue"`
	Bookings int    `json:"bookings"`
}

type Settings struct {
	CompanyName        string           `json:"companyName,omitempty"`
	SupportEmail       string           `json:"supportEmail,omitempty" validate:"omitempty,email"`
	Currency           string           `json:"currency,omitempty" validate:"omitempty,len=3"`
	MaintenanceMode    bool             `json:"maintenanceMode"`
	ConsultationPrices map[string]int64 `json:"consultationPrices,omitempty"`
	UpdatedAt          *time.Time       `json:"updatedAt,omitempty"`
}
