package models

import "time"

type Car struct {
	ID                     int64           `json:"id"`
	Name                   string          `json:"name"`
	Image                  *ImageFile      `json:"-"`
	ImageURL               string          `json:"image_url"`
	Make                   string          `json:"make"`
	Model                  string          `json:"model"`
	Year                   int             `json:"year"`
	LicensePlate           string          `json:"license_plate"`
	OdometerReading        string          `json:"odometer_reading"`
	MaintenanceDate        *time.Time      `json:"maintenance_date,omitempty"`
	MaintenanceType        MaintenanceType `json:"maintenance_type"`
	ServiceProviderName    string          `json:"service_provider_name"`
	ServiceProviderContact string          `json:"service_provider_contact"`
	PartsReplaced          string          `json:"parts_replaced"`
	Cost                   float64         `json:"cost"`
	NextMaintenanceDate    *time.Time      `json:"next_maintenance_date,omitempty"`
	Remarks                string          `json:"remarks"`
	CreatedAt              time.Time       `json:"created_at"`
	TotalBookings          int64           `json:"total_bookings"`
}
