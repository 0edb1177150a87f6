package models

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const DateLayout = "2006-01-02"

// User-facing messages returned by booking and car operations.
const (
	MsgBookingCreated  = "Successfully added booking."
	MsgBookingUpdated  = "Successfully updated car booking."
	MsgBookingDeleted  = "Successfully deleted car booking."
	MsgCarCreated      = "Successfully added car."
	MsgCarUpdated      = "Successfully updated car."
	MsgCarDeleted      = "Successfully deleted car."
	MsgUserUpdated     = "Successfully updated."
	MsgUserUpdateError = "Error while updating. Try again later."
	MsgInvalidCar      = "Car name is required."
	MsgWeakPIN         = "PIN must be at least 4 characters."
	MsgServerError     = "Server error. Try again."
	MsgInvalidID       = "Invalid ID. Try again."
	MsgInvalidImage    = "Only png, jpg and jpeg images up to 5MB are allowed."
	MsgInvalidDraft    = "Description, summary and dates are required."
	MsgRangeConflict   = "Selected dates overlap an existing booking."
	MsgInvalidPIN      = "Invalid PIN."
	MsgOperationActive = "Another operation is still in progress."
)

type MaintenanceType string

const (
	MaintenanceOilChange        MaintenanceType = "oil-change"
	MaintenanceTireRotation     MaintenanceType = "tire-rotation"
	MaintenanceBrakeCheck       MaintenanceType = "brake-check"
	MaintenanceGeneralServicing MaintenanceType = "general-serving"
	MaintenanceOther            MaintenanceType = "other"
)

const (
	// MaxFileSize is the largest accepted image upload in bytes.
	MaxFileSize = 5000000

	// DefaultDraftTTL время жизни черновика бронирования в Redis
	DefaultDraftTTL = 24 * 60 * 60 // 24 часа в секундах

	// DefaultCalendarCacheTTL время жизни кэша календаря
	DefaultCalendarCacheTTL = 10 * 60 // 10 минут в секундах

	// SessionTTL lifetime of a login session, refreshed on every authenticated request.
	SessionTTL = 60 * 60

	// LoginRateLimitAttempts PIN attempts allowed per window and client.
	LoginRateLimitAttempts = 10
	LoginRateLimitWindow   = 5 * 60
)
