package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type BookingStatus string
type TransactionStatus string
type WaitlistStatus string
type RackStatus string

const (
	BOOKING_PROVISIONING BookingStatus = "provisioning"
	BOOKING_CONFIRMED    BookingStatus = "confirmed"
	BOOKING_COMPLETED    BookingStatus = "completed"
	BOOKING_CANCELLED    BookingStatus = "cancelled"

	TRANSACTION_CREATED TransactionStatus = "created"
	TRANSACTION_PAID    TransactionStatus = "paid"
	TRANSACTION_FAILED  TransactionStatus = "failed"

	WAITLIST_WAITING  WaitlistStatus = "waiting"
	WAITLIST_NOTIFIED WaitlistStatus = "notified"
	WAITLIST_EXPIRED  WaitlistStatus = "expired"

	RACK_AVAILABLE     RackStatus = "available"
	RACK_NOT_AVAILABLE RackStatus = "not available"
)

const (
	ROLE_USER  string = "user"
	ROLE_ADMIN string = "admin"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type RegisterUserRequestBody struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateBookingRequestBody struct {
	RackID    uint   `json:"rack" binding:"required"`
	StartTime string `json:"start_time" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndTime   string `json:"end_time" binding:"required,gtdate=StartTime" time_format:"2006-01-02 15:04:05 -07:00"`
}

type JoinWaitlistRequestBody struct {
	RackID    uint   `json:"rack" binding:"required"`
	StartTime string `json:"start_time" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	EndTime   string `json:"end_time" binding:"required,gtdate=StartTime" time_format:"2006-01-02 15:04:05 -07:00"`
}

type RackAvailabilityQuery struct {
	RangeStart string `form:"range_start" binding:"required"`
	RangeEnd   string `form:"range_end" binding:"required"`
}

type VNCConnectionInput struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Password string `json:"password,omitempty"`
}

type CreateRackRequestBody struct {
	Name             string              `json:"name" binding:"required"`
	Description      string              `json:"description" binding:"required"`
	Location         string              `json:"location,omitempty"`
	Status           string              `json:"status,omitempty"`
	DeviceID         string              `json:"device_id" binding:"required"`
	TokenCostPerHour uint                `json:"token_cost_per_hour,omitempty"`
	VNCConnection    *VNCConnectionInput `json:"vnc_connection,omitempty"`
}

type UpdateRackRequestBody struct {
	Name             *string             `json:"name,omitempty"`
	Description      *string             `json:"description,omitempty"`
	Location         *string             `json:"location,omitempty"`
	Status           *string             `json:"status,omitempty"`
	DeviceID         *string             `json:"device_id,omitempty"`
	TokenCostPerHour *uint               `json:"token_cost_per_hour,omitempty"`
	VNCConnection    *VNCConnectionInput `json:"vnc_connection,omitempty"`
}

type CreateTokenPackRequestBody struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description,omitempty"`
	TokensGranted uint   `json:"tokens_granted" binding:"required"`
	Price         uint   `json:"price" binding:"required"`
	Currency      string `json:"currency,omitempty"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

type CreateOrderRequestBody struct {
	TokenPackID uint `json:"token_pack" binding:"required"`
}

type VerifyPaymentRequestBody struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

type AdminCreateBookingRequestBody struct {
	UserID    uint   `json:"user" binding:"required"`
	RackID    uint   `json:"rack" binding:"required"`
	StartTime string `json:"start_time" binding:"required" time_format:"2006-01-02 15:04:05 -07:00"`
	EndTime   string `json:"end_time" binding:"required,gtdate=StartTime" time_format:"2006-01-02 15:04:05 -07:00"`
}

type AdminUpdateBookingRequestBody struct {
	UserID    *uint   `json:"user,omitempty"`
	RackID    *uint   `json:"rack,omitempty"`
	StartTime *string `json:"start_time,omitempty" time_format:"2006-01-02 15:04:05 -07:00"`
	EndTime   *string `json:"end_time,omitempty" time_format:"2006-01-02 15:04:05 -07:00"`
	Status    *string `json:"status,omitempty"`
}

type AdjustTokensRequestBody struct {
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason,omitempty"`
}
