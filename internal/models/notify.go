package models

import "time"

type Condition string

const (
	ConditionZero    Condition = "zero"
	ConditionLow     Condition = "low"
	ConditionRestock Condition = "restock"
)

type NotifyMode string

const (
	ModeOff     NotifyMode = "off"
	ModeDaily   NotifyMode = "daily"
	ModeInstant NotifyMode = "instant"
)

// NotifyRule subscribes a user to a stock condition. A nil ProductID
// applies the rule to every product.
type NotifyRule struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	ProductID *int64     `json:"product_id,omitempty"`
	Condition Condition  `json:"condition"`
	Mode      NotifyMode `json:"mode"`
	Floor     int64      `json:"floor,omitempty"`
}

// Notification is one outbound alert about a threshold crossing.
type Notification struct {
	UserID           int64      `json:"user_id"`
	Condition        Condition  `json:"condition"`
	ProductID        int64      `json:"product_id"`
	SKU              string     `json:"sku"`
	ProductName      string     `json:"product_name"`
	Location         string     `json:"location"`
	ObservedQuantity int64      `json:"observed_quantity"`
	EventSeq         int64      `json:"event_seq"`
	Mode             NotifyMode `json:"mode"`
	At               time.Time  `json:"at"`
}

func (c Condition) Valid() bool {
	switch c {
	case ConditionZero, ConditionLow, ConditionRestock:
		return true
	}
	return false
}

func (m NotifyMode) Valid() bool {
	switch m {
	case ModeOff, ModeDaily, ModeInstant:
		return true
	}
	return false
}
