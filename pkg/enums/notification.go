package enums

import "fmt"

// NotificationKind labels persisted shopper notifications.
type NotificationKind string

const (
	NotificationKindOrderConfirmed NotificationKind = "order_confirmed"
	NotificationKindPaymentFailed  NotificationKind = "payment_failed"
	NotificationKindOrderCancelled NotificationKind = "order_cancelled"
	NotificationKindOrderShipped   NotificationKind = "order_shipped"
	NotificationKindOrderDelivered NotificationKind = "order_delivered"
	NotificationKindReturnReceived NotificationKind = "return_received"
	NotificationKindRefundIssued   NotificationKind = "refund_issued"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindOrderConfirmed,
	NotificationKindPaymentFailed,
	NotificationKindOrderCancelled,
	NotificationKindOrderShipped,
	NotificationKindOrderDelivered,
	NotificationKindReturnReceived,
	NotificationKindRefundIssued,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
