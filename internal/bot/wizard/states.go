package wizard

import "strings"

// State identifies the wizard's current step. Optional steps are skipped by
// guard predicates on entry, never by numeric step arithmetic.
type State string

const (
	StateColorSelect         State = "color_select"
	StateSizeSelect          State = "size_select"
	StateNameCapture         State = "name_capture"
	StateSurnameCapture      State = "surname_capture"
	StatePhoneCapture        State = "phone_capture"
	StateCityInput           State = "city_input"
	StateCityDisambiguation  State = "city_disambiguation"
	StateWarehouseResolution State = "warehouse_resolution"
	StatePaymentSelect       State = "payment_select"
	StateConfirm             State = "confirm"

	// Terminal states. A wizard in a terminal state processes no events.
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
)

// Callback tokens. These are part of the chat client contract and must not
// change.
const (
	CallbackCancelOrder    = "cancel_order"
	CallbackChangeCity     = "change_city"
	CallbackRetryCity      = "retry_city"
	CallbackSizeGuide      = "size_guide"
	CallbackListWarehouses = "list_warehouses"
	CallbackConfirmOrder   = "confirm_order"
	CallbackEditOrder      = "edit_order"
	CallbackMainMenu       = "main_menu"

	CallbackColorPrefix     = "color_"
	CallbackSizePrefix      = "size_"
	CallbackCityPrefix      = "city_"
	CallbackWarehousePrefix = "warehouse_"

	CallbackPaymentPostpaid = "payment_postpaid"
	CallbackPaymentPrepaid  = "payment_prepaid"
)

// Payment method labels as submitted to the CRM.
const (
	PaymentPostpaid = "Післяплата"
	PaymentPrepaid  = "Передоплата на карту"
)

// DeliveryMethod is the only shipping option the store offers.
const DeliveryMethod = "Нова Пошта"

// Owns reports whether a callback token belongs to the wizard's vocabulary,
// so the dispatcher can route it here while a wizard is active.
func Owns(data string) bool {
	switch data {
	case CallbackCancelOrder, CallbackChangeCity, CallbackRetryCity,
		CallbackSizeGuide, CallbackListWarehouses,
		CallbackConfirmOrder, CallbackEditOrder,
		CallbackPaymentPostpaid, CallbackPaymentPrepaid:
		return true
	}

	// size_help_<id> belongs to the product card, not the wizard.
	if strings.HasPrefix(data, "size_help_") {
		return false
	}

	for _, prefix := range []string{
		CallbackColorPrefix, CallbackSizePrefix,
		CallbackCityPrefix, CallbackWarehousePrefix,
	} {
		if strings.HasPrefix(data, prefix) && len(data) > len(prefix) {
			return true
		}
	}
	return false
}
