package migration

// Entity type keys used as the EntityType of data records and mapping entries
const (
	EntityOrder                     = "order"
	EntityOrderAddress              = "order_address"
	EntityOrderLineItem             = "order_line_item"
	EntityOrderDelivery             = "order_delivery"
	EntityOrderDeliveryPosition     = "order_delivery_position"
	EntityOrderTransaction          = "order_transaction"
	EntityCustomer                  = "customer"
	EntityCustomerAddress           = "customer_address"
	EntityProduct                   = "product"
	EntityCurrency                  = "currency"
	EntityLanguage                  = "language"
	EntityCountry                   = "country"
	EntityCountryTranslation        = "country_translation"
	EntityCountryState              = "country_state"
	EntityCountryStateTranslation   = "country_state_translation"
	EntityShippingMethod            = "shipping_method"
	EntityShippingMethodTranslation = "shipping_method_translation"
	EntityDeliveryTime              = "delivery_time"
	EntitySalesChannel              = "sales_channel"
)
