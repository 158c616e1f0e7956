package converter

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
)

// Line item types of the target system
const (
	lineItemTypeProduct = "product"
	lineItemTypeCredit  = "credit"
)

var orderRequiredFields = []string{
	"customer",
	"currency",
	"currencyFactor",
	"payment",
	"status",
}

var addressRequiredFields = []string{
	"firstname",
	"lastname",
	"zipcode",
	"city",
	"street",
	"salutation",
}

// Raw fields with no target equivalent, discarded without error
var orderLegacyFields = []string{
	"invoice_shipping_tax_rate",
	"transactionID",
	"comment",
	"customercomment",
	"internalcomment",
	"partnerID",
	"temporaryID",
	"referer",
	"cleareddate",
	"remote_addr",
	"deviceType",
	"is_proportional_calculation",
	"changed",
	"payment",
	"paymentID",
	"language",
}

// OrderConverter transforms raw legacy orders into target-shaped order
// records with nested addresses, line items, deliveries and transactions.
type OrderConverter struct {
	mapping   migration.MappingService
	logging   migration.LoggingService
	tax       *TaxCalculator
	media     migration.MediaFileService
	profile   string
	precision int32
}

// NewOrderConverter creates an order converter for one source profile
func NewOrderConverter(mapping migration.MappingService, logging migration.LoggingService, tax *TaxCalculator, profile string) *OrderConverter {
	return &OrderConverter{
		mapping:   mapping,
		logging:   logging,
		tax:       tax,
		profile:   profile,
		precision: 2,
	}
}

// SetMediaFileService enables staging of order document assets for the
// download step. Without it, document references are dropped.
func (c *OrderConverter) SetMediaFileService(media migration.MediaFileService) {
	c.media = media
}

// Supports reports whether this converter handles the entity type and profile
func (c *OrderConverter) Supports(entityType, profileName string) bool {
	return entityType == migration.EntityOrder && profileName == c.profile
}

// WriteMapping flushes minted identifiers and any media staged alongside them
func (c *OrderConverter) WriteMapping(ctx context.Context) error {
	if err := c.mapping.WriteMapping(ctx); err != nil {
		return err
	}
	if c.media != nil {
		return c.media.Flush(ctx)
	}
	return nil
}

// orderConversion holds the per-record scope of one Convert call
type orderConversion struct {
	*OrderConverter
	ctx          context.Context
	runID        uuid.UUID
	connectionID uuid.UUID
	oldID        string
	newID        uuid.UUID
	mainLocale   string
	// original is the caller's untouched payload, returned on rejection
	original map[string]any
}

// Convert transforms one raw order record. A missing owning customer is
// reported as AssociationRequiredMissingError; every other unresolvable
// condition degrades to a rejection with a logged diagnostic.
func (c *OrderConverter) Convert(ctx context.Context, raw map[string]any, migrationCtx *migration.MigrationContext) (*ConvertResult, error) {
	conv := &orderConversion{
		OrderConverter: c,
		ctx:            ctx,
		runID:          migrationCtx.RunID,
		connectionID:   migrationCtx.ConnectionID(),
		oldID:          stringValue(raw, "id"),
		original:       raw,
	}
	// conversion consumes a copy; the staged payload survives any outcome
	return conv.convert(clonePayload(raw))
}

func (c *orderConversion) convert(data map[string]any) (*ConvertResult, error) {
	fields := checkForEmptyRequiredFields(data, orderRequiredFields)
	if billing, ok := mapValue(data, "billingaddress"); !ok || stringValue(billing, "id") == "" {
		fields = append(fields, "billingaddress")
	}
	if payment, ok := mapValue(data, "payment"); ok && stringValue(payment, "name") == "" {
		fields = append(fields, "paymentMethod")
	}
	if len(fields) > 0 {
		c.logEmptyFields("Order", fields, nil)
		return rejected(c.original), nil
	}

	c.mainLocale = stringValue(data, "_locale")
	delete(data, "_locale")

	newID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityOrder, c.oldID)
	if err != nil {
		return nil, err
	}
	c.newID = newID
	delete(data, "id")

	converted := map[string]any{"id": newID.String()}
	convertValue(converted, "orderNumber", data, "ordernumber", TypeString)

	orderCustomer, err := c.getOrderCustomer(data)
	if err != nil {
		return nil, err
	}
	if orderCustomer == nil {
		return rejected(c.original), nil
	}
	converted["orderCustomer"] = orderCustomer
	delete(data, "userID")
	delete(data, "customer")

	convertValue(converted, "currencyFactor", data, "currencyFactor", TypeFloat)

	currencyID, err := c.mapping.GetCurrencyUUID(c.ctx, c.connectionID, stringValue(data, "currency"))
	if err != nil {
		return nil, err
	}
	if currencyID == nil {
		c.logging.AddWarning(c.runID, migration.LogCodeEmptyNecessaryDataFields,
			"Empty necessary data fields",
			"Order-Entity could not be converted cause of empty necessary field: currency.",
			map[string]any{"id": c.oldID}, 1)
		return rejected(c.original), nil
	}
	converted["currencyId"] = currencyID.String()

	convertValue(converted, "orderDateTime", data, "ordertime", TypeDateTime)

	stateID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.MappingOrderState, stringValue(data, "status"))
	if err != nil {
		return nil, err
	}
	if stateID == nil {
		c.logging.AddWarning(c.runID, migration.LogCodeUnknownOrderState,
			"Cannot find order state",
			"Order-Entity could not be converted cause of unknown order state",
			map[string]any{"id": c.oldID, "orderState": data["status"]}, 1)
		return rejected(c.original), nil
	}
	converted["stateId"] = stateID.String()
	delete(data, "status")
	delete(data, "orderstatus")

	shippingAmount, _ := toFloat(data["invoice_shipping"])
	// Shipping carries no tax rules in the base case
	shippingCosts := CalculatedPrice{
		UnitPrice:       shippingAmount,
		TotalPrice:      shippingAmount,
		CalculatedTaxes: []CalculatedTax{},
		TaxRules:        []TaxRule{},
		Quantity:        1,
	}

	if details, ok := sliceValue(data, "details"); ok {
		taxRules := distinctTaxRules(details, "tax_rate")
		taxStatus := taxStatusOf(data)

		lineItems, err := c.getLineItems(details, taxRules, taxStatus)
		if err != nil {
			return nil, err
		}
		converted["lineItems"] = lineItems

		netAmount, _ := toFloat(data["invoice_amount_net"])
		totalAmount, _ := toFloat(data["invoice_amount"])
		converted["price"] = CartPrice{
			NetPrice:        netAmount,
			TotalPrice:      totalAmount,
			PositionPrice:   totalAmount - shippingAmount,
			CalculatedTaxes: []CalculatedTax{},
			TaxRules:        taxRules,
			TaxStatus:       taxStatus,
		}
		converted["shippingCosts"] = shippingCosts
	}
	for _, key := range []string{"net", "taxfree", "invoice_amount_net", "invoice_amount", "invoice_shipping_net", "invoice_shipping", "details", "currency"} {
		delete(data, key)
	}

	deliveries, err := c.getDeliveries(data, converted, shippingCosts)
	if err != nil {
		return nil, err
	}
	converted["deliveries"] = deliveries
	for _, key := range []string{"trackingcode", "shippingMethod", "dispatchID", "shippingaddress"} {
		delete(data, key)
	}

	if err := c.getTransactions(data, converted); err != nil {
		return nil, err
	}
	delete(data, "cleared")
	delete(data, "paymentstatus")

	billingRaw, _ := mapValue(data, "billingaddress")
	billingAddress, err := c.getAddress(billingRaw)
	if err != nil {
		return nil, err
	}
	if billingAddress == nil {
		c.logEmptyFields("Order", []string{"billingaddress"}, nil)
		return rejected(c.original), nil
	}
	converted["billingAddressId"] = billingAddress["id"]
	converted["addresses"] = []map[string]any{billingAddress}
	delete(data, "billingaddress")

	if err := c.getSalesChannel(data, converted); err != nil {
		return nil, err
	}

	if attributes, ok := mapValue(data, "attributes"); ok {
		converted["customFields"] = customFieldsOf(migration.EntityOrder, attributes)
	}
	delete(data, "attributes")

	if documents, ok := sliceValue(data, "documents"); ok {
		c.stageDocuments(documents)
	}
	delete(data, "documents")

	for _, key := range orderLegacyFields {
		delete(data, key)
	}

	return accepted(converted, data, c.newID), nil
}

// stageDocuments registers generated order documents (invoices, delivery
// notes) as media assets to download after the run
func (c *orderConversion) stageDocuments(documents []map[string]any) {
	if c.media == nil {
		return
	}
	for _, document := range documents {
		hash := stringValue(document, "hash")
		if hash == "" {
			continue
		}
		size, _ := toInt(document["size"])
		c.media.Register(c.runID, c.newID, "documents/"+hash, int64(size))
	}
}

// getOrderCustomer resolves the owning customer (hard dependency) and the
// embedded order customer snapshot. Returns nil without error when a soft
// condition (unknown salutation) rejects the record.
func (c *orderConversion) getOrderCustomer(data map[string]any) (map[string]any, error) {
	customer, _ := mapValue(data, "customer")

	customerID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.EntityCustomer, stringValue(customer, "email"))
	if err != nil {
		return nil, err
	}
	if customerID == nil {
		customerID, err = c.mapping.GetUUID(c.ctx, c.connectionID, migration.EntityCustomer, stringValue(data, "userID"))
		if err != nil {
			return nil, err
		}
	}
	if customerID == nil {
		return nil, NewAssociationRequiredMissingError(migration.EntityOrder, migration.EntityCustomer, c.oldID)
	}

	salutationID, err := c.getSalutation(stringValue(customer, "salutation"))
	if err != nil {
		return nil, err
	}
	if salutationID == nil {
		return nil, nil
	}

	orderCustomer := map[string]any{
		"customerId":   customerID.String(),
		"salutationId": salutationID.String(),
	}
	convertValue(orderCustomer, "email", customer, "email", TypeString)
	convertValue(orderCustomer, "firstName", customer, "firstname", TypeString)
	convertValue(orderCustomer, "lastName", customer, "lastname", TypeString)
	convertValue(orderCustomer, "customerNumber", customer, "customernumber", TypeString)

	return orderCustomer, nil
}

func (c *orderConversion) getSalutation(salutation string) (*uuid.UUID, error) {
	salutationID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.MappingSalutation, salutation)
	if err != nil {
		return nil, err
	}
	if salutationID == nil {
		c.logging.AddWarning(c.runID, migration.LogCodeUnknownCustomerSalutation,
			"Cannot find customer salutation for order",
			"Order-Entity could not be converted cause of unknown customer salutation",
			map[string]any{"id": c.oldID, "entity": migration.EntityOrder, "salutation": salutation}, 1)
	}
	return salutationID, nil
}

func (c *orderConversion) getLineItems(details []map[string]any, taxRules []TaxRule, taxStatus TaxStatus) ([]map[string]any, error) {
	lineItems := make([]map[string]any, 0, len(details))

	for _, original := range details {
		modus, _ := toInt(original["modus"])
		articleID, _ := toInt(original["articleID"])
		isProduct := modus == 0 && articleID != 0

		itemID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityOrderLineItem, stringValue(original, "id"))
		if err != nil {
			return nil, err
		}
		lineItem := map[string]any{"id": itemID.String()}

		if isProduct {
			orderNumber := stringValue(original, "articleordernumber")
			if orderNumber != "" {
				productID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.EntityProduct, orderNumber)
				if err != nil {
					return nil, err
				}
				if productID != nil {
					lineItem["identifier"] = productID.String()
				}
			}
			if _, ok := lineItem["identifier"]; !ok {
				lineItem["identifier"] = fmt.Sprintf("unmapped-product-%s-%d", orderNumber, articleID)
			}
			lineItem["type"] = lineItemTypeProduct
		} else {
			convertValue(lineItem, "identifier", original, "articleordernumber", TypeString)
			lineItem["type"] = lineItemTypeCredit
		}

		convertValue(lineItem, "quantity", original, "quantity", TypeInteger)
		convertValue(lineItem, "label", original, "name", TypeString)

		quantity, _ := lineItem["quantity"].(int)
		unitPrice, _ := toFloat(original["price"])
		totalPrice := float64(quantity) * unitPrice

		var calculatedTaxes []CalculatedTax
		switch taxStatus {
		case TaxStatusNet:
			calculatedTaxes = c.tax.CalculateNetTaxes(totalPrice, c.precision, taxRules)
		case TaxStatusGross:
			calculatedTaxes = c.tax.CalculateGrossTaxes(totalPrice, c.precision, taxRules)
		}

		if calculatedTaxes != nil {
			lineItem["price"] = CalculatedPrice{
				UnitPrice:       unitPrice,
				TotalPrice:      totalPrice,
				CalculatedTaxes: calculatedTaxes,
				TaxRules:        taxRules,
				Quantity:        quantity,
			}
			lineItem["priceDefinition"] = QuantityPriceDefinition{
				Price:    unitPrice,
				TaxRules: taxRules,
				Quantity: quantity,
			}
		}

		if identifier, ok := lineItem["identifier"].(string); !ok || identifier == "" {
			c.logging.AddInfo(c.runID, migration.LogCodeEmptyLineItemIdentifier,
				"Line item could not be converted",
				"Order-Line-Item-Entity could not be converted cause of empty identifier",
				map[string]any{"orderId": c.oldID, "lineItemId": original["id"]}, 1)
			continue
		}

		lineItems = append(lineItems, lineItem)
	}

	return lineItems, nil
}

func (c *orderConversion) getDeliveries(data map[string]any, converted map[string]any, shippingCosts CalculatedPrice) ([]map[string]any, error) {
	deliveryID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityOrderDelivery, c.oldID)
	if err != nil {
		return nil, err
	}
	delivery := map[string]any{
		"id":                   deliveryID.String(),
		"stateId":              converted["stateId"],
		"shippingDateEarliest": converted["orderDateTime"],
		"shippingDateLatest":   converted["orderDateTime"],
	}

	shippingMethodRaw, ok := mapValue(data, "shippingMethod")
	if !ok || stringValue(shippingMethodRaw, "id") == "" {
		return []map[string]any{}, nil
	}
	shippingMethod, err := c.getShippingMethod(shippingMethodRaw)
	if err != nil {
		return nil, err
	}
	delivery["shippingMethod"] = shippingMethod

	if shippingAddressRaw, ok := mapValue(data, "shippingaddress"); ok && stringValue(shippingAddressRaw, "id") != "" {
		shippingAddress, err := c.getAddress(shippingAddressRaw)
		if err != nil {
			return nil, err
		}
		if shippingAddress != nil {
			delivery["shippingOrderAddress"] = shippingAddress
		}
	}
	if _, ok := delivery["shippingOrderAddress"]; !ok {
		billingRaw, _ := mapValue(data, "billingaddress")
		billingAddress, err := c.getAddress(billingRaw)
		if err != nil {
			return nil, err
		}
		if billingAddress != nil {
			delivery["shippingOrderAddress"] = billingAddress
		}
	}

	if trackingCode := stringValue(data, "trackingcode"); trackingCode != "" {
		delivery["trackingCode"] = trackingCode
	}

	if lineItems, ok := converted["lineItems"].([]map[string]any); ok {
		positions := make([]map[string]any, 0, len(lineItems))
		for _, lineItem := range lineItems {
			itemID, _ := lineItem["id"].(string)
			positionID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityOrderDeliveryPosition, itemID)
			if err != nil {
				return nil, err
			}
			positions = append(positions, map[string]any{
				"id":              positionID.String(),
				"orderLineItemId": itemID,
				"price":           lineItem["price"],
			})
		}
		delivery["positions"] = positions
	}
	delivery["shippingCosts"] = shippingCosts

	return []map[string]any{delivery}, nil
}

func (c *orderConversion) getShippingMethod(original map[string]any) (map[string]any, error) {
	methodID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityShippingMethod, stringValue(original, "id"))
	if err != nil {
		return nil, err
	}
	shippingMethod := map[string]any{"id": methodID.String()}

	if err := c.addTranslation(shippingMethod, migration.EntityShippingMethodTranslation, "shippingMethodId", original,
		map[string]string{"name": "name", "description": "description", "comment": "comment"}); err != nil {
		return nil, err
	}

	convertValue(shippingMethod, "bindShippingfree", original, "bind_shippingfree", TypeBoolean)
	convertValue(shippingMethod, "active", original, "active", TypeBoolean)
	convertValue(shippingMethod, "shippingFree", original, "shippingfree", TypeFloat)
	convertValue(shippingMethod, "name", original, "name", TypeString)
	convertValue(shippingMethod, "description", original, "description", TypeString)
	convertValue(shippingMethod, "comment", original, "comment", TypeString)

	deliveryTimeID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.EntityDeliveryTime, "default_delivery_time")
	if err != nil {
		return nil, err
	}
	if deliveryTimeID != nil {
		shippingMethod["deliveryTimeId"] = deliveryTimeID.String()
	} else {
		c.logEmptyFields("Order", []string{"delivery_time"}, nil)
	}

	availabilityRuleID, err := c.mapping.GetDefaultAvailabilityRule(c.ctx, c.connectionID)
	if err != nil {
		return nil, err
	}
	if availabilityRuleID != nil {
		shippingMethod["availabilityRuleId"] = availabilityRuleID.String()
	} else {
		c.logEmptyFields("Order", []string{"availability_rule_id"}, nil)
	}

	return shippingMethod, nil
}

func (c *orderConversion) getTransactions(data map[string]any, converted map[string]any) error {
	converted["transactions"] = []map[string]any{}
	if _, ok := converted["lineItems"]; !ok {
		return nil
	}
	cartPrice, ok := converted["price"].(CartPrice)
	if !ok {
		return nil
	}

	stateID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.MappingTransactionState, stringValue(data, "cleared"))
	if err != nil {
		return err
	}
	if stateID == nil {
		c.logging.AddWarning(c.runID, migration.LogCodeUnknownTransactionState,
			"Cannot find transaction state",
			"Transaction-Order-Entity could not be converted cause of unknown transaction state",
			map[string]any{"id": c.oldID, "transactionState": data["cleared"]}, 1)
		return nil
	}

	transactionID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityOrderTransaction, c.oldID)
	if err != nil {
		return err
	}

	paymentMethodID, err := c.getPaymentMethod(data)
	if err != nil {
		return err
	}
	if paymentMethodID == nil {
		return nil
	}

	converted["transactions"] = []map[string]any{
		{
			"id":              transactionID.String(),
			"paymentMethodId": paymentMethodID.String(),
			"stateId":         stateID.String(),
			"amount": CalculatedPrice{
				UnitPrice:       cartPrice.TotalPrice,
				TotalPrice:      cartPrice.TotalPrice,
				CalculatedTaxes: cartPrice.CalculatedTaxes,
				TaxRules:        cartPrice.TaxRules,
				Quantity:        1,
			},
		},
	}
	return nil
}

func (c *orderConversion) getPaymentMethod(data map[string]any) (*uuid.UUID, error) {
	payment, _ := mapValue(data, "payment")
	paymentMethodID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.MappingPaymentMethod, stringValue(payment, "id"))
	if err != nil {
		return nil, err
	}
	if paymentMethodID == nil {
		c.logging.AddInfo(c.runID, migration.LogCodeUnknownPaymentMethod,
			"Cannot find payment method",
			"Order-Transaction-Entity could not be converted cause of unknown payment method",
			map[string]any{"id": c.oldID, "entity": migration.EntityOrder, "paymentMethod": payment["id"]}, 1)
	}
	return paymentMethodID, nil
}

// getAddress builds an order address. Returns nil without error when required
// address fields are missing (soft rejection, logged at info level).
func (c *orderConversion) getAddress(original map[string]any) (map[string]any, error) {
	if original == nil {
		return nil, nil
	}
	fields := checkForEmptyRequiredFields(original, addressRequiredFields)
	if len(fields) > 0 {
		c.logging.AddInfo(c.runID, migration.LogCodeEmptyNecessaryDataFields,
			"Empty necessary data fields for address",
			fmt.Sprintf("Address-Entity could not be converted cause of empty necessary field(s): %s.", strings.Join(fields, ", ")),
			map[string]any{"id": c.oldID, "uuid": c.newID.String(), "entity": "Address", "fields": fields},
			len(fields))
		return nil, nil
	}

	addressID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityOrderAddress, stringValue(original, "id"))
	if err != nil {
		return nil, err
	}
	address := map[string]any{"id": addressID.String()}

	countryID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.EntityCountry, stringValue(original, "countryID"))
	if err != nil {
		return nil, err
	}
	if countryID != nil {
		address["countryId"] = countryID.String()
	} else if countryRaw, ok := mapValue(original, "country"); ok {
		country, err := c.getCountry(countryRaw)
		if err != nil {
			return nil, err
		}
		address["country"] = country
	}

	if stateOldID := stringValue(original, "stateID"); stateOldID != "" {
		stateID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.EntityCountryState, stateOldID)
		if err != nil {
			return nil, err
		}
		if stateID != nil {
			address["countryStateId"] = stateID.String()
			stateRaw, hasState := mapValue(original, "state")
			newCountryID := countryIDOf(address)
			if hasState && newCountryID != "" {
				state, err := c.getCountryState(stateRaw, newCountryID)
				if err != nil {
					return nil, err
				}
				address["countryState"] = state
			}
		}
	}

	salutationID, err := c.getSalutation(stringValue(original, "salutation"))
	if err != nil {
		return nil, err
	}
	if salutationID == nil {
		return nil, nil
	}
	address["salutationId"] = salutationID.String()

	convertValue(address, "firstName", original, "firstname", TypeString)
	convertValue(address, "lastName", original, "lastname", TypeString)
	convertValue(address, "zipcode", original, "zipcode", TypeString)
	convertValue(address, "city", original, "city", TypeString)
	convertValue(address, "company", original, "company", TypeString)
	convertValue(address, "street", original, "street", TypeString)
	convertValue(address, "department", original, "department", TypeString)
	convertValue(address, "title", original, "title", TypeString)
	convertValue(address, "vatId", original, "ustid", TypeString)
	convertValue(address, "phoneNumber", original, "phone", TypeString)
	convertValue(address, "additionalAddressLine1", original, "additional_address_line1", TypeString)
	convertValue(address, "additionalAddressLine2", original, "additional_address_line2", TypeString)

	return address, nil
}

// getCountry builds an inline country sub-entity when the source country has
// no mapping in the target system (denormalized copy, translated when the
// source locale differs from the target default).
func (c *orderConversion) getCountry(original map[string]any) (map[string]any, error) {
	country := map[string]any{}

	iso2 := stringValue(original, "countryiso")
	iso3 := stringValue(original, "iso3")
	if iso2 != "" && iso3 != "" {
		countryID, err := c.mapping.GetCountryUUID(c.ctx, c.connectionID, stringValue(original, "id"), iso2, iso3)
		if err != nil {
			return nil, err
		}
		if countryID != nil {
			country["id"] = countryID.String()
		}
	}
	if _, ok := country["id"]; !ok {
		countryID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityCountry, stringValue(original, "id"))
		if err != nil {
			return nil, err
		}
		country["id"] = countryID.String()
	}

	if err := c.addTranslation(country, migration.EntityCountryTranslation, "countryId", original,
		map[string]string{"name": "countryname"}); err != nil {
		return nil, err
	}

	convertValue(country, "iso", original, "countryiso", TypeString)
	convertValue(country, "position", original, "position", TypeInteger)
	convertValue(country, "taxFree", original, "taxfree", TypeBoolean)
	convertValue(country, "taxfreeForVatId", original, "taxfree_ustid", TypeBoolean)
	convertValue(country, "taxfreeVatidChecked", original, "taxfree_ustid_checked", TypeBoolean)
	convertValue(country, "active", original, "active", TypeBoolean)
	convertValue(country, "iso3", original, "iso3", TypeString)
	convertValue(country, "displayStateInRegistration", original, "display_state_in_registration", TypeBoolean)
	convertValue(country, "forceStateInRegistration", original, "force_state_in_registration", TypeBoolean)
	convertValue(country, "name", original, "countryname", TypeString)

	return country, nil
}

func (c *orderConversion) getCountryState(original map[string]any, newCountryID string) (map[string]any, error) {
	stateID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, migration.EntityCountryState, stringValue(original, "id"))
	if err != nil {
		return nil, err
	}
	state := map[string]any{
		"id":        stateID.String(),
		"countryId": newCountryID,
	}

	if err := c.addTranslation(state, migration.EntityCountryStateTranslation, "countryStateId", original,
		map[string]string{"name": "name"}); err != nil {
		return nil, err
	}

	convertValue(state, "shortCode", original, "shortcode", TypeString)
	convertValue(state, "position", original, "position", TypeInteger)
	convertValue(state, "active", original, "active", TypeBoolean)
	convertValue(state, "name", original, "name", TypeString)

	return state, nil
}

// getSalesChannel assigns the target sales channel, falling back to the
// well-known system default when the source subshop has no mapping
func (c *orderConversion) getSalesChannel(data map[string]any, converted map[string]any) error {
	defaultID, err := c.mapping.GetOrCreateMapping(c.ctx, c.connectionID, migration.EntitySalesChannel,
		"default", nil, &migration.DefaultSalesChannelID)
	if err != nil {
		return err
	}
	converted["salesChannelId"] = defaultID.String()

	if subshopID := stringValue(data, "subshopID"); subshopID != "" {
		salesChannelID, err := c.mapping.GetUUID(c.ctx, c.connectionID, migration.EntitySalesChannel, subshopID)
		if err != nil {
			return err
		}
		if salesChannelID != nil {
			converted["salesChannelId"] = salesChannelID.String()
			delete(data, "subshopID")
		}
	}
	return nil
}

// addTranslation emits a translation sub-record keyed by the target language
// when the source locale differs from the target default locale
func (c *orderConversion) addTranslation(entity map[string]any, translationEntityType, parentKey string, original map[string]any, fieldMap map[string]string) error {
	defaultLocale, _, err := c.mapping.GetDefaultLanguage(c.ctx)
	if err != nil {
		return err
	}
	if defaultLocale == c.mainLocale || c.mainLocale == "" {
		return nil
	}

	translation := map[string]any{parentKey: entity["id"]}
	for newKey, oldKey := range fieldMap {
		if value, ok := original[oldKey]; ok && value != nil {
			translation[newKey] = toString(value)
		}
	}

	translationID, err := c.mapping.CreateNewUUID(c.ctx, c.connectionID, translationEntityType,
		stringValue(original, "id")+":"+c.mainLocale)
	if err != nil {
		return err
	}
	translation["id"] = translationID.String()

	languageID, err := c.mapping.GetLanguageUUID(c.ctx, c.connectionID, c.mainLocale)
	if err != nil {
		return err
	}
	if languageID == nil {
		return nil
	}
	translation["languageId"] = languageID.String()

	translations, _ := entity["translations"].(map[string]any)
	if translations == nil {
		translations = map[string]any{}
	}
	translations[languageID.String()] = translation
	entity["translations"] = translations

	return nil
}

func (c *orderConversion) logEmptyFields(entity string, fields []string, extra map[string]any) {
	params := map[string]any{
		"id":     c.oldID,
		"entity": entity,
		"fields": fields,
	}
	for k, v := range extra {
		params[k] = v
	}
	c.logging.AddWarning(c.runID, migration.LogCodeEmptyNecessaryDataFields,
		"Empty necessary data",
		fmt.Sprintf("%s-Entity could not be converted cause of empty necessary field(s): %s.", entity, strings.Join(fields, ", ")),
		params, len(fields))
}

// countryIDOf reads the resolved country identifier of an address, whether it
// was mapped directly or embedded inline
func countryIDOf(address map[string]any) string {
	if id, ok := address["countryId"].(string); ok {
		return id
	}
	if country, ok := address["country"].(map[string]any); ok {
		if id, ok := country["id"].(string); ok {
			return id
		}
	}
	return ""
}

// taxStatusOf derives the tax status from the legacy net/taxfree flags
func taxStatusOf(data map[string]any) TaxStatus {
	status := TaxStatusGross
	if net, ok := data["net"]; ok && toBool(net) {
		status = TaxStatusNet
	}
	if taxFree, ok := data["taxfree"]; ok && toBool(taxFree) {
		status = TaxStatusFree
	}
	return status
}

// customFieldsOf prefixes legacy free-form attributes for the target's custom
// field storage, dropping the technical keys
func customFieldsOf(entityType string, attributes map[string]any) map[string]any {
	result := map[string]any{}
	for key, value := range attributes {
		if key == "id" || key == "orderID" || key == "customerID" {
			continue
		}
		result[entityType+"_"+key] = value
	}
	return result
}
