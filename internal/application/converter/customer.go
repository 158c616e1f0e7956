package converter

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopmigrate/backend/internal/domain/migration"
)

var customerRequiredFields = []string{
	"email",
	"firstname",
	"lastname",
	"salutation",
	"defaultpayment",
}

var customerLegacyFields = []string{
	"sessionID",
	"pricegroupID",
	"login_token",
	"lockeduntil",
	"failedlogins",
	"internalcomment",
	"referer",
	"validation",
	"affiliate",
	"paymentpreset",
	"subshopID",
	"language",
	"lastlogin",
	"encoder",
}

// CustomerConverter transforms raw legacy customers into target-shaped
// customer records. Customers are mapped under their email address and
// additionally under their numeric source identifier so later order
// conversion can resolve the owner either way.
type CustomerConverter struct {
	mapping migration.MappingService
	logging migration.LoggingService
	profile string
}

// NewCustomerConverter creates a customer converter for one source profile
func NewCustomerConverter(mapping migration.MappingService, logging migration.LoggingService, profile string) *CustomerConverter {
	return &CustomerConverter{
		mapping: mapping,
		logging: logging,
		profile: profile,
	}
}

// Supports reports whether this converter handles the entity type and profile
func (c *CustomerConverter) Supports(entityType, profileName string) bool {
	return entityType == migration.EntityCustomer && profileName == c.profile
}

// WriteMapping delegates to the mapping service flush
func (c *CustomerConverter) WriteMapping(ctx context.Context) error {
	return c.mapping.WriteMapping(ctx)
}

// Convert transforms one raw customer record. The payload is consumed from a
// copy so the staged original survives a mid-conversion rejection.
func (c *CustomerConverter) Convert(ctx context.Context, raw map[string]any, migrationCtx *migration.MigrationContext) (*ConvertResult, error) {
	runID := migrationCtx.RunID
	connectionID := migrationCtx.ConnectionID()
	oldID := stringValue(raw, "id")
	data := clonePayload(raw)

	fields := checkForEmptyRequiredFields(data, customerRequiredFields)
	if payment, ok := mapValue(data, "defaultpayment"); ok && stringValue(payment, "id") == "" {
		fields = append(fields, "defaultpayment")
	}
	if len(fields) > 0 {
		c.logging.AddWarning(runID, migration.LogCodeEmptyNecessaryDataFields,
			"Empty necessary data",
			fmt.Sprintf("Customer-Entity could not be converted cause of empty necessary field(s): %s.", strings.Join(fields, ", ")),
			map[string]any{"id": oldID, "entity": "Customer", "fields": fields},
			len(fields))
		return rejected(raw), nil
	}

	email := stringValue(data, "email")

	// Primary mapping under the email, secondary under the source id
	newID, err := c.mapping.CreateNewUUID(ctx, connectionID, migration.EntityCustomer, email)
	if err != nil {
		return nil, err
	}
	if _, err := c.mapping.GetOrCreateMapping(ctx, connectionID, migration.EntityCustomer, oldID, nil, &newID); err != nil {
		return nil, err
	}
	delete(data, "id")

	converted := map[string]any{"id": newID.String()}

	salutationID, err := c.getSalutation(ctx, runID, connectionID, oldID, stringValue(data, "salutation"))
	if err != nil {
		return nil, err
	}
	if salutationID == nil {
		return rejected(raw), nil
	}
	converted["salutationId"] = salutationID.String()
	delete(data, "salutation")

	payment, _ := mapValue(data, "defaultpayment")
	paymentMethodID, err := c.mapping.GetUUID(ctx, connectionID, migration.MappingPaymentMethod, stringValue(payment, "id"))
	if err != nil {
		return nil, err
	}
	if paymentMethodID == nil {
		c.logging.AddWarning(runID, migration.LogCodeUnknownPaymentMethod,
			"Cannot find payment method",
			"Customer-Entity could not be converted cause of unknown payment method",
			map[string]any{"id": oldID, "entity": migration.EntityCustomer, "paymentMethod": payment["id"]}, 1)
		return rejected(raw), nil
	}
	converted["defaultPaymentMethodId"] = paymentMethodID.String()
	delete(data, "defaultpayment")

	convertValue(converted, "email", data, "email", TypeString)
	convertValue(converted, "firstName", data, "firstname", TypeString)
	convertValue(converted, "lastName", data, "lastname", TypeString)
	convertValue(converted, "customerNumber", data, "customernumber", TypeString)
	convertValue(converted, "active", data, "active", TypeBoolean)
	convertValue(converted, "guest", data, "accountmode", TypeBoolean)
	convertValue(converted, "title", data, "title", TypeString)
	convertValue(converted, "birthday", data, "birthday", TypeDateTime)
	convertValue(converted, "firstLogin", data, "firstlogin", TypeDateTime)
	convertValue(converted, "newsletter", data, "newsletter", TypeBoolean)

	if addresses, ok := sliceValue(data, "addresses"); ok {
		converted["addresses"] = c.getAddresses(ctx, runID, connectionID, oldID, newID, addresses)
	}
	delete(data, "addresses")

	if attributes, ok := mapValue(data, "attributes"); ok {
		converted["customFields"] = customFieldsOf(migration.EntityCustomer, attributes)
	}
	delete(data, "attributes")

	for _, key := range customerLegacyFields {
		delete(data, key)
	}

	return accepted(converted, data, newID), nil
}

func (c *CustomerConverter) getSalutation(ctx context.Context, runID uuid.UUID, connectionID uuid.UUID, oldID, salutation string) (*uuid.UUID, error) {
	salutationID, err := c.mapping.GetUUID(ctx, connectionID, migration.MappingSalutation, salutation)
	if err != nil {
		return nil, err
	}
	if salutationID == nil {
		c.logging.AddWarning(runID, migration.LogCodeUnknownCustomerSalutation,
			"Cannot find customer salutation",
			"Customer-Entity could not be converted cause of unknown customer salutation",
			map[string]any{"id": oldID, "entity": migration.EntityCustomer, "salutation": salutation}, 1)
	}
	return salutationID, nil
}

// getAddresses builds the embedded customer addresses. An address missing
// required fields is skipped with an info diagnostic; the customer itself
// survives.
func (c *CustomerConverter) getAddresses(ctx context.Context, runID uuid.UUID, connectionID uuid.UUID, oldID string, customerID uuid.UUID, originals []map[string]any) []map[string]any {
	addresses := make([]map[string]any, 0, len(originals))
	for _, original := range originals {
		fields := checkForEmptyRequiredFields(original, addressRequiredFields)
		if len(fields) > 0 {
			c.logging.AddInfo(runID, migration.LogCodeEmptyNecessaryDataFields,
				"Empty necessary data fields for address",
				fmt.Sprintf("Address-Entity could not be converted cause of empty necessary field(s): %s.", strings.Join(fields, ", ")),
				map[string]any{"id": oldID, "entity": "Address", "fields": fields},
				len(fields))
			continue
		}

		addressID, err := c.mapping.CreateNewUUID(ctx, connectionID, migration.EntityCustomerAddress, stringValue(original, "id"))
		if err != nil {
			continue
		}
		salutationID, err := c.getSalutation(ctx, runID, connectionID, oldID, stringValue(original, "salutation"))
		if err != nil || salutationID == nil {
			continue
		}

		address := map[string]any{
			"id":           addressID.String(),
			"customerId":   customerID.String(),
			"salutationId": salutationID.String(),
		}
		countryID, err := c.mapping.GetUUID(ctx, connectionID, migration.EntityCountry, stringValue(original, "countryID"))
		if err == nil && countryID != nil {
			address["countryId"] = countryID.String()
		}

		convertValue(address, "firstName", original, "firstname", TypeString)
		convertValue(address, "lastName", original, "lastname", TypeString)
		convertValue(address, "zipcode", original, "zipcode", TypeString)
		convertValue(address, "city", original, "city", TypeString)
		convertValue(address, "company", original, "company", TypeString)
		convertValue(address, "street", original, "street", TypeString)
		convertValue(address, "phoneNumber", original, "phone", TypeString)

		addresses = append(addresses, address)
	}
	return addresses
}
