package schema

// Field names of the status document.
const (
	FieldRulesServiceApproved = "rules_service_approved"
	FieldUserApproved         = "user_approved"
)

var (
	sexValues       = []string{"male", "female", ""}
	raceValues      = []string{"American Indian or Alaskan Native", "Asian", "Black or African American", "Native Hawaiian or Other Pacific Islander", "White", ""}
	ethnicityValues = []string{"Hispanic or Latino", "Not Hispanic or Latino", ""}
	languageValues  = []string{"en", "es", ""}
)

// money is a non-negative amount or null.
func money() Node {
	return Nullable(Number().Min(0))
}

func moneyObject(fields ...string) *ObjectNode {
	props := make([]Property, len(fields))
	for i, f := range fields {
		props[i] = Prop(f, money())
	}
	return Object(props...).Closed()
}

func address() *ObjectNode {
	return Object(
		Prop("street1", String()),
		Prop("street2", String()),
		Prop("city", String()),
		Prop("state", String()),
		Prop("zipcode", String()),
	)
}

func householdMember() *ObjectNode {
	return Object(
		Prop("first_name", String()),
		Prop("middle_name", String()),
		Prop("last_name", String()),
		Prop("dob", String()),
		Prop("sex", Nullable(Enum(sexValues...))),
		Prop("ssn", Nullable(Pattern(`^\d{9}$`))),
		Prop("race", Nullable(Enum(raceValues...))),
		Prop("ethnicity", Nullable(Enum(ethnicityValues...))),
		Prop("has_food_assistance", Boolean()),
		Prop("income", moneyObject(
			"self_employed",
			"unemployment",
			"cash_assistance",
			"disability",
			"social_security",
			"veterans_benefits",
			"alimony",
			"child_support",
			"other_sources",
		)),
		Prop("jobs", Array(Object(
			Prop("employer_name", String()),
			Prop("pay", money()),
			Prop("is_dsnap_agency", Boolean()),
		).Closed())),
	).Closed()
}

// RegistrationSchema builds the registration document tree around the given
// preferred_language node, which is the only field that differs between versions.
func RegistrationSchema(preferredLanguage Node) *ObjectNode {
	return Object(
		Prop("disaster_id", Number().Min(0)),
		Prop("preferred_language", preferredLanguage),
		Prop("money_on_hand", money()),
		Prop("phone", Nullable(Pattern(`^\d{10}$`))),
		Prop("email", String()),
		Prop("residential_address", address()),
		Prop("mailing_address", address()),
		Prop("county", String()),
		Prop("state_id", String()),
		Prop("has_inaccessible_liquid_resources", Boolean()),
		Prop("has_lost_or_inaccessible_income", Boolean()),
		Prop("purchased_or_plans_to_purchase_food", Boolean()),
		Prop("disaster_expenses", moneyObject(
			"food_loss",
			"home_or_business_repairs",
			"temporary_shelter_expenses",
			"evacuation_expenses",
			"other",
		)),
		Prop("household", Array(householdMember())),
		Prop("ebt_card_number", Nullable(Pattern(`^\d*$`))),
	).Require("disaster_id").Closed()
}

// StatusSchema is the approval document: exactly two booleans.
func StatusSchema() *ObjectNode {
	return Object(
		Prop(FieldRulesServiceApproved, Boolean()),
		Prop(FieldUserApproved, Boolean()),
	).Require(FieldRulesServiceApproved, FieldUserApproved).Closed()
}

// DefaultRegistry registers every shipped schema version.
//
//	1.0.0  preferred_language is free text
//	1.1.0  preferred_language is restricted to en/es or blank
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("1.0.0", RegistrationSchema(String()), StatusSchema())
	r.MustRegister("1.1.0", RegistrationSchema(Nullable(Enum(languageValues...))), StatusSchema())
	return r
}
