package wizard

// ContactFields is what the first step captures.
type ContactFields struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone" validate:"required,min=7"`
}

// LocationFields is what the second step captures.
type LocationFields struct {
	Country string `json:"country" validate:"required"`
	City    string `json:"city"`
	Company string `json:"company"`
}

// Fields aggregates everything the wizard has gathered so far.
type Fields struct {
	Contact  ContactFields  `json:"contact"`
	Location LocationFields `json:"location"`
}

// State is the wizard as seen by the storefront.
type State struct {
	Step   Step   `json:"step"`
	Fields Fields `json:"fields"`
}
