package domain

type User struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	PhoneNo       string   `json:"phone_no"`
	BookedFlights []string `json:"booked_flights"`
}

type UserPayload struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	PhoneNo string `json:"phone_no" validate:"required,e164"`
}

func (p UserPayload) Validate() error {
	return validateStruct(p)
}

// UpdateUserPayload only allows contact details to change.
type UpdateUserPayload struct {
	Email   string `json:"email" validate:"required,email"`
	PhoneNo string `json:"phone_no" validate:"required,e164"`
}

func (p UpdateUserPayload) Validate() error {
	return validateStruct(p)
}
