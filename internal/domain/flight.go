package domain

import "time"

type Flight struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	ImageURL               string     `json:"image_url"`
	Description            string     `json:"description"`
	PricePerPerson         uint64     `json:"price_per_person"`
	DepartureFrom          string     `json:"departure_from"`
	ArriveTo               string     `json:"arrive_to"`
	DepartureTime          time.Time  `json:"departure_time"`
	Seats                  uint64     `json:"seats"`
	IsReserved             bool       `json:"is_reserved"`
	IsAvailable            bool       `json:"is_available"`
	CurrentReservedTo      *string    `json:"current_reserved_to,omitempty"`
	CurrentReservationEnds *time.Time `json:"current_reservation_ends,omitempty"`
	Creator                string     `json:"creator"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// FlightPayload holds the operator-editable part of a flight.
type FlightPayload struct {
	Name           string    `json:"name" validate:"required,max=200"`
	ImageURL       string    `json:"image_url" validate:"omitempty,url"`
	Description    string    `json:"description" validate:"max=2000"`
	PricePerPerson uint64    `json:"price_per_person"`
	DepartureFrom  string    `json:"departure_from" validate:"required"`
	ArriveTo       string    `json:"arrive_to" validate:"required"`
	DepartureTime  time.Time `json:"departure_time"`
	Seats          uint64    `json:"seats" validate:"gt=0"`
}

func (p FlightPayload) Validate() error {
	return validateStruct(p)
}

// Apply copies the payload onto f, leaving identity and reservation state untouched.
func (p FlightPayload) Apply(f *Flight) {
	f.Name = p.Name
	f.ImageURL = p.ImageURL
	f.Description = p.Description
	f.PricePerPerson = p.PricePerPerson
	f.DepartureFrom = p.DepartureFrom
	f.ArriveTo = p.ArriveTo
	f.DepartureTime = p.DepartureTime
	f.Seats = p.Seats
}

// Hold marks the flight as reserved to holder until ends.
func (f *Flight) Hold(holder string, ends time.Time) {
	f.IsReserved = true
	f.CurrentReservedTo = &holder
	f.CurrentReservationEnds = &ends
}

// Release returns the flight to the available state.
func (f *Flight) Release() {
	f.IsReserved = false
	f.CurrentReservedTo = nil
	f.CurrentReservationEnds = nil
}

// Consistent reports whether the reservation flag agrees with the holder and
// expiry fields.
func (f *Flight) Consistent() bool {
	both := f.CurrentReservedTo != nil && f.CurrentReservationEnds != nil
	return f.IsReserved == both
}
