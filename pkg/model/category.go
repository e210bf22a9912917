package model

type Category struct {
	Type        ConsultantType `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Duration    int            `json:"duration,omitempty"`
}
