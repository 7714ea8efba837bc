package dto

type ConsumerRequest struct {
	Name  string  `json:"name"  validate:"required,min=2,max=150"`
	CPF   *string `json:"cpf"   validate:"omitempty,min=11,max=14"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone" validate:"omitempty,max=30"`
}

type ConsumerResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	CPF   *string `json:"cpf"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}
