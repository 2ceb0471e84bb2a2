package requests

import "tender-server/internal/domain/company"

// CreateCompanyRequest registers the caller's company profile.
type CreateCompanyRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=4000"`
	Industry    string `json:"industry" validate:"max=255"`
	Website     string `json:"website" validate:"omitempty,url"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"max=64"`
	Address     string `json:"address" validate:"max=255"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url"`
}

// ToDomain converts the request into a company.
func (r CreateCompanyRequest) ToDomain() *company.Company {
	return &company.Company{
		Name:        r.Name,
		Description: r.Description,
		Industry:    r.Industry,
		Website:     r.Website,
		Email:       r.Email,
		Phone:       r.Phone,
		Address:     r.Address,
		LogoURL:     r.LogoURL,
	}
}

// UpdateCompanyRequest patches a company profile. Omitted fields stay unchanged.
type UpdateCompanyRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
	Industry    *string `json:"industry" validate:"omitempty,max=255"`
	Website     *string `json:"website" validate:"omitempty,url"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=64"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url"`
}

// ToPatch converts the request into a company patch.
func (r UpdateCompanyRequest) ToPatch() company.Patch {
	return company.Patch{
		Name:        r.Name,
		Description: r.Description,
		Industry:    r.Industry,
		Website:     r.Website,
		Email:       r.Email,
		Phone:       r.Phone,
		Address:     r.Address,
		LogoURL:     r.LogoURL,
	}
}
