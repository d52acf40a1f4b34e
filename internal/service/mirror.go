package service

import (
	"context"

	"github.com/nurpe/rental-contracts/internal/model"
)

// TenantField names a tenant identity field that is mirrored onto the client.
// The value is the client column name.
type TenantField string

const (
	FieldFullName               TenantField = "full_name"
	FieldEmail                  TenantField = "email"
	FieldPhone                  TenantField = "phone"
	FieldAddress                TenantField = "address"
	FieldIDDocumentNumber       TenantField = "id_document_number"
	FieldIDDocumentIssuer       TenantField = "id_document_issuer"
	FieldDrivingLicenseNumber   TenantField = "driving_license_number"
	FieldDrivingLicenseCategory TenantField = "driving_license_category"
	FieldCompanyName            TenantField = "company_name"
	FieldNIP                    TenantField = "nip"
)

func (f TenantField) valueOf(t model.Tenant) string {
	switch f {
	case FieldFullName:
		return t.FullName
	case FieldEmail:
		return t.Email
	case FieldPhone:
		return t.Phone
	case FieldAddress:
		return t.Address
	case FieldIDDocumentNumber:
		return t.IDDocumentNumber
	case FieldIDDocumentIssuer:
		return t.IDDocumentIssuer
	case FieldDrivingLicenseNumber:
		return t.DrivingLicenseNumber
	case FieldDrivingLicenseCategory:
		return t.DrivingLicenseCategory
	case FieldCompanyName:
		return t.CompanyName
	case FieldNIP:
		return t.NIP
	}
	return ""
}

// TenantPatch carries operator edits; nil means "not edited".
type TenantPatch struct {
	FullName               *string `json:"full_name"`
	Email                  *string `json:"email"`
	Phone                  *string `json:"phone"`
	Address                *string `json:"address"`
	IDDocumentNumber       *string `json:"id_document_number"`
	IDDocumentIssuer       *string `json:"id_document_issuer"`
	DrivingLicenseNumber   *string `json:"driving_license_number"`
	DrivingLicenseCategory *string `json:"driving_license_category"`
	CompanyName            *string `json:"company_name"`
	NIP                    *string `json:"nip"`
}

// apply writes the patch onto t and returns the fields whose value actually changed.
func (p TenantPatch) apply(t *model.Tenant) []TenantField {
	var changed []TenantField
	set := func(field TenantField, dst *string, src *string) {
		if src == nil || *dst == *src {
			return
		}
		*dst = *src
		changed = append(changed, field)
	}
	set(FieldFullName, &t.FullName, p.FullName)
	set(FieldEmail, &t.Email, p.Email)
	set(FieldPhone, &t.Phone, p.Phone)
	set(FieldAddress, &t.Address, p.Address)
	set(FieldIDDocumentNumber, &t.IDDocumentNumber, p.IDDocumentNumber)
	set(FieldIDDocumentIssuer, &t.IDDocumentIssuer, p.IDDocumentIssuer)
	set(FieldDrivingLicenseNumber, &t.DrivingLicenseNumber, p.DrivingLicenseNumber)
	set(FieldDrivingLicenseCategory, &t.DrivingLicenseCategory, p.DrivingLicenseCategory)
	set(FieldCompanyName, &t.CompanyName, p.CompanyName)
	set(FieldNIP, &t.NIP, p.NIP)
	return changed
}

// mirrorTenantFieldsToClient copies the changed subset of tenant fields from
// the contract onto its client. One-way and best-effort: failures are logged.
func (s *LifecycleService) mirrorTenantFieldsToClient(ctx context.Context, c model.Contract, changed []TenantField) {
	if len(changed) == 0 {
		return
	}
	fields := make(map[string]any, len(changed))
	for _, f := range changed {
		fields[string(f)] = f.valueOf(c.Tenant)
	}

	if err := s.clients.UpdateFields(context.WithoutCancel(ctx), c.ClientID, fields); err != nil {
		s.log.Warn().Err(err).
			Str("contract_id", c.ID.String()).
			Str("client_id", c.ClientID.String()).
			Int("fields", len(fields)).
			Str("effect", "client_mirror").
			Msg("side effect failed")
	}
}
