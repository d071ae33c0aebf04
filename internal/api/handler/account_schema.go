package handler

import (
	"github.com/papillon/aggregator/internal/core/domain"
)

// createAccountRequest enrolls a new account. Exactly one credentials block
// must be set and must match the service tag; credentials are write-only and
// never echoed back.
type createAccountRequest struct {
	Service    string `json:"service" validate:"required"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	ClassName  string `json:"class_name,omitempty"`
	SchoolName string `json:"school_name,omitempty"`

	Pronote   *pronoteCredentials   `json:"pronote,omitempty"`
	Multi     *multiCredentials     `json:"multi,omitempty"`
	Turboself *turboselfCredentials `json:"turboself,omitempty"`
	ARD       *ardCredentials       `json:"ard,omitempty"`
	Izly      *izlyCredentials      `json:"izly,omitempty"`
}

type pronoteCredentials struct {
	URL           string `json:"url" validate:"required"`
	Username      string `json:"username" validate:"required"`
	DeviceUUID    string `json:"device_uuid" validate:"required"`
	NextTimeToken string `json:"next_time_token" validate:"required"`
}

type multiCredentials struct {
	InstanceURL  string `json:"instance_url" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type turboselfCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ardCredentials struct {
	PID            string `json:"pid" validate:"required"`
	Username       string `json:"username" validate:"required"`
	Password       string `json:"password" validate:"required"`
	SchoolID       string `json:"school_id" validate:"required"`
	MealPriceCents int    `json:"meal_price_cents,omitempty"`
}

type izlyCredentials struct {
	Identification string `json:"identification" validate:"required"`
	Secret         string `json:"secret" validate:"required"`
	Currency       string `json:"currency,omitempty"`
}

// authentication builds the credential payload matching the service tag, or
// nil when the request carries none for it.
func (r *createAccountRequest) authentication(service domain.Service) domain.Authentication {
	switch service {
	case domain.ServicePronote:
		if r.Pronote != nil {
			return domain.PronoteAuth{
				URL:           r.Pronote.URL,
				Username:      r.Pronote.Username,
				DeviceUUID:    r.Pronote.DeviceUUID,
				NextTimeToken: r.Pronote.NextTimeToken,
			}
		}
	case domain.ServiceMulti:
		if r.Multi != nil {
			return domain.MultiAuth{InstanceURL: r.Multi.InstanceURL, RefreshToken: r.Multi.RefreshToken}
		}
	case domain.ServiceTurboself:
		if r.Turboself != nil {
			return domain.TurboselfAuth{Username: r.Turboself.Username, Password: r.Turboself.Password}
		}
	case domain.ServiceARD:
		if r.ARD != nil {
			return domain.ARDAuth{
				PID:            r.ARD.PID,
				Username:       r.ARD.Username,
				Password:       r.ARD.Password,
				SchoolID:       r.ARD.SchoolID,
				MealPriceCents: r.ARD.MealPriceCents,
			}
		}
	case domain.ServiceIzly:
		if r.Izly != nil {
			return domain.IzlyAuth{
				Identification: r.Izly.Identification,
				Secret:         r.Izly.Secret,
				Currency:       r.Izly.Currency,
			}
		}
	}
	return nil
}

type linkAccountRequest struct {
	ExternalLocalID string `json:"external_local_id" validate:"required"`
}

// accountResponse is the public shape of a stored account. Credentials never
// appear here.
type accountResponse struct {
	LocalID     string   `json:"local_id"`
	Service     string   `json:"service"`
	IsExternal  bool     `json:"is_external"`
	DisplayName string   `json:"display_name"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	ClassName   string   `json:"class_name,omitempty"`
	SchoolName  string   `json:"school_name,omitempty"`
	Username    string   `json:"username,omitempty"`
	LinkedIDs   []string `json:"linked_external_ids,omitempty"`
}

func toAccountResponse(account *domain.Account) accountResponse {
	return accountResponse{
		LocalID:     account.LocalID,
		Service:     account.Service.String(),
		IsExternal:  account.IsExternal,
		DisplayName: account.DisplayName(),
		FirstName:   account.StudentName.First,
		LastName:    account.StudentName.Last,
		ClassName:   account.ClassName,
		SchoolName:  account.SchoolName,
		Username:    account.Username,
		LinkedIDs:   account.LinkedExternalLocalIDs,
	}
}
