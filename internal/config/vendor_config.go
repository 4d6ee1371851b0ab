package config

import "time"

type VendorConfig interface {
	GetCredentials() Credentials
	GetVendorBaseURL() string
	GetSSOTokenTTL() time.Duration
	GetUseFakeVendor() bool
}

// Credentials are the server held values injected into every vendor call.
type Credentials struct {
	APIToken   string
	MerchantID string
}

// Present reports whether both values are set. Vendor calls made without them
// fail with a configuration error.
func (c Credentials) Present() bool {
	return c.APIToken != "" && c.MerchantID != ""
}

type Vendor struct {
	APIToken   string        `env:"SSO_API_TOKEN"`
	MerchantID string        `env:"SSO_MERCHANT_ID"`
	BaseURL    string        `env:"SSO_API_URL" envDefault:"https://api.graphy.com"`
	TokenTTL   time.Duration `env:"SSO_TOKEN_TTL" envDefault:"5m"`
	UseFake    bool          `env:"SSO_FAKE_VENDOR" envDefault:"false"`
}

var _ VendorConfig = Vendor{}

func (v Vendor) GetCredentials() Credentials {
	return Credentials{APIToken: v.APIToken, MerchantID: v.MerchantID}
}

func (v Vendor) GetVendorBaseURL() string {
	return v.BaseURL
}

func (v Vendor) GetSSOTokenTTL() time.Duration {
	return v.TokenTTL
}

func (v Vendor) GetUseFakeVendor() bool {
	return v.UseFake
}
