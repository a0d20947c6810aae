package enums

import "slices"

// GatewayProvider names the rail a gateway charge runs on.
type GatewayProvider string

const (
	ProviderMTN      GatewayProvider = "mtn"
	ProviderVodafone GatewayProvider = "vodafone"
	ProviderTigo     GatewayProvider = "tigo"
	ProviderCard     GatewayProvider = "card"
)

var validGatewayProviders = []GatewayProvider{
	ProviderMTN,
	ProviderVodafone,
	ProviderTigo,
	ProviderCard,
}

// String implements fmt.Stringer.
func (g GatewayProvider) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GatewayProvider.
func (g GatewayProvider) IsValid() bool {
	return slices.Contains(validGatewayProviders, g)
}

// ParseGatewayProvider converts raw input into a GatewayProvider.
func ParseGatewayProvider(value string) (GatewayProvider, error) {
	return parse(value, validGatewayProviders, "gateway provider")
}

// IsMobileMoney reports whether the provider is a mobile-money network.
func (g GatewayProvider) IsMobileMoney() bool {
	return g == ProviderMTN || g == ProviderVodafone || g == ProviderTigo
}

// PaystackCode is the provider code Paystack expects on /charge.
func (g GatewayProvider) PaystackCode() string {
	switch g {
	case ProviderMTN:
		return "mtn"
	case ProviderVodafone:
		return "vod"
	case ProviderTigo:
		return "tgo"
	}
	return ""
}

// ReferencePrefix is the prefix used for attempt references on this provider.
func (g GatewayProvider) ReferencePrefix() string {
	if g.IsMobileMoney() {
		return "MM"
	}
	return "PAY"
}
