package core

import "fmt"

// Dimension names a column the aggregator can group by.
type Dimension string

const (
	DimPaymentMethod            Dimension = "payment_method"
	DimCurrency                 Dimension = "currency"
	DimIssuerCountry            Dimension = "issuer_country"
	DimShopperCountry           Dimension = "shopper_country"
	DimRiskScoring              Dimension = "risk_scoring"
	DimShopperInteraction       Dimension = "shopper_interaction"
	DimIssuerName               Dimension = "issuer_name"
	DimMerchantAccount          Dimension = "merchant_account"
	DimAmountEUR                Dimension = "amount_eur"
	DimLiabilityShift           Dimension = "liability_shift"
	DimPOSEntryMode             Dimension = "pos_entry_mode"
	DimAcquirer                 Dimension = "acquirer"
	DimAVSResponse              Dimension = "avs_response"
	DimCVC2Response             Dimension = "cvc2_response"
	Dim3DDirectoryResponse      Dimension = "3d_directory_response"
	Dim3DAuthenticationResponse Dimension = "3d_authentication_response"
	DimPaymentMethodVariant     Dimension = "payment_method_variant"
	DimGlobalCardBrand          Dimension = "global_card_brand"
	Dim3DSVersion               Dimension = "3ds_version"

	// Derived country dimensions used by the choropleths.
	DimIssuerCountryISO3  Dimension = "issuer_country_alpha3"
	DimShopperCountryISO3 Dimension = "shopper_country_alpha3"
)

// GroupingDimensions lists the selectable dimensions in display order.
var GroupingDimensions = []Dimension{
	DimPaymentMethod, DimCurrency, DimIssuerCountry,
	DimShopperCountry, DimRiskScoring, DimShopperInteraction, DimIssuerName, DimMerchantAccount,
	DimAmountEUR, DimLiabilityShift, DimPOSEntryMode, DimAcquirer, DimAVSResponse, DimCVC2Response,
	Dim3DDirectoryResponse, Dim3DAuthenticationResponse, DimPaymentMethodVariant, DimGlobalCardBrand,
	Dim3DSVersion,
}

// CategoricalDimensions are the grouping dimensions read straight from the source columns.
func CategoricalDimensions() []Dimension {
	out := make([]Dimension, 0, len(GroupingDimensions))
	for _, d := range GroupingDimensions {
		if d != DimAmountEUR {
			out = append(out, d)
		}
	}
	return out
}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
	}
	return d, nil
}

// Valid reports whether d can be grouped on.
func (d Dimension) Valid() bool {
	if d == DimIssuerCountryISO3 || d == DimShopperCountryISO3 {
		return true
	}
	for _, g := range GroupingDimensions {
		if g == d {
			return true
		}
	}
	return false
}

// IsAmount reports whether d is the converted amount pseudo-dimension.
func (d Dimension) IsAmount() bool {
	return d == DimAmountEUR
}

// IsCountryISO3 reports whether d is one of the derived ISO3 country dimensions.
func (d Dimension) IsCountryISO3() bool {
	return d == DimIssuerCountryISO3 || d == DimShopperCountryISO3
}

func (d Dimension) String() string {
	return string(d)
}
