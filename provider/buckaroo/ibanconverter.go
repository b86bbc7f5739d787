package buckaroo

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	ibanCountries = []string{"BE", "DE", "FR", "NL"}

	dutchIBANPattern = regexp.MustCompile(`(?i)^NL[0-9]{2}[A-Z]{4}[0-9]{10}$`)

	// Dutch bank codes with a fixed BIC.
	dutchBankBICs = map[string]string{
		"ABNA": "ABNANL2A",
		"ASNB": "ASNBNL21",
		"FRBK": "FRBKNL2L",
		"FVLB": "FVLBNL22",
		"INGB": "INGBNL2A",
		"RABO": "RABONL2U",
		"RBRB": "RBRBNL21",
		"SNSB": "SNSBNL2A",
		"TRIO": "TRIONL2U",
	}
)

// IBANConversionOptions identifies a domestic account to convert.
type IBANConversionOptions struct {
	AccountNumber  string `validate:"required"`
	CountryISOCode string `validate:"required"`
	BankCode       string
}

type IBANConverterGateway struct {
	*Gateway
}

// NewIBANConverterGateway returns a converter. Without an explicit timeout
// conversions give up after IBANConverterTimeout.
func NewIBANConverterGateway(cfg Config, opts ...Option) (*IBANConverterGateway, error) {
	g, err := newGateway(cfg, IBANConverterTimeout, opts)
	if err != nil {
		return nil, err
	}
	return &IBANConverterGateway{Gateway: g}, nil
}

// ConvertToIBAN asks the gateway for the IBAN and BIC of a domestic account.
func (g *IBANConverterGateway) ConvertToIBAN(ctx context.Context, opts IBANConversionOptions) (*Response, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	country := strings.ToUpper(strings.TrimSpace(opts.CountryISOCode))
	if !slices.Contains(ibanCountries, country) {
		return nil, invalidOption("countryisocode", "should be one of "+strings.Join(ibanCountries, ", "))
	}
	if country == "DE" && strings.TrimSpace(opts.BankCode) == "" {
		return nil, invalidOption("bankcode", "is required when countryisocode is DE")
	}

	var params Params
	params.Set("brq_accountnumber", opts.AccountNumber)
	params.Set("brq_channel", channelCallCenter)
	params.Set("brq_countryisocode", country)
	params.Set("brq_websitekey", g.config.WebsiteKey)
	if opts.BankCode != "" {
		params.Set("brq_bankcode", opts.BankCode)
	}

	return g.call(ctx, OperationIBANConverter, params, requireAPIResult), nil
}

// BICForIBAN resolves the BIC of a Dutch IBAN. Known banks are answered
// locally; anything else goes through ConvertToIBAN.
func (g *IBANConverterGateway) BICForIBAN(ctx context.Context, iban, country string) (string, error) {
	iban = strings.ToUpper(strings.TrimSpace(iban))
	if !dutchIBANPattern.MatchString(iban) {
		return "", invalidOption("accountnumber", "should be in format NL00XXXX0123456789")
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	if country != "NL" {
		return "", invalidOption("countryisocode", "should be NL")
	}

	if bic, ok := dutchBankBICs[iban[4:8]]; ok {
		return bic, nil
	}

	resp, err := g.ConvertToIBAN(ctx, IBANConversionOptions{
		AccountNumber:  iban[8:],
		CountryISOCode: country,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBICLookup, err)
	}
	if !resp.Success() || !resp.IBANConverterSuccess() || resp.BIC() == "" {
		return "", fmt.Errorf("%w: %s", ErrBICLookup, lookupFailure(resp))
	}
	return resp.BIC(), nil
}

func lookupFailure(resp *Response) string {
	if msg := resp.ErrorMessage(); msg != "" {
		return msg
	}
	if !resp.Valid() {
		return invalidResponseMessage
	}
	return "no bic for " + resp.Field("brq_accountnumber")
}
