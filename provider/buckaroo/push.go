package buckaroo

import "github.com/mstgnz/gobuckaroo/provider"

// Push is a processor-initiated status notification. It is verified the same
// way as a synchronous response.
type Push struct {
	*ResponseParser
}

// NewPush verifies the posted fields of a push notification.
func NewPush(fields map[string]string, secret string) *Push {
	return &Push{ResponseParser: ParsePush(fields, secret)}
}

// Event maps the push classification onto a payment status.
func (p *Push) Event() provider.PaymentStatus {
	return classify(p.ResponseParser)
}

// classify checks reversals first because they carry a success code.
func classify(r *ResponseParser) provider.PaymentStatus {
	switch {
	case r.Reversal():
		return provider.StatusRefunded
	case r.Success():
		return provider.StatusSuccessful
	case r.Pending():
		return provider.StatusPending
	case r.Failure():
		return provider.StatusFailed
	default:
		return provider.StatusUnknown
	}
}
