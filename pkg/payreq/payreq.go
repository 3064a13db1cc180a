// Package payreq implements phoenix: payment request URIs.
//
// A payment request names one or more receivers, each with an optional
// amount in DUSK, an optional reference id that becomes the nonce of the
// receiver's note, a label and a message:
//
//	phoenix:<public key>?amount=1.5&ref=42&label=shop
//
// Several receivers use indexed parameters, index 0 allowing the bare name:
//
//	phoenix:?address=<pk0>&amount=1&address.1=<pk1>&amount.1=2.25
package payreq

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/roles"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/units"
)

// Scheme is the URI scheme of payment requests.
const Scheme = "phoenix:"

// maxIndex bounds the parameter index.
const maxIndex = 9999

var (
	ErrInvalidURI     = errors.New("payreq: invalid payment request")
	ErrMissingAmount  = errors.New("payreq: payment has no amount")
	ErrNoPayments     = errors.New("payreq: no payments")
	ErrUnknownAddress = errors.New("payreq: invalid receiver address")
)

// PaymentRequest is a parsed payment request.
type PaymentRequest struct {
	Payments []Payment
}

// Payment is one receiver of a request.
type Payment struct {
	Address keys.PublicKey
	Amount  *uint64 // LUX, nil when the payer chooses
	RefID   *uint64
	Label   *string
	Message *string
}

// Parse parses a payment request. The scheme prefix is optional.
func Parse(uri string) (*PaymentRequest, error) {
	uri = strings.TrimPrefix(uri, Scheme)

	base, query, _ := strings.Cut(uri, "?")
	if query == "" && strings.Contains(base, "=") {
		base, query = "", base
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}

	var payments []Payment
	if hasIndexedParams(params) {
		if base != "" {
			return nil, fmt.Errorf("%w: base address with indexed parameters", ErrInvalidURI)
		}
		if payments, err = parseIndexedPayments(params); err != nil {
			return nil, err
		}
	} else {
		p, err := parsePayment(params, 0, base)
		if err != nil {
			return nil, err
		}
		payments = []Payment{p}
	}
	return &PaymentRequest{Payments: payments}, nil
}

// parsePayment reads the parameters of index idx. base, when set, is the
// address from the URI path.
func parsePayment(params url.Values, idx int, base string) (Payment, error) {
	var p Payment

	address := getIndexedParam(params, "address", idx)
	if base != "" {
		if address != "" {
			return p, fmt.Errorf("%w: address given twice", ErrInvalidURI)
		}
		address = base
	}
	if address == "" {
		return p, fmt.Errorf("%w: payment %d", ErrNoPayments, idx)
	}
	pk, err := keys.ParsePublicKey(address)
	if err != nil {
		return p, fmt.Errorf("%w: payment %d: %v", ErrUnknownAddress, idx, err)
	}
	p.Address = pk

	if s := getIndexedParam(params, "amount", idx); s != "" {
		lux, err := units.ParseDusk(s)
		if err != nil {
			return p, fmt.Errorf("%w: payment %d amount: %v", ErrInvalidURI, idx, err)
		}
		p.Amount = &lux
	}
	if s := getIndexedParam(params, "ref", idx); s != "" {
		ref, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return p, fmt.Errorf("%w: payment %d ref: %v", ErrInvalidURI, idx, err)
		}
		p.RefID = &ref
	}
	if s := getIndexedParam(params, "label", idx); s != "" {
		p.Label = &s
	}
	if s := getIndexedParam(params, "message", idx); s != "" {
		p.Message = &s
	}
	return p, nil
}

func parseIndexedPayments(params url.Values) ([]Payment, error) {
	indices := make(map[int]bool)
	for key := range params {
		name, idx, ok := splitIndex(key)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q", ErrInvalidURI, key)
		}
		if name == "address" {
			indices[idx] = true
		}
	}
	for key := range params {
		if _, idx, _ := splitIndex(key); !indices[idx] {
			return nil, fmt.Errorf("%w: parameter %q has no address", ErrInvalidURI, key)
		}
	}

	sorted := make([]int, 0, len(indices))
	for idx := range indices {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	payments := make([]Payment, 0, len(sorted))
	for _, idx := range sorted {
		p, err := parsePayment(params, idx, "")
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func hasIndexedParams(params url.Values) bool {
	for key := range params {
		if strings.Contains(key, ".") {
			return true
		}
	}
	return false
}

// splitIndex splits "amount.3" into ("amount", 3). A bare name has index 0.
func splitIndex(key string) (string, int, bool) {
	name, suffix, found := strings.Cut(key, ".")
	if !found {
		return name, 0, true
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 0 || idx > maxIndex {
		return "", 0, false
	}
	return name, idx, true
}

// getIndexedParam returns name.idx, or the bare name for index 0.
func getIndexedParam(params url.Values, name string, idx int) string {
	if idx == 0 {
		if v := params.Get(name); v != "" {
			return v
		}
	}
	return params.Get(fmt.Sprintf("%s.%d", name, idx))
}

// Output turns the payment into an obfuscated output request.
func (p Payment) Output() (roles.OutputRequest, error) {
	if p.Amount == nil {
		return roles.OutputRequest{}, ErrMissingAmount
	}
	return roles.OutputRequest{
		Type:     note.Obfuscated,
		Receiver: p.Address.String(),
		Value:    *p.Amount,
		RefID:    p.RefID,
	}, nil
}

// Encode formats the request as a URI. A single payment puts its address
// in the path; several use indexed parameters.
func (req *PaymentRequest) Encode() string {
	switch len(req.Payments) {
	case 0:
		return Scheme
	case 1:
		p := req.Payments[0]
		uri := Scheme + p.Address.String()
		if params := p.params(""); len(params) > 0 {
			uri += "?" + params.Encode()
		}
		return uri
	}

	params := url.Values{}
	for i, p := range req.Payments {
		suffix := fmt.Sprintf(".%d", i)
		if i == 0 {
			suffix = ""
		}
		params.Add("address"+suffix, p.Address.String())
		for k, v := range p.params(suffix) {
			params[k] = v
		}
	}
	return Scheme + "?" + params.Encode()
}

func (p Payment) params(suffix string) url.Values {
	params := url.Values{}
	if p.Amount != nil {
		params.Add("amount"+suffix, units.FormatDusk(*p.Amount))
	}
	if p.RefID != nil {
		params.Add("ref"+suffix, strconv.FormatUint(*p.RefID, 10))
	}
	if p.Label != nil {
		params.Add("label"+suffix, *p.Label)
	}
	if p.Message != nil {
		params.Add("message"+suffix, *p.Message)
	}
	return params
}
