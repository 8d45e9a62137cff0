package deploy

import (
	"errors"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/jellydator/validation"
)

// Kind selects the factory a request is deployed through.
type Kind string

const (
	KindERC20 Kind = "erc20"
	KindNFT   Kind = "nft"
)

// MaxRoyaltyPercent is the highest royalty an NFT collection may charge.
const MaxRoyaltyPercent = 15

var digitsRe = regexp.MustCompile(`^\d+$`)

// Request is a single deployment request built from user input. It is
// consumed once by the tracker.
type Request struct {
	Kind   Kind
	Name   string
	Symbol string

	// ERC20 only. Whole tokens; decimals are applied by the contract.
	InitialSupply *big.Int

	// NFT only.
	RoyaltyPercent *int
	BaseURI        string
	// MetadataPath names a file whose upload yields the base URI. Either it
	// or BaseURI must be set.
	MetadataPath string
}

// ParseERC20 builds and validates an ERC20 request from raw form values.
func ParseERC20(name, symbol, supply string) (Request, error) {
	req := Request{
		Kind:   KindERC20,
		Name:   strings.TrimSpace(name),
		Symbol: strings.TrimSpace(symbol),
	}
	supply = strings.TrimSpace(supply)
	if !digitsRe.MatchString(supply) {
		return Request{}, newError(ErrInvalidInput, errors.New("supply must be a whole number"))
	}
	n, ok := new(big.Int).SetString(supply, 10)
	if !ok {
		return Request{}, newError(ErrInvalidInput, errors.New("supply must be a whole number"))
	}
	req.InitialSupply = n
	if err := req.Validate(); err != nil {
		return Request{}, newError(ErrInvalidInput, err)
	}
	return req, nil
}

// ParseNFT builds and validates an NFT collection request from raw form
// values. royalty is a whole percentage between 0 and MaxRoyaltyPercent.
func ParseNFT(name, symbol, baseURI, metadataPath, royalty string) (Request, error) {
	req := Request{
		Kind:         KindNFT,
		Name:         strings.TrimSpace(name),
		Symbol:       strings.TrimSpace(symbol),
		BaseURI:      strings.TrimSpace(baseURI),
		MetadataPath: strings.TrimSpace(metadataPath),
	}
	royalty = strings.TrimSpace(royalty)
	if !digitsRe.MatchString(royalty) {
		return Request{}, newError(ErrInvalidInput, errors.New("royalty must be a whole percentage"))
	}
	r, err := strconv.Atoi(royalty)
	if err != nil {
		return Request{}, newError(ErrInvalidInput, errors.New("royalty must be a whole percentage"))
	}
	req.RoyaltyPercent = &r
	if err := req.Validate(); err != nil {
		return Request{}, newError(ErrInvalidInput, err)
	}
	return req, nil
}

// Validate implements validation.Validatable.
func (r Request) Validate() error {
	isERC20 := r.Kind == KindERC20
	isNFT := r.Kind == KindNFT

	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In(KindERC20, KindNFT)),
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Symbol, validation.Required),
		validation.Field(&r.InitialSupply,
			validation.When(isERC20, validation.Required, validation.By(positive))),
		validation.Field(&r.RoyaltyPercent,
			validation.When(isNFT, validation.NotNil, validation.Min(0), validation.Max(MaxRoyaltyPercent))),
		validation.Field(&r.BaseURI,
			validation.When(isNFT && r.MetadataPath == "", validation.Required.Error("is required unless a metadata file is uploaded"))),
	)
}

func positive(value interface{}) error {
	n, _ := value.(*big.Int)
	if n == nil || n.Sign() <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

// Royalty returns the royalty percentage, or zero when unset.
func (r Request) Royalty() int {
	if r.RoyaltyPercent == nil {
		return 0
	}
	return *r.RoyaltyPercent
}
