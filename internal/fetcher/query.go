package fetcher

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinNewsLimit and MaxNewsLimit bound AssetQuery.NewsLimit
	MinNewsLimit = 1
	MaxNewsLimit = 20
)

var (
	idPattern      = regexp.MustCompile(`^[a-z0-9-]+$`)
	symbolPattern  = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
	numericPattern = regexp.MustCompile(`^[0-9]+$`)
)

// AssetQuery identifies the asset a pipeline run is about
type AssetQuery struct {
	ID        string `json:"id" mapstructure:"id"`
	Symbol    string `json:"symbol" mapstructure:"symbol"`
	NewsLimit int    `json:"newsLimit" mapstructure:"news_limit"`
}

// NewAssetQuery normalizes and validates the raw inputs
func NewAssetQuery(id, symbol string, newsLimit int) (AssetQuery, error) {
	q := AssetQuery{
		ID:        NormalizeID(id),
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		NewsLimit: newsLimit,
	}
	if err := q.Validate(); err != nil {
		return AssetQuery{}, err
	}
	return q, nil
}

// Validate checks the query without touching the network
func (q AssetQuery) Validate() error {
	if err := ValidateID(q.ID); err != nil {
		return err
	}
	if err := ValidateSymbol(q.Symbol); err != nil {
		return err
	}
	if q.NewsLimit < MinNewsLimit || q.NewsLimit > MaxNewsLimit {
		return NewInputError(fmt.Sprintf("news limit %d out of range %d..%d", q.NewsLimit, MinNewsLimit, MaxNewsLimit))
	}
	return nil
}

// NormalizeID trims and lowercases an asset identifier
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// CheckID rejects identifiers with malformed shapes: empty, containing
// markup or path characters, or purely numeric.
func CheckID(id string) error {
	if strings.TrimSpace(id) == "" {
		return NewInputError("asset id is empty")
	}
	if strings.ContainsAny(id, `<>{}[]\/`) {
		return NewInputError(fmt.Sprintf("invalid asset id %q: contains forbidden characters", id))
	}
	if numericPattern.MatchString(id) {
		return NewInputError(fmt.Sprintf("invalid asset id %q: purely numeric", id))
	}
	return nil
}

// ValidateSymbol checks an already upper-cased ticker symbol
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return NewInputError(fmt.Sprintf("invalid symbol %q: must be 2-10 uppercase letters or digits", symbol))
	}
	return nil
}

// ValidateID checks an already normalized asset identifier
func ValidateID(id string) error {
	if err := CheckID(id); err != nil {
		return err
	}
	if !idPattern.MatchString(id) {
		return NewInputError(fmt.Sprintf("invalid asset id %q: must match [a-z0-9-]", id))
	}
	return nil
}
