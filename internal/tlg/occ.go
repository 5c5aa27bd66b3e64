package tlg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

// minContractLen is the shortest well-formed packed contract symbol: a
// 1-char underlying, 6-digit expiry, type char, and at least one strike
// digit still need 15 characters with standard padding.
const minContractLen = 15

// ParseOCCSymbol decodes a packed OCC-style contract symbol such as
// "AAPL  250905C00240000": a space-padded underlying, a YYMMDD expiry, a
// C/P type character, and a strike scaled by 1000. The two-digit year maps
// to 2000+YY, so symbols expiring after 2099 are not decodable.
func ParseOCCSymbol(contract string) (models.OptionDetails, error) {
	contract = strings.TrimSpace(contract)

	if len(contract) < minContractLen {
		return models.OptionDetails{}, fmt.Errorf("option contract symbol too short: %q", contract)
	}

	// The underlying's padding width varies between brokers, so locate the
	// expiry instead: the first 6-digit run immediately followed by C or P.
	start := -1
	for i := 0; i+7 <= len(contract); i++ {
		if isDigits(contract[i:i+6]) && (contract[i+6] == 'C' || contract[i+6] == 'P') {
			start = i
			break
		}
	}
	if start < 0 {
		return models.OptionDetails{}, fmt.Errorf("no expiration date found in option symbol: %q", contract)
	}

	underlying := strings.TrimSpace(contract[:start])
	if underlying == "" {
		return models.OptionDetails{}, fmt.Errorf("empty underlying in option symbol: %q", contract)
	}

	dateStr := contract[start : start+6]
	expiry, err := time.Parse("20060102", "20"+dateStr)
	if err != nil {
		return models.OptionDetails{}, fmt.Errorf("invalid expiration date: %s", dateStr)
	}

	optionType := models.OptionTypeCall
	if contract[start+6] == 'P' {
		optionType = models.OptionTypePut
	}

	strikeStr := contract[start+7:]
	strikeRaw, err := strconv.ParseInt(strikeStr, 10, 64)
	if err != nil {
		return models.OptionDetails{}, fmt.Errorf("invalid strike price: %s", strikeStr)
	}

	return models.OptionDetails{
		Underlying:     underlying,
		ExpirationDate: expiry,
		OptionType:     optionType,
		StrikePrice:    decimal.New(strikeRaw, -3),
	}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
