package broker

import "strings"

// AssetClass selects the venue family for a symbol.
type AssetClass string

const (
	ClassForex  AssetClass = "forex"
	ClassCrypto AssetClass = "crypto"
	ClassStock  AssetClass = "stock"
)

// forexPairs is the fixed membership set of recognized currency pairs,
// keyed by normalized symbol.
var forexPairs = map[string]struct{}{
	"EURUSD": {}, "GBPUSD": {}, "USDJPY": {}, "USDCHF": {},
	"AUDUSD": {}, "USDCAD": {}, "NZDUSD": {}, "EURGBP": {},
	"EURJPY": {}, "GBPJPY": {}, "AUDJPY": {}, "EURCHF": {},
	"EURAUD": {}, "GBPCHF": {}, "AUDNZD": {}, "CADJPY": {},
}

var cryptoQuotes = []string{"USDT", "USDC", "BUSD"}

// NormalizeSymbol strips separators and uppercases so "eur/usd", "EUR-USD"
// and "EURUSD" classify identically.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"/", "-", "_", ":", "."} {
		s = strings.ReplaceAll(s, sep, "")
	}
	return s
}

// Classify maps a symbol to its asset class: known currency pairs are
// forex, known crypto quote suffixes are crypto, everything else trades as
// a stock.
func Classify(symbol string) AssetClass {
	norm := NormalizeSymbol(symbol)
	if _, ok := forexPairs[norm]; ok {
		return ClassForex
	}
	for _, quote := range cryptoQuotes {
		if strings.HasSuffix(norm, quote) && len(norm) > len(quote) {
			return ClassCrypto
		}
	}
	return ClassStock
}
