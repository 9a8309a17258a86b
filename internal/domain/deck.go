package domain

type DeckType string

const (
	DeckFibonacci DeckType = "fibonacci"
	DeckModified  DeckType = "modified"
	DeckTShirt    DeckType = "tshirt"
	DeckPowers    DeckType = "powers"

	DefaultDeck = DeckFibonacci
)

var decks = map[DeckType][]string{
	DeckFibonacci: {"0", "1", "2", "3", "5", "8", "13", "21", "34", "55", "89", "?", "coffee"},
	DeckModified:  {"0", "0.5", "1", "2", "3", "5", "8", "13", "20", "40", "100", "?", "coffee"},
	DeckTShirt:    {"XS", "S", "M", "L", "XL", "XXL", "?", "coffee"},
	DeckPowers:    {"0", "1", "2", "4", "8", "16", "32", "64", "?", "coffee"},
}

// ParseDeckType maps an optional request value to a known deck; "" selects the default.
func ParseDeckType(s string) (DeckType, error) {
	if s == "" {
		return DefaultDeck, nil
	}
	d := DeckType(s)
	if _, ok := decks[d]; !ok {
		return "", ErrUnknownDeck
	}
	return d, nil
}

// Cards returns a copy of the permitted values for the deck.
func (d DeckType) Cards() []string {
	cards := decks[d]
	out := make([]string, len(cards))
	copy(out, cards)
	return out
}

// Contains reports whether value is a card of this deck.
func (d DeckType) Contains(value string) bool {
	for _, c := range decks[d] {
		if c == value {
			return true
		}
	}
	return false
}
