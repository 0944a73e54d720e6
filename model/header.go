package model

// Card is one FITS-style header keyword.
type Card struct {
	Key     string
	Value   any
	Comment string
}

// Header is an ordered list of cards. Keys are unique; Set on an existing
// key replaces the card in place.
type Header struct {
	cards []Card
}

// NewHeader constructs a header from the given cards.
func NewHeader(cards ...Card) *Header {
	h := &Header{}
	for _, c := range cards {
		h.Set(c.Key, c.Value, c.Comment)
	}
	return h
}

// Set adds or replaces a card.
func (h *Header) Set(key string, value any, comment string) {
	for i := range h.cards {
		if h.cards[i].Key == key {
			h.cards[i] = Card{Key: key, Value: value, Comment: comment}
			return
		}
	}
	h.cards = append(h.cards, Card{Key: key, Value: value, Comment: comment})
}

// Get returns the card stored under key.
func (h *Header) Get(key string) (Card, bool) {
	if h == nil {
		return Card{}, false
	}
	for _, c := range h.cards {
		if c.Key == key {
			return c, true
		}
	}
	return Card{}, false
}

// Cards returns a copy of the cards in insertion order.
func (h *Header) Cards() []Card {
	if h == nil {
		return nil
	}
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the number of cards.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.cards)
}

// Clone returns an independent copy of the header.
func (h *Header) Clone() *Header {
	return &Header{cards: h.Cards()}
}

// WriteOptions controls how a map is persisted.
type WriteOptions struct {
	// Overwrite allows replacing an existing file.
	Overwrite bool
	// Checksum adds a DATASUM integrity card.
	Checksum bool
	// Float32 stores pixels as 32-bit floats instead of 64-bit.
	Float32 bool
}
