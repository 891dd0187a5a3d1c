package domain

// BookFormat describes how a purchased book is delivered.
type BookFormat string

const (
	FormatDigital  BookFormat = "digital"
	FormatPhysical BookFormat = "physical"
	// FormatBoth covers titles sold as a bundle: the buyer receives the
	// download immediately and the printed copy is shipped.
	FormatBoth BookFormat = "both"
)

// RequiresShipping reports whether a cart line in this format needs a
// physical delivery.
func (f BookFormat) RequiresShipping() bool {
	return f == FormatPhysical || f == FormatBoth
}

// IncludesDownload reports whether a cart line in this format grants
// digital access.
func (f BookFormat) IncludesDownload() bool {
	return f == FormatDigital || f == FormatBoth
}

// CartItem is a single line of the shopping cart as provided by the cart
// service. The checkout engine treats the item list as an immutable
// snapshot; it never mutates quantities or prices.
type CartItem struct {
	BookID    string     `json:"book_id"`
	Title     string     `json:"title"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"unit_price"`
	Format    BookFormat `json:"format"`
}

// Subtotal returns the line total for this item.
func (i CartItem) Subtotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// Classification is the derived view of a cart that drives the step
// sequence and the shipping rules. It is recomputed on every cart change
// and never persisted.
//
// For a non-empty cart exactly one of DigitalOnly, PhysicalOnly and Mixed
// is true. An empty cart sets none of them; callers must treat that as
// "checkout not enterable".
type Classification struct {
	HasDigital   bool    `json:"has_digital"`
	HasPhysical  bool    `json:"has_physical"`
	DigitalOnly  bool    `json:"digital_only"`
	PhysicalOnly bool    `json:"physical_only"`
	Mixed        bool    `json:"mixed"`
	ItemCount    int     `json:"item_count"`
	Subtotal     float64 `json:"subtotal"`
}

// Empty reports whether the classified cart had no items.
func (c Classification) Empty() bool {
	return c.ItemCount == 0
}

// Fingerprint returns a stable tag for this classification, used to
// correlate async responses (rate fetches) with the cart state they were
// issued for so that late responses for a stale cart can be discarded.
func (c Classification) Fingerprint() string {
	switch {
	case c.DigitalOnly:
		return "digital"
	case c.PhysicalOnly:
		return "physical"
	case c.Mixed:
		return "mixed"
	default:
		return "empty"
	}
}

// Classify derives the cart Classification from a snapshot of cart items.
// It is a pure function: calling it repeatedly on the same snapshot yields
// the same result, so it is safe to run on every state read.
func Classify(items []CartItem) Classification {
	var c Classification
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		c.ItemCount += it.Quantity
		c.Subtotal = round2(c.Subtotal + it.Subtotal())
		if it.Format.IncludesDownload() {
			c.HasDigital = true
		}
		if it.Format.RequiresShipping() {
			c.HasPhysical = true
		}
	}
	if c.ItemCount == 0 {
		return c
	}
	c.DigitalOnly = c.HasDigital && !c.HasPhysical
	c.PhysicalOnly = c.HasPhysical && !c.HasDigital
	c.Mixed = c.HasDigital && c.HasPhysical
	return c
}
