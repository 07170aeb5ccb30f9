package model

// Snapshot is the complete durable state of the application.
//
// Products is nil when the catalog cache has never been filled. That encodes as
// "products": null, which is different from an empty-but-cached catalog ([]).
type Snapshot struct {
	Carts    map[string]*Cart `json:"carts"`
	Products []Product        `json:"products"`
	Users    []User           `json:"users"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Carts: make(map[string]*Cart),
		Users: []User{},
	}
}

// Normalize fills in nil collections so callers never have to nil-check.
// Products is left alone on purpose: nil means "not cached".
func (s *Snapshot) Normalize() {
	if s.Carts == nil {
		s.Carts = make(map[string]*Cart)
	}
	for id, c := range s.Carts {
		if c == nil {
			s.Carts[id] = NewCart()
			continue
		}
		if c.Items == nil {
			c.Items = []CartItem{}
		}
	}
	if s.Users == nil {
		s.Users = []User{}
	}
}
