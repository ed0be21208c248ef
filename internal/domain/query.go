package domain

// PageFilter is the normalized filter set for one id-page read over the
// entity table. Limit and offset are already clamped.
type PageFilter struct {
	ApplicationID *string
	OwnerID       *string
	Status        *string
	OrderColumn   string
	OrderDesc     bool
	Limit         int
	Offset        int
}
