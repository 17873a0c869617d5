package database

// SavedAbstract is an abstract the user chose to keep.
type SavedAbstract struct {
	ID           int64
	Title        string
	Link         string
	Description  *string
	AbstractHTML *string
	Strategy     *string
	FeedName     *string
	SavedAt      *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	SavedAbstracts int
	WithAbstract   int
	Feeds          int
}
