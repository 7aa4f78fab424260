package domain

// SeedResult represents the result of seeding one identity into the application database
type SeedResult struct {
	Email               string
	Inserted            bool // false when the user already existed
	ApplicationsCleared int64
	Applied             bool // an approved application was inserted
	Paired              bool // a matching pair was inserted
	Error               error
}
