package domain

// Filters narrows a search. Empty fields are not applied.
type Filters struct {
	Product      string
	Version      string
	DocumentKind string
}
