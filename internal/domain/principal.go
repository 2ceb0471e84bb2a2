package domain

// Principal is the authenticated caller as resolved by the auth middleware.
type Principal struct {
	Subject string
	Email   string
	Name    string
}
