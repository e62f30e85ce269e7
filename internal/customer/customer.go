package customer

// Customer is the local record mirrored into the remote list
type Customer struct {
	ID               int64
	Email            string
	FirstName        string
	LastName         string
	Active           bool
	NewsletterStatus string // subscribed, unsubscribed, pending, cleaned
}

// ExportNote is an audit entry written after a successful remote operation
type ExportNote struct {
	CustomerID  int64
	ListID      string
	RemoteID    string
	Fingerprint string // empty for deletions
	Message     string
	CreatedAtMs int64
}
