package mailchimp

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/erauner12/listsync/internal/batchsync"
	"github.com/erauner12/listsync/internal/customer"
)

// ProviderName labels notes and logs written for this provider
const ProviderName = "Mailchimp"

// Member statuses accepted by the lists API
const (
	StatusSubscribed    = "subscribed"
	StatusUnsubscribed  = "unsubscribed"
	StatusCleaned       = "cleaned"
	StatusPending       = "pending"
	StatusTransactional = "transactional"
)

// SubscriberHash is the member id Mailchimp derives from an email address:
// the lowercase hex MD5 of the lowercased address.
func SubscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

var _ batchsync.ListHandler = (*ListHandler)(nil)

// ListHandler maps customers onto one Mailchimp audience
type ListHandler struct {
	listID   string
	shortcut string
}

// NewListHandler creates a handler for an audience.
// shortcut is the short human name used in notes and logs.
func NewListHandler(listID, shortcut string) *ListHandler {
	if shortcut == "" {
		shortcut = listID
	}
	return &ListHandler{listID: listID, shortcut: shortcut}
}

func (h *ListHandler) Provider() string { return ProviderName }
func (h *ListHandler) ListID() string   { return h.listID }
func (h *ListHandler) Shortcut() string { return h.shortcut }

// RemoteID returns the subscriber hash of the email
func (h *ListHandler) RemoteID(email string) string {
	return SubscriberHash(email)
}

// MemberPath is the batch operation path of a member, relative to the API root
func (h *ListHandler) MemberPath(remoteID string) string {
	return fmt.Sprintf("lists/%s/members/%s", h.listID, remoteID)
}

// NeedsExport reports whether the customer belongs on the list:
// active, with an email address and a known newsletter status.
func (h *ListHandler) NeedsExport(c *customer.Customer) bool {
	if c == nil || !c.Active {
		return false
	}
	if !strings.Contains(c.Email, "@") {
		return false
	}
	return memberStatus(c.NewsletterStatus) != ""
}

// BuildEntry returns the member payload for a PUT.
// Pending customers only get status_if_new so an existing subscription is
// never downgraded to pending.
func (h *ListHandler) BuildEntry(c *customer.Customer) map[string]any {
	status := memberStatus(c.NewsletterStatus)

	entry := map[string]any{
		"email_address": strings.TrimSpace(c.Email),
		"status_if_new": status,
		"merge_fields": map[string]any{
			"FNAME": c.FirstName,
			"LNAME": c.LastName,
		},
	}
	if status != StatusPending {
		entry["status"] = status
	}
	return entry
}

func memberStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case StatusSubscribed:
		return StatusSubscribed
	case StatusUnsubscribed:
		return StatusUnsubscribed
	case StatusCleaned:
		return StatusCleaned
	case StatusPending:
		return StatusPending
	case StatusTransactional:
		return StatusTransactional
	default:
		return ""
	}
}
