// Package emoji defines the custom emoji identifier and its textual codec.
//
// An ID names a single custom emoji document together with the account that
// resolved it. The serialized form is the token embedded in rich-text markup
// and exchanged with render call sites: "<document-id>:<owner-id>", both
// decimal integers.
package emoji

import (
	"strconv"
	"strings"
)

// ID identifies a custom emoji document for a given owner account.
type ID struct {
	// DocumentID is the numeric id of the emoji document.
	DocumentID uint64

	// OwnerID is the account id the document was resolved for. Documents
	// are account-scoped: the same document id may resolve differently
	// for different accounts.
	OwnerID uint64
}

// Zero reports whether the ID is the zero value.
func (id ID) Zero() bool {
	return id.DocumentID == 0 && id.OwnerID == 0
}

// Serialize returns the textual token for the ID.
func Serialize(id ID) string {
	return strconv.FormatUint(id.DocumentID, 10) + ":" + strconv.FormatUint(id.OwnerID, 10)
}

// Parse decodes a textual token produced by Serialize. It returns ok=false
// unless the token splits into exactly two colon-separated decimal fields.
func Parse(token string) (ID, bool) {
	doc, owner, found := strings.Cut(token, ":")
	if !found || strings.Contains(owner, ":") {
		return ID{}, false
	}
	documentID, err := strconv.ParseUint(doc, 10, 64)
	if err != nil {
		return ID{}, false
	}
	ownerID, err := strconv.ParseUint(owner, 10, 64)
	if err != nil {
		return ID{}, false
	}
	return ID{DocumentID: documentID, OwnerID: ownerID}, true
}
