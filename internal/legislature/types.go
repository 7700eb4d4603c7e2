// Package legislature is a client for the state legislature document API.
package legislature

import "fmt"

// Bill identifies one bill in the session's bills list.
type Bill struct {
	BillType   string `json:"billType"`
	BillNumber int    `json:"billNumber"`
}

// Key returns the canonical folder name for a bill, e.g. "HB-123".
func (b Bill) Key() string {
	return fmt.Sprintf("%s-%d", b.BillType, b.BillNumber)
}

// Display returns the human form used in bill lists, e.g. "HB 123".
func (b Bill) Display() string {
	return fmt.Sprintf("%s %d", b.BillType, b.BillNumber)
}

// Document is one entry returned by the document endpoints.
type Document struct {
	ID       int64  `json:"id"`
	FileName string `json:"fileName"`
}

// DocumentKind selects which document endpoint to query for a bill.
type DocumentKind string

// Document kinds mirrored by this service.
const (
	KindAmendments  DocumentKind = "amendments"
	KindFiscalNotes DocumentKind = "fiscal-notes"
	KindLegalNotes  DocumentKind = "legal-notes"
)

// endpoint returns the API operation name for the kind.
func (k DocumentKind) endpoint() string {
	switch k {
	case KindAmendments:
		return "getBillAmendments"
	case KindFiscalNotes:
		return "getBillFiscalNotes"
	default:
		return "getBillOther"
	}
}

// Dir returns the local directory name for the kind within a session,
// e.g. "amendment-pdfs-2025".
func (k DocumentKind) Dir(sessionID string) string {
	switch k {
	case KindAmendments:
		return "amendment-pdfs-" + sessionID
	case KindFiscalNotes:
		return "fiscal-note-pdfs-" + sessionID
	default:
		return "legal-note-pdfs-" + sessionID
	}
}

// Kinds lists every mirrored document kind.
func Kinds() []DocumentKind {
	return []DocumentKind{KindAmendments, KindFiscalNotes, KindLegalNotes}
}
