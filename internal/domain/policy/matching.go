package policy

import (
	"strings"

	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// AttachmentSatisfies reports whether an attachment name satisfies a required
// document name. Matching is deliberately loose: case-insensitive substring,
// so a requirement "Quotation" is met by "Q4 Quotation Draft.pdf". Resubmission
// gating depends on this rule; do not tighten it to exact match.
func AttachmentSatisfies(attachmentName, requiredName string) bool {
	return strings.Contains(strings.ToLower(attachmentName), strings.ToLower(requiredName))
}

// MissingDocs returns the required names not satisfied by any attachment,
// preserving the order of required.
func MissingDocs(required []string, attachments []entity.Attachment) []string {
	missing := make([]string, 0)
	for _, name := range required {
		if !anySatisfies(attachments, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func anySatisfies(attachments []entity.Attachment, requiredName string) bool {
	for _, att := range attachments {
		if AttachmentSatisfies(att.Name, requiredName) {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
