package jobs

import "strings"

// ValidatePayload checks that payload is the struct for t and carries its required IDs.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case JobAnnouncementPublished:
		var p AnnouncementPublishedPayload
		switch v := payload.(type) {
		case AnnouncementPublishedPayload:
			p = v
		case *AnnouncementPublishedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.AnnouncementID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobMemberStatusChanged:
		var p MemberStatusChangedPayload
		switch v := payload.(type) {
		case MemberStatusChangedPayload:
			p = v
		case *MemberStatusChangedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.UserID) == "" || trim(p.Status) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobContentReported:
		var p ContentReportedPayload
		switch v := payload.(type) {
		case ContentReportedPayload:
			p = v
		case *ContentReportedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.ReportID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
