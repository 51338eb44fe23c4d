package jobs

type JobType string

const (
	JobAnnouncementPublished JobType = "announcement.published"
	JobMemberStatusChanged   JobType = "member.status_changed"
	JobContentReported       JobType = "content.reported"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobAnnouncementPublished, JobMemberStatusChanged, JobContentReported:
		return true
	default:
		return false
	}
}
