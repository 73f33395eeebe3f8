package catalog

const (
	SectionPeer     = "peer"
	SectionInternal = "internal"

	KindScale = "scale"
	KindText  = "text"

	PeriodStatusDraft  = "draft"
	PeriodStatusActive = "active"
	PeriodStatusClosed = "closed"
)

// AgreementOptionCount is the option count of the canonical agreement scale
// used by the seeded questionnaires.
const AgreementOptionCount = 4

func ValidSection(section string) bool {
	return section == SectionPeer || section == SectionInternal
}

func ValidKind(kind string) bool {
	return kind == KindScale || kind == KindText
}
