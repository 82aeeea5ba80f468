package proposal

// PDFMimeType is the only media type accepted for a reference attachment.
const PDFMimeType = "application/pdf"

// AgencyInfo identifies the applying organization.
type AgencyInfo struct {
	Name           string `json:"name" yaml:"name"`
	Representative string `json:"representative" yaml:"representative"`
	Address        string `json:"address" yaml:"address"`
	ContactPerson  string `json:"contactPerson" yaml:"contactPerson"`
	Phone          string `json:"phone" yaml:"phone"`
	Email          string `json:"email" yaml:"email"`
	FoundingDate   string `json:"foundingDate" yaml:"foundingDate"`
	MainBusiness   string `json:"mainBusiness" yaml:"mainBusiness"`
}

// ProjectInfo describes the proposal subject. Title is the only field
// required for submission; the detail fields are optional.
type ProjectInfo struct {
	Title            string `json:"title" yaml:"title"`
	Keywords         string `json:"keywords" yaml:"keywords"`
	Target           string `json:"target,omitempty" yaml:"target,omitempty"`
	ParticipantCount string `json:"participantCount,omitempty" yaml:"participantCount,omitempty"`
	Location         string `json:"location,omitempty" yaml:"location,omitempty"`
	Budget           string `json:"budget,omitempty" yaml:"budget,omitempty"`
	ProjectPeriod    string `json:"projectPeriod,omitempty" yaml:"projectPeriod,omitempty"`
}

// AttachedFile is the single reference document of a session.
// Data holds standard base64 without a data URI prefix.
type AttachedFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Form is the on-disk/wire envelope for one proposal draft request.
type Form struct {
	Agency  AgencyInfo  `json:"agency" yaml:"agency"`
	Project ProjectInfo `json:"project" yaml:"project"`
	Style   string      `json:"style,omitempty" yaml:"style,omitempty"`
}
