package session

import (
	"time"

	"grantdraft/internal/ingest"
	"grantdraft/internal/prompt"
	"grantdraft/internal/proposal"
)

// AttachmentInfo describes the attachment without its payload.
type AttachmentInfo struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Snapshot is the read model of a session.
type Snapshot struct {
	ID                 string               `json:"id"`
	State              State                `json:"state"`
	Style              prompt.Style         `json:"style"`
	Agency             proposal.AgencyInfo  `json:"agency"`
	Project            proposal.ProjectInfo `json:"project"`
	Attachment         *AttachmentInfo      `json:"attachment,omitempty"`
	AttachmentRevision int                  `json:"attachmentRevision"`
	Prompt             string               `json:"prompt"`
	Result             string               `json:"result,omitempty"`
	Notice             Notice               `json:"notice"`
	UpdatedAt          time.Time            `json:"updatedAt"`

	hasTitle bool
}

// CanSubmit mirrors the enabled state of the submit control.
func (s Snapshot) CanSubmit() bool {
	return s.hasTitle && s.State != StateGenerating && s.State != StateCredentialCheck
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                 s.id,
		State:              s.state,
		Style:              s.tpl.Style,
		Agency:             s.agency,
		Project:            s.project,
		AttachmentRevision: s.fileRevision,
		Prompt:             s.prompt,
		Result:             s.result,
		Notice:             s.notice,
		UpdatedAt:          s.updatedAt,
		hasTitle:           s.hasTitleLocked(),
	}
	if s.file != nil {
		snap.Attachment = &AttachmentInfo{
			Name:     s.file.Name,
			MimeType: s.file.MimeType,
			Size:     ingest.DecodedSize(s.file),
		}
	}
	return snap
}
