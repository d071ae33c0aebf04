package domain

import "time"

// AttachmentType distinguishes downloadable files from plain links.
type AttachmentType string

const (
	AttachmentFile AttachmentType = "file"
	AttachmentLink AttachmentType = "link"
)

// Attachment is a document or link joined to homework or news.
type Attachment struct {
	Type AttachmentType
	Name string
	URL  string
}

// HomeworkReturnType describes how the work must be handed in, when the
// vendor says so.
type HomeworkReturnType string

const (
	ReturnTypeUnspecified HomeworkReturnType = ""
	ReturnTypePaper       HomeworkReturnType = "paper"
	ReturnTypeFileUpload  HomeworkReturnType = "file_upload"
)

// Homework is one assignment. Toggling Done produces a new object through the
// adapter; the core never flips the flag in place.
type Homework struct {
	ID          string
	Subject     string
	Content     string
	Due         time.Time
	Done        bool
	Attachments []Attachment
	ReturnType  HomeworkReturnType
	Exam        bool
}
