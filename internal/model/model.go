// Package model defines the batch and document entities shared by the
// state store, the HTTP API, and the export code.
package model

import "time"

// BatchType distinguishes built-in document schemas from user-defined ones.
type BatchType string

const (
	BatchPretrained BatchType = "pretrained"
	BatchCustom     BatchType = "custom"
)

// ExtractionModel selects which mock model label a batch is processed with.
type ExtractionModel string

const (
	ModelFlagship ExtractionModel = "flagship"
	ModelLocal    ExtractionModel = "local"
)

// ProcessingMethod selects how a custom batch describes its schema.
type ProcessingMethod string

const (
	MethodStructure ProcessingMethod = "structure"
	MethodPrompt    ProcessingMethod = "prompt"
)

// DocumentStatus is monotonic: processing -> completed, never back.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
)

// FieldType is the declared data type of a user-defined extraction field.
type FieldType string

const (
	FieldAutoDetect FieldType = "Auto Detect"
	FieldString     FieldType = "String"
	FieldNumber     FieldType = "Number"
	FieldDate       FieldType = "Date"
	FieldBoolean    FieldType = "Boolean"
	FieldCurrency   FieldType = "Currency"
	FieldEmail      FieldType = "Email"
	FieldPhone      FieldType = "Phone"
	FieldAddress    FieldType = "Address"
	FieldPercent    FieldType = "Percentage"
)

// FieldTypes lists every selectable field data type, in display order.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldAutoDetect, FieldString, FieldNumber, FieldDate, FieldBoolean,
		FieldCurrency, FieldEmail, FieldPhone, FieldAddress, FieldPercent,
	}
}

// User is the logged-in session marker. Zero or one exists at a time.
type User struct {
	Email string `json:"email"`
}

// CustomField is one entry of a structure-method schema.
type CustomField struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Batch is one processing job: a named set of documents sharing a single
// extraction configuration.
//
// Invariant: when Type is custom, exactly one of CustomFields/CustomPrompt is
// populated, selected by ProcessingMethod; when pretrained, neither is.
type Batch struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Type             BatchType        `json:"type"`
	DocumentType     string           `json:"documentType"`
	Model            ExtractionModel  `json:"model"`
	ProcessingMethod ProcessingMethod `json:"processingMethod,omitempty"`
	CustomFields     []CustomField    `json:"customFields,omitempty"`
	CustomPrompt     string           `json:"customPrompt,omitempty"`
	Documents        []Document       `json:"documents"`
	CreatedDate      time.Time        `json:"createdDate"`
	ModifiedDate     time.Time        `json:"modifiedDate"`
}

// Document is one file within a batch. Documents are exclusively owned by
// their batch; deleting the batch deletes them.
type Document struct {
	ID            string            `json:"id"`
	Filename      string            `json:"filename"`
	FileType      string            `json:"fileType"`
	FileSize      int64             `json:"fileSize"`
	Status        DocumentStatus    `json:"status"`
	UploadDate    time.Time         `json:"uploadDate"`
	ProcessedDate *time.Time        `json:"processedDate"`
	ExtractedData *ExtractionResult `json:"extractedData"`
	DocumentType  string            `json:"documentType"`
}

// BatchStats summarizes document progress for list views.
type BatchStats struct {
	Total      int `json:"total"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
}

// Stats counts documents by status.
func (b Batch) Stats() BatchStats {
	s := BatchStats{Total: len(b.Documents)}
	for _, d := range b.Documents {
		switch d.Status {
		case StatusProcessing:
			s.Processing++
		case StatusCompleted:
			s.Completed++
		}
	}
	return s
}

// DocumentByID returns the index of the document with the given id, or -1.
func (b Batch) DocumentByID(id string) int {
	for i, d := range b.Documents {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can hand out batches without
// exposing the store's internal slices.
func (b Batch) Clone() Batch {
	out := b
	if b.CustomFields != nil {
		out.CustomFields = make([]CustomField, len(b.CustomFields))
		copy(out.CustomFields, b.CustomFields)
	}
	if b.Documents != nil {
		out.Documents = make([]Document, len(b.Documents))
		for i, d := range b.Documents {
			out.Documents[i] = d.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.ProcessedDate != nil {
		t := *d.ProcessedDate
		out.ProcessedDate = &t
	}
	if d.ExtractedData != nil {
		r := d.ExtractedData.Clone()
		out.ExtractedData = &r
	}
	return out
}
