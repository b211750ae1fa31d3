package models

// Category classifies the medical content of a record.
type Category string

const (
	CategoryLabResults   Category = "lab_results"
	CategoryImaging      Category = "imaging"
	CategoryPrescription Category = "prescription"
	CategoryDiagnosis    Category = "diagnosis"
	CategoryGenomic      Category = "genomic"
	CategoryVitals       Category = "vitals"
	CategoryImmunization Category = "immunization"
	CategorySurgery      Category = "surgery"
	CategoryOther        Category = "other"
)

// ValidCategories is the single source of truth for record categories.
var ValidCategories = map[Category]bool{
	CategoryLabResults:   true,
	CategoryImaging:      true,
	CategoryPrescription: true,
	CategoryDiagnosis:    true,
	CategoryGenomic:      true,
	CategoryVitals:       true,
	CategoryImmunization: true,
	CategorySurgery:      true,
	CategoryOther:        true,
}

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	return ValidCategories[c]
}

// Format names the wire format of the stored payload.
type Format string

const (
	FormatFHIR  Format = "fhir"
	FormatDICOM Format = "dicom"
	FormatHL7   Format = "hl7"
	FormatJSON  Format = "json"
	FormatPDF   Format = "pdf"
	FormatOther Format = "other"
)

// IsValid checks if the format is one of the supported enum values.
func (f Format) IsValid() bool {
	switch f {
	case FormatFHIR, FormatDICOM, FormatHL7, FormatJSON, FormatPDF, FormatOther:
		return true
	}
	return false
}
