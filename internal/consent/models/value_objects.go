package models

// Purpose labels why a consumer may process the owner's data. Purpose
// binding allows selective revocation without affecting other flows.
type Purpose string

const (
	PurposeResearch        Purpose = "research"
	PurposeClinicalTrial   Purpose = "clinical_trial"
	PurposeTreatment       Purpose = "treatment"
	PurposeDrugDevelopment Purpose = "drug_development"
	PurposePublicHealth    Purpose = "public_health"
	PurposeMachineLearning Purpose = "machine_learning"
	PurposeOther           Purpose = "other"
)

// ValidPurposes is the single source of truth for all valid consent purposes.
var ValidPurposes = map[Purpose]bool{
	PurposeResearch:        true,
	PurposeClinicalTrial:   true,
	PurposeTreatment:       true,
	PurposeDrugDevelopment: true,
	PurposePublicHealth:    true,
	PurposeMachineLearning: true,
	PurposeOther:           true,
}

// IsValid checks if the consent purpose is one of the supported enum values.
func (p Purpose) IsValid() bool {
	return ValidPurposes[p]
}

// DataType bounds what the consent covers. DataTypeAll subsumes the rest.
type DataType string

const (
	DataTypeAll           DataType = "all"
	DataTypeLabResults    DataType = "lab_results"
	DataTypeImaging       DataType = "imaging"
	DataTypePrescriptions DataType = "prescriptions"
	DataTypeDiagnosis     DataType = "diagnosis"
	DataTypeGenomic       DataType = "genomic"
	DataTypeVitals        DataType = "vitals"
	DataTypeDemographics  DataType = "demographics"
)

// ValidDataTypes is the single source of truth for coverable data types.
var ValidDataTypes = map[DataType]bool{
	DataTypeAll:           true,
	DataTypeLabResults:    true,
	DataTypeImaging:       true,
	DataTypePrescriptions: true,
	DataTypeDiagnosis:     true,
	DataTypeGenomic:       true,
	DataTypeVitals:        true,
	DataTypeDemographics:  true,
}

// IsValid checks if the data type is one of the supported enum values.
func (d DataType) IsValid() bool {
	return ValidDataTypes[d]
}

// Status is the consent lifecycle state.
//
// Transitions: Active → Revoked (terminal, revoke only) and Active → Expired
// (lazy, flipped inside LogAccess when the expiry has passed). Nothing leaves
// Revoked; an Expired consent may still be revoked, overwriting the status.
//
// StatusPending is reserved: the enum declares it for forward compatibility
// with a propose/accept flow, but no operation produces it.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
	StatusPending Status = "pending"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusRevoked, StatusExpired, StatusPending:
		return true
	}
	return false
}
