// Package domain defines the answer schema, its closed enumerations, the
// error taxonomy, and validation for the regulatory decision-support service.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decision is the proposed fitness orientation, a closed enumeration.
type Decision string

const (
	DecisionApte            Decision = "apte"
	DecisionApteTemporaire  Decision = "apte_temporaire"
	DecisionApteRestriction Decision = "apte_avec_restrictions"
	DecisionInapte          Decision = "inapte"
	DecisionRenvoi          Decision = "renvoi_commission"
)

// ValidDecisions is the set of recognised orientation decisions.
var ValidDecisions = map[Decision]bool{
	DecisionApte: true, DecisionApteTemporaire: true, DecisionApteRestriction: true,
	DecisionInapte: true, DecisionRenvoi: true,
}

// LicenceGroup identifies which licence group a regulatory point applies to.
type LicenceGroup string

const (
	GroupLeger   LicenceGroup = "léger"
	GroupLourd   LicenceGroup = "lourd"
	GroupLesDeux LicenceGroup = "les deux"
)

// ValidLicenceGroups is the set of recognised licence groups.
var ValidLicenceGroups = map[LicenceGroup]bool{
	GroupLeger: true, GroupLourd: true, GroupLesDeux: true,
}

// RegulatoryPoint is one applicable rule extracted by the model.
type RegulatoryPoint struct {
	Rule          string       `json:"rule"`
	Group         LicenceGroup `json:"group"`
	Compatibility string       `json:"compatibility"`
	Conditions    *string      `json:"conditions"`
	Duration      *string      `json:"duration"`
}

// ProposedOrientation is the model's suggested fitness decision.
type ProposedOrientation struct {
	Decision          Decision `json:"decision"`
	Label             string   `json:"label"`
	SuggestedDuration *string  `json:"suggested_duration"`
	Restrictions      *string  `json:"restrictions"`
	Justification     string   `json:"justification"`
}

// Answer is the structured decision-support answer produced by generation.
type Answer struct {
	CaseAnalysis           string              `json:"case_analysis"`
	RegulatoryFramework    string              `json:"regulatory_framework"`
	RegulatoryPoints       []RegulatoryPoint   `json:"regulatory_points"`
	MedicalReasoning       string              `json:"medical_reasoning"`
	ClarificationQuestions []string            `json:"clarification_questions"`
	ProposedOrientation    ProposedOrientation `json:"proposed_orientation"`
	ImportantNotes         []string            `json:"important_notes"`
	Disclaimer             string              `json:"disclaimer"`
}

// SourceReference is a citation backing the answer, in ranking order.
type SourceReference struct {
	SourceNumber int     `json:"source_number"`
	ChunkID      string  `json:"chunk_id"`
	Excerpt      string  `json:"excerpt"`
	Similarity   float64 `json:"similarity"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	ChunksUsed int    `json:"chunks_used"`
	Model      string `json:"model"`
	Timestamp  string `json:"timestamp"`
}

// Response is the full payload returned for one question.
type Response struct {
	Answer   Answer            `json:"answer"`
	Sources  []SourceReference `json:"sources"`
	Metadata Metadata          `json:"metadata"`
}

// ParseAnswer decodes a generation payload strictly against the Answer
// schema. The payload is untrusted: unknown fields, type mismatches, and
// values outside the closed enumerations are rejected with a SchemaError
// rather than coerced.
func ParseAnswer(raw []byte) (*Answer, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &SchemaError{Reason: "empty generation payload"}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var a Answer
	if err := dec.Decode(&a); err != nil {
		return nil, &SchemaError{Reason: "malformed answer JSON", Err: err}
	}

	if !ValidDecisions[a.ProposedOrientation.Decision] {
		return nil, &SchemaError{
			Reason: fmt.Sprintf("unknown orientation decision %q", a.ProposedOrientation.Decision),
		}
	}
	for i, p := range a.RegulatoryPoints {
		if !ValidLicenceGroups[p.Group] {
			return nil, &SchemaError{
				Reason: fmt.Sprintf("regulatory_points[%d]: unknown group %q", i, p.Group),
			}
		}
	}

	// Normalize nil arrays so encoded responses always carry [].
	if a.RegulatoryPoints == nil {
		a.RegulatoryPoints = []RegulatoryPoint{}
	}
	if a.ClarificationQuestions == nil {
		a.ClarificationQuestions = []string{}
	}
	if a.ImportantNotes == nil {
		a.ImportantNotes = []string{}
	}
	return &a, nil
}
