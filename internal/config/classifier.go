package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oncoassist/triage/internal/core/domain"
)

// ClassifierSettings externalizes the tunable parts of the pipeline:
// ensemble weights, keyword vocabularies and the medical term list
// used for historical insights. Loaded from YAML when a path is set,
// otherwise the built-in defaults apply.
type ClassifierSettings struct {
	Weights            EnsembleWeights              `yaml:"weights"`
	KeywordMarkers     map[domain.Category][]string `yaml:"keyword_markers"`
	MedicalTerms       []string                     `yaml:"medical_terms"`
	NeighborWindowDays int                          `yaml:"neighbor_window_days"`
}

type EnsembleWeights struct {
	Semantic   float64 `yaml:"semantic"`
	Keyword    float64 `yaml:"keyword"`
	Structural float64 `yaml:"structural"`
}

func DefaultClassifierSettings() ClassifierSettings {
	return ClassifierSettings{
		Weights: EnsembleWeights{
			Semantic:   0.7,
			Keyword:    0.2,
			Structural: 0.1,
		},
		KeywordMarkers: map[domain.Category][]string{
			domain.CategoryRadiology: {"pet", "ct", "mri", "scan", "imaging", "biopsy", "tumor", "suv", "staging", "radiology"},
			domain.CategoryBloodTest: {"hemoglobin", "platelet", "wbc", "rbc", "glucose", "lab", "cbc", "hematocrit"},
			domain.CategoryInvoice:   {"bill", "invoice", "payment", "insurance", "claim", "due", "amount"},
			domain.CategoryMedicine:  {"medication", "drug", "prescription", "dosage", "pharmacy", "tablet"},
		},
		MedicalTerms: []string{
			"hemoglobin", "hgb", "wbc", "rbc", "platelets", "hematocrit", "mcv", "mch", "mchc",
			"neutrophils", "lymphocytes", "monocytes", "eosinophils", "basophils", "anc",
			"tumor", "mass", "lesion", "neoplasm", "carcinoma", "adenocarcinoma", "sarcoma",
			"metastasis", "malignant", "benign", "oncology", "cancer", "staging", "grade",
			"ct", "mri", "pet", "scan", "imaging", "radiology", "fdg", "suvmax", "uptake",
			"contrast", "enhancement", "nodule", "opacity",
			"biopsy", "histopathology", "cytology", "ihc", "immunohistochemistry",
			"er", "pr", "her2", "ki67", "gleason", "nottingham",
			"chemotherapy", "radiation", "surgery", "treatment", "therapy", "protocol",
			"response", "remission", "progression", "stable",
			"breast", "lung", "prostate", "colon", "liver", "kidney", "brain", "bone",
			"lymph", "node", "abdomen", "pelvis", "chest", "thorax",
		},
		NeighborWindowDays: 30,
	}
}

// LoadClassifierSettings reads YAML overrides on top of the defaults.
// An empty path returns the defaults unchanged.
func LoadClassifierSettings(path string) (ClassifierSettings, error) {
	settings := DefaultClassifierSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read classifier settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse classifier settings: %w", err)
	}
	if err := settings.validate(); err != nil {
		return settings, fmt.Errorf("validate classifier settings: %w", err)
	}
	return settings, nil
}

func (s ClassifierSettings) validate() error {
	if s.Weights.Semantic <= 0 || s.Weights.Keyword <= 0 || s.Weights.Structural <= 0 {
		return fmt.Errorf("ensemble weights must be positive")
	}
	for category := range s.KeywordMarkers {
		if !category.Valid() {
			return fmt.Errorf("unknown keyword category %q", category)
		}
	}
	if s.NeighborWindowDays <= 0 {
		return fmt.Errorf("neighbor window must be positive")
	}
	return nil
}
