package models

// Topic represents a topic track of the curriculum
type Topic struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	NameTranslation string   `json:"nameTranslation" yaml:"nameTranslation"`
	Icon            string   `json:"icon" yaml:"icon"`
	Description     string   `json:"description" yaml:"description"`
	Days            []string `json:"-" yaml:"days"`
}

// DictionaryTerm represents a glossary entry
type DictionaryTerm struct {
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition" yaml:"definition"`
}
