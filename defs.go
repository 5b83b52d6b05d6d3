package facs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed data/au_definitions.json
var auDefinitionsFile []byte

//go:embed data/emotion_definitions.json
var emotionDefinitionsFile []byte

// AUDefinition describes a single FACS action unit: its canonical name,
// the muscle group driving it and the landmark indices it involves.
type AUDefinition struct {
	Number        int    `json:"number"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	MuscularBasis string `json:"muscular_basis"`
	Landmarks     []int  `json:"landmarks"`
}

// EmotionDefinition maps a prototypical emotion onto the action units
// that express it. Required units carry most of the evidence, optional
// units only sharpen the confidence.
type EmotionDefinition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	RequiredAUs []int   `json:"required_aus"`
	OptionalAUs []int   `json:"optional_aus"`
	Valence     float64 `json:"valence"`
	Arousal     float64 `json:"arousal"`

	// Unilateral marks expressions that are characteristically one-sided,
	// like the contempt smirk. They only match on asymmetric activations.
	Unilateral bool `json:"unilateral"`
}

var (
	auDefinitions      map[int]AUDefinition
	emotionDefinitions []EmotionDefinition
	definedAUs         []int
)

func init() {
	var auFile struct {
		ActionUnits []AUDefinition `json:"action_units"`
	}
	if err := json.Unmarshal(auDefinitionsFile, &auFile); err != nil {
		panic(fmt.Sprintf("facs: corrupt action unit definitions: %v", err))
	}
	auDefinitions = make(map[int]AUDefinition, len(auFile.ActionUnits))
	for _, def := range auFile.ActionUnits {
		auDefinitions[def.Number] = def
	}
	definedAUs = make([]int, 0, len(auDefinitions))
	for au := range auDefinitions {
		definedAUs = append(definedAUs, au)
	}
	sort.Ints(definedAUs)

	var emoFile struct {
		Emotions []EmotionDefinition `json:"emotions"`
	}
	if err := json.Unmarshal(emotionDefinitionsFile, &emoFile); err != nil {
		panic(fmt.Sprintf("facs: corrupt emotion definitions: %v", err))
	}
	emotionDefinitions = emoFile.Emotions
}

// DefinitionOf returns the definition of a single action unit.
func DefinitionOf(au int) (AUDefinition, bool) {
	def, ok := auDefinitions[au]
	return def, ok
}

// DefinedAUs returns the numbers of all known action units in ascending order.
func DefinedAUs() []int {
	out := make([]int, len(definedAUs))
	copy(out, definedAUs)
	return out
}

// EmotionDefinitions returns the prototype definitions of all known emotions.
func EmotionDefinitions() []EmotionDefinition {
	out := make([]EmotionDefinition, len(emotionDefinitions))
	copy(out, emotionDefinitions)
	return out
}
