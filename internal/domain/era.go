package domain

// SurpriseEraID selects a scenario invented by the text model at submission.
const SurpriseEraID = "random_surprise"

// Era is one entry of the catalog offered to the user.
type Era struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Directive   string `yaml:"directive,omitempty" json:"-"`
}

func (e Era) IsSurprise() bool {
	return e.ID == SurpriseEraID
}

// Scenario is the resolved scene a generation is submitted with.
type Scenario struct {
	Title            string `json:"name"`
	ShortDescription string `json:"description"`
	VisualDirective  string `json:"promptSuffix"`
}

// FallbackScenario is used when scenario invention fails or returns garbage.
var FallbackScenario = Scenario{
	Title:            "The Unknown",
	ShortDescription: "Time Vortex",
	VisualDirective:  "floating in a swirling vortex of clocks and starlight, looking amazed at the fabric of space-time. Expression: Awe and wonder. Surreal digital art style.",
}
