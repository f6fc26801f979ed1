package recommend

import (
	"strings"
	"text/template"
)

var promptTmpl = template.Must(template.New("prompt").Parse(
	`Recommend places near "{{.Source}}" within a budget of {{.Budget}} rupees.
Respond only with a JSON array in this format:

[
  {
    "place": "Place name",
    "description": "Brief description of the place",
    "transportation": "Transportation options from {{.Source}}"
  }
]

Example for Pune:

[
  {
    "place": "Lonavala",
    "description": "Hill station known for its views and street food.",
    "transportation": "Bus from Pune to Lonavala (about ₹100-150), or a one hour drive."
  },
  {
    "place": "Pavana Lake",
    "description": "Lake surrounded by greenery, good for picnics and boating.",
    "transportation": "Bus to Lonavala then an auto to the lake (about ₹150-200), or a 40 minute drive."
  }
]
`))

// BuildPrompt renders the generator prompt for source and budget.
func BuildPrompt(source, budget string) string {
	var b strings.Builder
	// strings.Builder writes never fail
	_ = promptTmpl.Execute(&b, struct{ Source, Budget string }{source, budget})
	return b.String()
}
