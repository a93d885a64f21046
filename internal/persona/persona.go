// Package persona holds the fixed set of assistant personas plus one
// user-editable custom slot. Exactly one persona is active at a time;
// switching personas never touches the conversation transcript.
package persona

// Persona is a named system-prompt template conditioning the model's
// response style.
type Persona struct {
	Name         string
	SystemPrompt string
}

// CustomName is the reserved name of the user-editable persona slot.
const CustomName = "Custom"

// DefaultName is the persona active at the start of a session.
const DefaultName = "Friendly Study Buddy"

var builtins = []Persona{
	{
		Name:         "Friendly Study Buddy",
		SystemPrompt: "You are a friendly and knowledgeable study buddy. Your goal is to help users understand complex topics in a simple, clear, and encouraging way.",
	},
	{
		Name:         "Python Code Expert",
		SystemPrompt: "You are an expert Python programmer. Provide clean, efficient, and well-commented code examples. Explain concepts like data structures, algorithms, and best practices.",
	},
	{
		Name:         "Creative Storyteller",
		SystemPrompt: "You are a creative writer and storyteller. Your task is to help users brainstorm ideas, develop characters, and weave engaging narratives.",
	},
	{
		Name:         "Sarcastic Assistant",
		SystemPrompt: "You are a highly intelligent but sarcastic assistant. You answer questions correctly, but with a witty, cynical, and humorous edge.",
	},
	{
		Name:         "Explain Like I'm 5",
		SystemPrompt: "You are an explainer who simplifies every concept, no matter how complex, as if you were talking to a five-year-old.",
	},
}

// Registry is the fixed persona set plus the mutable custom slot.
type Registry struct {
	custom string
	active string
}

// NewRegistry returns a registry with the default persona active and an
// empty custom slot.
func NewRegistry() *Registry {
	return &Registry{active: DefaultName}
}

// Names returns all persona names in selector order, the custom slot last.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(builtins)+1)
	for _, p := range builtins {
		names = append(names, p.Name)
	}
	return append(names, CustomName)
}

// Get looks up a persona by name. The custom slot returns whatever text was
// last set, verbatim. The boolean reports whether the name is known.
func (r *Registry) Get(name string) (Persona, bool) {
	if name == CustomName {
		return Persona{Name: CustomName, SystemPrompt: r.custom}, true
	}
	for _, p := range builtins {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// SetCustom overwrites the custom persona text. No validation: arbitrary
// user-supplied instruction text is accepted as-is.
func (r *Registry) SetCustom(text string) {
	r.custom = text
}

// SetActive switches the active persona. Unknown names are rejected and the
// previous persona stays active.
func (r *Registry) SetActive(name string) bool {
	if _, ok := r.Get(name); !ok {
		return false
	}
	r.active = name
	return true
}

// Active returns the currently active persona.
func (r *Registry) Active() Persona {
	p, _ := r.Get(r.active)
	return p
}
