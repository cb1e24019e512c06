package models

type Persona struct {
	ID      int               `json:"id"`
	Name    string            `json:"name"`
	Details map[string]string `json:"details"`
}

type PersonaSummary struct {
	PersonaName      string `json:"persona_name"`
	MainFindings     string `json:"main_findings"`
	MainImplications string `json:"main_implications"`
}

func (p Persona) Clone() Persona {
	out := p
	if p.Details != nil {
		out.Details = make(map[string]string, len(p.Details))
		for k, v := range p.Details {
			out.Details[k] = v
		}
	}
	return out
}
