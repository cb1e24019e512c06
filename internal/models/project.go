package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ProductService struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	TargetAudience string `json:"target_audience" yaml:"target_audience"`
	Benefits       string `json:"benefits" yaml:"benefits"`
	BenefitReason  string `json:"benefit_reason" yaml:"benefit_reason"`
	BasicInfo      string `json:"basic_info" yaml:"basic_info"`
}

type Competitor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Price       string `json:"price,omitempty" yaml:"price,omitempty"`
	Features    string `json:"features,omitempty" yaml:"features,omitempty"`
}

type ProjectInfo struct {
	Topic            string           `json:"topic" yaml:"topic"`
	ProductsServices []ProductService `json:"products_services" yaml:"products_services"`
	Competitors      []Competitor     `json:"competitors" yaml:"competitors"`
}

// NewProductService returns an empty product with a fresh ID.
func NewProductService() ProductService {
	return ProductService{ID: uuid.New().String()}
}

// EnsureIDs assigns an ID to every product that lacks one. Duplicate IDs are
// replaced so IDs stay unique within the project.
func (p *ProjectInfo) EnsureIDs() {
	seen := make(map[string]bool, len(p.ProductsServices))
	for i := range p.ProductsServices {
		id := strings.TrimSpace(p.ProductsServices[i].ID)
		if id == "" || seen[id] {
			id = uuid.New().String()
		}
		p.ProductsServices[i].ID = id
		seen[id] = true
	}
}

// MissingFields lists every required field that is blank, in form order.
// An empty result means the project may be sent for persona generation.
func (p ProjectInfo) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.Topic) == "" {
		missing = append(missing, "topic")
	}
	if len(p.ProductsServices) == 0 {
		missing = append(missing, "products_services")
	}
	for i, ps := range p.ProductsServices {
		fields := []struct {
			name  string
			value string
		}{
			{"name", ps.Name},
			{"target_audience", ps.TargetAudience},
			{"benefits", ps.Benefits},
			{"benefit_reason", ps.BenefitReason},
			{"basic_info", ps.BasicInfo},
		}
		for _, f := range fields {
			if strings.TrimSpace(f.value) == "" {
				missing = append(missing, fmt.Sprintf("products_services[%d].%s", i, f.name))
			}
		}
	}
	for i, c := range p.Competitors {
		if strings.TrimSpace(c.Name) == "" {
			missing = append(missing, fmt.Sprintf("competitors[%d].name", i))
		}
	}
	return missing
}

// Clone returns a deep copy.
func (p ProjectInfo) Clone() ProjectInfo {
	out := ProjectInfo{Topic: p.Topic}
	if p.ProductsServices != nil {
		out.ProductsServices = append([]ProductService(nil), p.ProductsServices...)
	}
	if p.Competitors != nil {
		out.Competitors = append([]Competitor(nil), p.Competitors...)
	}
	return out
}
