package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Built-in role names.
const (
	RoleQuality         = "quality"
	RoleExperience      = "experience"
	RoleUserExperience  = "user_experience"
	RoleBusiness        = "business"
	RoleTechnical       = "technical"
	RoleBusinessAdvisor = "business_advisor"
)

// RoleProfile describes a specialist. Roles are data: adding one never
// requires a code change.
type RoleProfile struct {
	Name        string   `json:"name" yaml:"name"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Focus       []string `json:"focus,omitempty" yaml:"focus"`
	Weight      float64  `json:"weight" yaml:"weight"`
	// Advisory marks profiles meant for the narrative stage rather than voting.
	Advisory bool `json:"advisory,omitempty" yaml:"advisory"`
}

// VoteWeight returns the multiplier applied to this role's votes.
func (p RoleProfile) VoteWeight() float64 {
	if p.Weight <= 0 {
		return 1
	}
	return p.Weight
}

// RoleCatalog is a named set of role profiles. The zero value is empty and
// ready to use.
type RoleCatalog struct {
	profiles map[string]RoleProfile
}

// NewRoleCatalog builds a catalog from profiles; later entries replace
// earlier ones with the same name.
func NewRoleCatalog(profiles ...RoleProfile) *RoleCatalog {
	c := &RoleCatalog{profiles: make(map[string]RoleProfile, len(profiles))}
	for _, p := range profiles {
		c.Put(p)
	}
	return c
}

// DefaultRoleCatalog returns the built-in specialists.
func DefaultRoleCatalog() *RoleCatalog {
	return NewRoleCatalog(
		RoleProfile{
			Name:        RoleQuality,
			Title:       "Product Quality Specialist",
			Description: "Judges how the product itself performs: build quality, durability, defects and whether it works as described.",
			Focus:       []string{"quality", "durability", "defects", "materials", "performance", "broken", "works"},
			Weight:      1,
		},
		RoleProfile{
			Name:        RoleExperience,
			Title:       "Customer Experience Specialist",
			Description: "Judges the service around the product: support, delivery, returns and how the customer was treated.",
			Focus:       []string{"service", "support", "delivery", "shipping", "refund", "staff", "helpful"},
			Weight:      1,
		},
		RoleProfile{
			Name:        RoleUserExperience,
			Title:       "User Experience Specialist",
			Description: "Judges usability and emotional response: ease of use, setup and the feelings the author expresses.",
			Focus:       []string{"easy", "intuitive", "confusing", "setup", "love", "hate", "frustrating"},
			Weight:      1,
		},
		RoleProfile{
			Name:        RoleBusiness,
			Title:       "Business Analyst",
			Description: "Judges commercial signals: value for money, pricing, loyalty and likelihood to recommend or churn.",
			Focus:       []string{"price", "value", "expensive", "cheap", "recommend", "buy again", "worth"},
			Weight:      1,
		},
		RoleProfile{
			Name:        RoleTechnical,
			Title:       "Technical Specialist",
			Description: "Judges technical claims: specifications, compatibility, reliability and software behaviour.",
			Focus:       []string{"battery", "software", "update", "compatible", "specs", "crash", "reliable"},
			Weight:      1,
		},
		RoleProfile{
			Name:        RoleBusinessAdvisor,
			Title:       "Business Advisor",
			Description: "Turns the panel's consensus into a short narrative and concrete recommendations for the business.",
			Weight:      1,
			Advisory:    true,
		},
	)
}

// Put adds or replaces a profile.
func (c *RoleCatalog) Put(p RoleProfile) {
	if c.profiles == nil {
		c.profiles = make(map[string]RoleProfile)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Weight <= 0 {
		p.Weight = 1
	}
	if p.Title == "" {
		p.Title = p.Name
	}
	c.profiles[p.Name] = p
}

// Get returns the profile registered under name.
func (c *RoleCatalog) Get(name string) (RoleProfile, bool) {
	if c == nil {
		return RoleProfile{}, false
	}
	p, ok := c.profiles[name]
	return p, ok
}

// Names returns every registered role name, sorted.
func (c *RoleCatalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.profiles))
	for n := range c.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Profiles returns every profile, sorted by name.
func (c *RoleCatalog) Profiles() []RoleProfile {
	names := c.Names()
	out := make([]RoleProfile, len(names))
	for i, n := range names {
		out[i] = c.profiles[n]
	}
	return out
}

// Merge returns a new catalog holding c's profiles overridden by other's.
func (c *RoleCatalog) Merge(other *RoleCatalog) *RoleCatalog {
	merged := NewRoleCatalog(c.Profiles()...)
	for _, p := range other.Profiles() {
		merged.Put(p)
	}
	return merged
}

// Resolve returns the profiles for names in the given order. Unknown names
// produce a validation error that suggests the closest known roles.
func (c *RoleCatalog) Resolve(names []string) ([]RoleProfile, error) {
	out := make([]RoleProfile, 0, len(names))
	var unknown []string
	for _, n := range names {
		p, ok := c.Get(strings.TrimSpace(n))
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, p)
	}
	if len(unknown) == 0 {
		return out, nil
	}

	msg := fmt.Sprintf("unknown role(s): %s", strings.Join(unknown, ", "))
	err := ErrValidation(CodeUnknownRole, msg).WithDetail("unknown", unknown)
	if hints := c.Suggest(unknown[0]); len(hints) > 0 {
		err.Message = fmt.Sprintf("%s (did you mean %s?)", msg, strings.Join(hints, ", "))
		err.WithDetail("suggestions", hints)
	}
	return nil, err
}

// Suggest returns up to three known role names that fuzzily match name.
func (c *RoleCatalog) Suggest(name string) []string {
	matches := fuzzy.Find(strings.ToLower(name), c.Names())
	out := make([]string, 0, 3)
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) == 3 {
			break
		}
	}
	return out
}
