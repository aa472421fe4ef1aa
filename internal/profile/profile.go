// Package profile holds the applicant's static answers: identity, work
// authorization, preferences, availability, salary and education. Questions
// that mention one of these categories get the matching section as context.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type SelfIdentification struct {
	Gender     string `yaml:"gender"`
	Pronouns   string `yaml:"pronouns"`
	Veteran    string `yaml:"veteran"`
	Disability string `yaml:"disability"`
	Ethnicity  string `yaml:"ethnicity"`
}

type LegalAuthorization struct {
	EUWorkAuthorization      string `yaml:"eu_work_authorization"`
	USWorkAuthorization      string `yaml:"us_work_authorization"`
	RequiresUSVisa           string `yaml:"requires_us_visa"`
	LegallyAllowedToWorkInUS string `yaml:"legally_allowed_to_work_in_us"`
	RequiresUSSponsorship    string `yaml:"requires_us_sponsorship"`
	RequiresEUVisa           string `yaml:"requires_eu_visa"`
	LegallyAllowedToWorkInEU string `yaml:"legally_allowed_to_work_in_eu"`
	RequiresEUSponsorship    string `yaml:"requires_eu_sponsorship"`
}

type WorkPreferences struct {
	RemoteWork                       string `yaml:"remote_work"`
	InPersonWork                     string `yaml:"in_person_work"`
	OpenToRelocation                 string `yaml:"open_to_relocation"`
	WillingToCompleteAssessments     string `yaml:"willing_to_complete_assessments"`
	WillingToUndergoDrugTests        string `yaml:"willing_to_undergo_drug_tests"`
	WillingToUndergoBackgroundChecks string `yaml:"willing_to_undergo_background_checks"`
}

type Availability struct {
	NoticePeriod string `yaml:"notice_period"`
}

type SalaryExpectations struct {
	SalaryRangeUSD string `yaml:"salary_range_usd"`
}

type Education struct {
	Degree         string            `yaml:"degree"`
	University     string            `yaml:"university"`
	GPA            string            `yaml:"gpa"`
	GraduationYear string            `yaml:"graduation_year"`
	FieldOfStudy   string            `yaml:"field_of_study"`
	Exam           map[string]string `yaml:"exam,omitempty"`
}

// Profile is the parsed profile file.
type Profile struct {
	SelfIdentification SelfIdentification `yaml:"self_identification"`
	LegalAuthorization LegalAuthorization `yaml:"legal_authorization"`
	WorkPreferences    WorkPreferences    `yaml:"work_preferences"`
	Availability       Availability       `yaml:"availability"`
	SalaryExpectations SalaryExpectations `yaml:"salary_expectations"`
	EducationDetails   []Education        `yaml:"education_details"`
}

// Load reads and parses the profile at path. Unknown keys are rejected so
// that typos do not silently drop answers.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a profile document.
func Parse(data []byte) (*Profile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("profile is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &p, nil
}

type category struct {
	name    string
	pattern *regexp.Regexp
	section func(*Profile) interface{}
}

// Keywords are matched at a word start, so "relocat" covers relocate and relocation.
var categories = []category{
	{
		name:    "self_identification",
		pattern: keywords("self identification", "self_identification", "gender", "pronoun", "veteran", "disabilit", "ethnicity", "race", "hispanic", "latino"),
		section: func(p *Profile) interface{} { return p.SelfIdentification },
	},
	{
		name:    "legal_authorization",
		pattern: keywords("legal authorization", "legal_authorization", "legally", "authorized to work", "authorised to work", "work authorization", "sponsorship", "visa", "citizen"),
		section: func(p *Profile) interface{} { return p.LegalAuthorization },
	},
	{
		name:    "work_preferences",
		pattern: keywords("work preferences", "work_preferences", "remote", "in person", "in-person", "on-site", "onsite", "hybrid", "relocat", "commut", "assessment", "drug test", "background check"),
		section: func(p *Profile) interface{} { return p.WorkPreferences },
	},
	{
		name:    "availability",
		pattern: keywords("availability", "notice period", "available to start", "start date", "how soon"),
		section: func(p *Profile) interface{} { return p.Availability },
	},
	{
		name:    "salary_expectations",
		pattern: keywords("salary", "compensation", "pay expectation", "expected pay", "desired pay", "rate expectation"),
		section: func(p *Profile) interface{} { return p.SalaryExpectations },
	},
	{
		name:    "education_details",
		pattern: keywords("education", "degree", "bachelor", "master", "gpa", "university", "college", "graduat", "field of study"),
		section: func(p *Profile) interface{} { return p.EducationDetails },
	},
}

func keywords(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)`)
}

// Match returns the first profile category the question refers to and that
// section rendered as YAML. ok is false when no category applies.
func (p *Profile) Match(question string) (name, section string, ok bool) {
	if p == nil {
		return "", "", false
	}
	for _, c := range categories {
		if !c.pattern.MatchString(question) {
			continue
		}
		out, err := yaml.Marshal(c.section(p))
		if err != nil {
			return "", "", false
		}
		return c.name, strings.TrimSpace(string(out)), true
	}
	return "", "", false
}

// String renders the whole profile as YAML.
func (p *Profile) String() string {
	out, err := yaml.Marshal(p)
	if err != nil {
		return ""
	}
	return string(out)
}
