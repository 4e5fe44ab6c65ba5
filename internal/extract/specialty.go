// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"

	"github.com/pdiddy/medai-miner/pkg/types"
)

// SpecialtyRule lists the terms that assign a specialty. MeSHTerms are
// indexing vocabulary; AdditionalTerms are looser phrasing seen in titles and
// abstracts. Terms are lower case and match anywhere in the text, so stems
// such as "radiolog" also find "neuroradiology".
type SpecialtyRule struct {
	Specialty       types.Specialty
	MeSHTerms       []string
	AdditionalTerms []string

	re *regexp.Regexp
}

// acronymTerms only match as whole words (with an optional plural "s"):
// "icu" appears inside "particular".
var acronymTerms = map[string]bool{
	"mri": true, "ecg": true, "ekg": true, "eeg": true, "icu": true,
	"copd": true, "ptsd": true, "h&e": true,
}

// wordStartTerms only match at the start of a word: "liver" appears inside
// "delivery", "renal" inside "adrenal" and "ct scan" inside "fact scan".
var wordStartTerms = map[string]bool{
	"liver": true, "renal": true, "ct scan": true, "pet/ct": true, "hba1c": true,
}

// Matches reports whether any term of the rule occurs in lowered text.
func (r SpecialtyRule) Matches(lowered string) bool {
	return r.re.MatchString(lowered)
}

func specialtyRule(s types.Specialty, mesh, additional []string) SpecialtyRule {
	var anywhere, wordStart, whole []string
	for _, t := range append(append([]string{}, mesh...), additional...) {
		q := regexp.QuoteMeta(t)
		switch {
		case acronymTerms[t]:
			whole = append(whole, q)
		case wordStartTerms[t]:
			wordStart = append(wordStart, q)
		default:
			anywhere = append(anywhere, q)
		}
	}

	var alts []string
	if len(anywhere) > 0 {
		alts = append(alts, `(?:`+strings.Join(anywhere, "|")+`)`)
	}
	if len(wordStart) > 0 {
		alts = append(alts, `\b(?:`+strings.Join(wordStart, "|")+`)`)
	}
	if len(whole) > 0 {
		alts = append(alts, `\b(?:`+strings.Join(whole, "|")+`)s?\b`)
	}
	return SpecialtyRule{
		Specialty:       s,
		MeSHTerms:       mesh,
		AdditionalTerms: additional,
		re:              regexp.MustCompile(strings.Join(alts, "|")),
	}
}

// specialtyRules is evaluated top to bottom; the first rule with a matching
// term wins. Imaging comes first so that "chest x-ray" resolves to Radiology
// rather than Pulmonology. Organ specialties precede Oncology.
var specialtyRules = []SpecialtyRule{
	specialtyRule(types.SpecialtyRadiology,
		[]string{"radiology", "radiography", "diagnostic imaging", "tomography, x-ray computed", "magnetic resonance imaging", "mammography", "ultrasonography", "positron-emission tomography"},
		[]string{"radiolog", "x-ray", "xray", "chest radiograph", "radiograph", "computed tomography", "ct scan", "mri", "pet/ct", "ultrasound", "mammogra", "fluoroscop"},
	),
	specialtyRule(types.SpecialtyCardiology,
		[]string{"cardiology", "heart diseases", "electrocardiography", "echocardiography", "atrial fibrillation", "myocardial infarction", "heart failure", "arrhythmias, cardiac"},
		[]string{"cardiac", "cardio", "ecg", "ekg", "heart", "coronary", "arrhythmi", "echocardiogra"},
	),
	specialtyRule(types.SpecialtyPulmonology,
		[]string{"pulmonary medicine", "lung diseases", "pneumonia", "pulmonary disease, chronic obstructive", "asthma", "respiratory insufficiency", "covid-19"},
		[]string{"pulmonar", "lung", "respirator", "copd", "spirometr", "tuberculosis", "pneumothorax"},
	),
	specialtyRule(types.SpecialtyOphthalmology,
		[]string{"ophthalmology", "diabetic retinopathy", "glaucoma", "macular degeneration", "retina"},
		[]string{"ophthalm", "retinal", "fundus", "optical coherence tomography", "oct image", "eye disease", "cataract"},
	),
	specialtyRule(types.SpecialtyDermatology,
		[]string{"dermatology", "skin diseases", "melanoma", "skin neoplasms"},
		[]string{"dermato", "dermoscop", "skin lesion", "skin cancer", "psoriasis", "eczema"},
	),
	specialtyRule(types.SpecialtyPathology,
		[]string{"pathology", "histology", "cytology", "biopsy"},
		[]string{"histopatholog", "patholog", "whole slide", "whole-slide", "h&e", "cytopatholog", "microscop"},
	),
	specialtyRule(types.SpecialtyNeurology,
		[]string{"neurology", "alzheimer disease", "parkinson disease", "epilepsy", "stroke", "multiple sclerosis", "dementia"},
		[]string{"neurolog", "neurodegenera", "neuroimag", "brain", "alzheimer", "parkinson", "seizure", "eeg", "cognitive impairment"},
	),
	specialtyRule(types.SpecialtyOncology,
		[]string{"medical oncology", "neoplasms", "carcinoma", "lymphoma", "leukemia", "tumor"},
		[]string{"oncolog", "cancer", "tumour", "malignan", "metasta", "chemotherap", "radiotherap"},
	),
	specialtyRule(types.SpecialtyGastroenterology,
		[]string{"gastroenterology", "endoscopy", "colonoscopy", "inflammatory bowel diseases", "liver diseases"},
		[]string{"gastro", "colorectal polyp", "polyp", "hepat", "liver", "bowel", "esophag", "pancrea"},
	),
	specialtyRule(types.SpecialtyPsychiatry,
		[]string{"psychiatry", "depressive disorder", "schizophrenia", "bipolar disorder", "anxiety disorders", "mental disorders"},
		[]string{"psychiatr", "mental health", "depression", "suicid", "psycholog", "ptsd", "autism"},
	),
	specialtyRule(types.SpecialtyEndocrinology,
		[]string{"endocrinology", "diabetes mellitus", "thyroid diseases", "obesity"},
		[]string{"endocrin", "diabet", "insulin", "glucose", "thyroid", "hba1c"},
	),
	specialtyRule(types.SpecialtyNephrology,
		[]string{"nephrology", "kidney diseases", "renal insufficiency", "acute kidney injury", "renal dialysis"},
		[]string{"nephro", "kidney", "renal", "dialysis", "glomerul"},
	),
	specialtyRule(types.SpecialtyObstetrics,
		[]string{"obstetrics", "gynecology", "pregnancy", "prenatal diagnosis", "cervical intraepithelial neoplasia"},
		[]string{"obstetric", "gynecolog", "gynaecolog", "pregnan", "fetal", "foetal", "prenatal", "maternal", "cervical cytology"},
	),
	specialtyRule(types.SpecialtyPediatrics,
		[]string{"pediatrics", "infant, newborn", "child"},
		[]string{"pediatric", "paediatric", "neonat", "newborn", "infant", "children", "adolescen"},
	),
	specialtyRule(types.SpecialtyEmergency,
		[]string{"emergency medicine", "emergency service, hospital", "triage", "sepsis", "critical care"},
		[]string{"emergency department", "emergency room", "intensive care", "icu", "trauma", "resuscitat"},
	),
}

// SpecialtyRules returns a copy of the ordered rule table.
func SpecialtyRules() []SpecialtyRule {
	out := make([]SpecialtyRule, len(specialtyRules))
	copy(out, specialtyRules)
	return out
}

// Specialty assigns a clinical specialty from the title and abstract.
// It returns types.SpecialtyOther when no rule matches.
func Specialty(title, abstractText string) types.Specialty {
	lowered := strings.ToLower(title + " " + abstractText)
	for _, r := range specialtyRules {
		if r.Matches(lowered) {
			return r.Specialty
		}
	}
	return types.SpecialtyOther
}
