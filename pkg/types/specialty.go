package types

// Specialty is a clinical specialty from the fixed enumerated set.
type Specialty string

const (
	SpecialtyRadiology        Specialty = "Radiology"
	SpecialtyCardiology       Specialty = "Cardiology"
	SpecialtyPulmonology      Specialty = "Pulmonology"
	SpecialtyOncology         Specialty = "Oncology"
	SpecialtyNeurology        Specialty = "Neurology"
	SpecialtyOphthalmology    Specialty = "Ophthalmology"
	SpecialtyDermatology      Specialty = "Dermatology"
	SpecialtyPathology        Specialty = "Pathology"
	SpecialtyGastroenterology Specialty = "Gastroenterology"
	SpecialtyPsychiatry       Specialty = "Psychiatry"
	SpecialtyEmergency        Specialty = "Emergency Medicine"
	SpecialtyEndocrinology    Specialty = "Endocrinology"
	SpecialtyNephrology       Specialty = "Nephrology"
	SpecialtyObstetrics       Specialty = "Obstetrics and Gynecology"
	SpecialtyPediatrics       Specialty = "Pediatrics"
	SpecialtyOther            Specialty = "other"
)

// Specialties lists every assignable specialty including SpecialtyOther.
var Specialties = []Specialty{
	SpecialtyRadiology,
	SpecialtyCardiology,
	SpecialtyPulmonology,
	SpecialtyOncology,
	SpecialtyNeurology,
	SpecialtyOphthalmology,
	SpecialtyDermatology,
	SpecialtyPathology,
	SpecialtyGastroenterology,
	SpecialtyPsychiatry,
	SpecialtyEmergency,
	SpecialtyEndocrinology,
	SpecialtyNephrology,
	SpecialtyObstetrics,
	SpecialtyPediatrics,
	SpecialtyOther,
}

// Valid reports whether s belongs to the enumerated set.
func (s Specialty) Valid() bool {
	for _, v := range Specialties {
		if v == s {
			return true
		}
	}
	return false
}
